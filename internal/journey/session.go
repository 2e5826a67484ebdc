// Package journey ties a tenant's stage catalog, mapping, and selected
// contact to one bowtie view.
package journey

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/reconcile"
	"github.com/sells-group/journey-mapper/internal/source"
	"github.com/sells-group/journey-mapper/internal/visual"
)

// ErrClosed is returned by operations on a closed session, including calls
// whose external work finished after Close.
var ErrClosed = eris.New("journey: session closed")

// Resolver is the part of the mapping engine a session uses.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, stages []model.SourceStage) (*mapping.Resolution, error)
	Regenerate(ctx context.Context, tenantID string, stages []model.SourceStage) (*mapping.Resolution, error)
}

// Notice is a dismissible message about the last failure.
type Notice struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ID            string               `json:"session_id,omitempty"`
	TenantID      string               `json:"tenant_id"`
	Catalog       []model.SourceStage  `json:"catalog"`
	Mapping       model.StageMapping   `json:"mapping"`
	MappingSource mapping.Source       `json:"mapping_source,omitempty"`
	Entity        *model.Entity        `json:"entity,omitempty"`
	Position      bowtie.ID            `json:"position"`
	Stages        []visual.StageRender `json:"stages"`
	Selected      *bowtie.Stage        `json:"selected,omitempty"`
	Notice        *Notice              `json:"notice,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id reported in snapshots.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithMachine replaces the default visual machine.
func WithMachine(m *visual.Machine) Option {
	return func(s *Session) { s.machine = m }
}

// WithContact selects a contact as part of Open.
func WithContact(entityID string) Option {
	return func(s *Session) { s.initialContact = entityID }
}

// Session is one viewer's state for one tenant. It is safe for concurrent
// use; the lock is never held across CRM or classifier calls.
type Session struct {
	id             string
	tenantID       string
	resolver       Resolver
	source         source.Adapter
	initialContact string

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	machine    *visual.Machine
	catalog    []model.SourceStage
	mapping    model.StageMapping
	mappingSrc mapping.Source
	entity     *model.Entity
	selected   bowtie.ID
	notice     *Notice
	mappingSeq uint64
	entitySeq  uint64
}

// New creates a session. Nothing is loaded until Open.
func New(tenantID string, resolver Resolver, src source.Adapter, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		tenantID: tenantID,
		resolver: resolver,
		source:   src,
		ctx:      ctx,
		cancel:   cancel,
		selected: bowtie.None,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.machine == nil {
		s.machine = visual.New()
	}
	s.machine.Subscribe(func(id bowtie.ID) { s.selected = id })
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// TenantID returns the tenant the session belongs to.
func (s *Session) TenantID() string { return s.tenantID }

// Open loads the stage catalog and resolves the mapping, then selects the
// initial contact if one was configured.
func (s *Session) Open(ctx context.Context) error {
	if err := s.loadMapping(ctx, false); err != nil {
		return err
	}
	if s.initialContact != "" {
		return s.SelectEntity(ctx, s.initialContact)
	}
	return nil
}

// Regenerate reloads the catalog and asks the classifier for a new mapping.
func (s *Session) Regenerate(ctx context.Context) error {
	return s.loadMapping(ctx, true)
}

func (s *Session) loadMapping(ctx context.Context, regenerate bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mappingSeq++
	seq := s.mappingSeq
	s.mu.Unlock()

	ctx, cancel := s.bind(ctx)
	defer cancel()

	catalog, err := s.source.ListSourceStages(ctx, s.tenantID)
	if err != nil {
		return s.fail("list stages", err, func() bool { return seq == s.mappingSeq })
	}

	resolve := s.resolver.Resolve
	if regenerate {
		resolve = s.resolver.Regenerate
	}
	res, err := resolve(ctx, s.tenantID, catalog)
	if res == nil {
		if err == nil {
			err = eris.New("journey: empty resolution")
		}
		return s.fail("resolve mapping", err, func() bool { return seq == s.mappingSeq })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if seq != s.mappingSeq {
		// A newer load started while this one was in flight.
		return nil
	}
	s.catalog = catalog
	s.mapping = res.Mapping.Clone()
	s.mappingSrc = res.Source
	s.notice = nil
	s.recompute()

	zap.L().Info("journey: mapping applied",
		zap.String("tenant_id", s.tenantID),
		zap.String("source", string(res.Source)),
		zap.Int("entries", len(res.Mapping)),
	)

	if err != nil {
		// The mapping is usable but was not persisted.
		s.setNoticeLocked(err)
		return err
	}
	return nil
}

// SelectEntity fetches a contact and highlights its stage. A contact that
// does not exist clears the selection and records a notice.
func (s *Session) SelectEntity(ctx context.Context, entityID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.entitySeq++
	seq := s.entitySeq
	s.mu.Unlock()

	ctx, cancel := s.bind(ctx)
	defer cancel()

	entity, err := s.source.FetchEntity(ctx, s.tenantID, entityID)
	if err != nil {
		return s.fail("fetch contact", err, func() bool { return seq == s.entitySeq })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if seq != s.entitySeq {
		return nil
	}
	s.entity = entity
	if entity == nil {
		s.notice = &Notice{Code: "not_found", Message: "contact " + entityID + " not found", Retryable: false}
	}
	s.recompute()
	return nil
}

// ClearEntity removes the selected contact and its highlight.
func (s *Session) ClearEntity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.entitySeq++
	s.entity = nil
	s.recompute()
}

// Toggle flips the active state of one stage.
func (s *Session) Toggle(id bowtie.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.machine.Toggle(id)
}

// Search finds contacts for the session's tenant. It does not change the
// view.
func (s *Session) Search(ctx context.Context, query string) ([]model.EntitySummary, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	ctx, cancel := s.bind(ctx)
	defer cancel()

	results, err := s.source.SearchEntities(ctx, s.tenantID, query)
	if err != nil {
		return nil, s.fail("search contacts", err, nil)
	}
	return results, nil
}

// DismissNotice clears the current notice.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	s.notice = nil
	s.mu.Unlock()
}

// Close cancels in-flight work. Results that arrive afterwards are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		TenantID:      s.tenantID,
		Catalog:       append([]model.SourceStage{}, s.catalog...),
		Mapping:       s.mapping.Clone(),
		MappingSource: s.mappingSrc,
		Position:      s.machine.Highlighted(),
		Stages:        s.machine.Render(),
	}
	if snap.Mapping == nil {
		snap.Mapping = model.StageMapping{}
	}
	if s.entity != nil {
		e := *s.entity
		snap.Entity = &e
	}
	if st, ok := bowtie.Lookup(s.selected); ok {
		snap.Selected = &st
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}

// recompute pushes a freshly derived view into the machine. Caller holds mu.
func (s *Session) recompute() {
	view := reconcile.Derive(s.mapping, s.entity)
	s.machine.SetInbound(reconcile.LabelsFor(view.Grouping, s.catalog))
	s.machine.SetEntityPosition(view.Position)
}

// fail records a notice for err unless the session was closed meanwhile.
// fail records err as the session notice unless the operation was superseded.
// current reports, under the lock, whether the failing operation is still the
// latest of its kind; nil means always current.
func (s *Session) fail(op string, err error, current func() bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if current != nil && !current() {
		return err
	}
	zap.L().Warn("journey: "+op+" failed",
		zap.String("tenant_id", s.tenantID),
		zap.String("code", model.Code(err)),
		zap.Error(err),
	)
	s.setNoticeLocked(err)
	return err
}

func (s *Session) setNoticeLocked(err error) {
	s.notice = &Notice{
		Code:      model.Code(err),
		Message:   err.Error(),
		Retryable: model.IsRetryable(err),
	}
}

// bind derives a context that ends when either ctx or the session ends.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
