// Package mapping resolves a tenant's source-stage catalog to bowtie stages.
// Mappings are generated by an external classifier, validated against the
// catalog, and cached per tenant.
package mapping

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/store"
)

// Source says where a resolved mapping came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
)

// CachePolicy decides whether a stored mapping is reused.
type CachePolicy string

const (
	// PolicySubset reuses a stored mapping whose keys are all still in the
	// catalog, even if new catalog values are unmapped.
	PolicySubset CachePolicy = "subset"
	// PolicyFull additionally requires every catalog value to be mapped.
	PolicyFull CachePolicy = "full"
)

// Resolution is a mapping plus how it was obtained.
type Resolution struct {
	TenantID    string             `json:"tenant_id"`
	Mapping     model.StageMapping `json:"mapping"`
	Source      Source             `json:"source"`
	Dropped     []Drop             `json:"dropped,omitempty"`
	GeneratedAt time.Time          `json:"generated_at,omitzero"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithCachePolicy sets the stored-mapping reuse policy. Default PolicySubset.
func WithCachePolicy(p CachePolicy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithClock overrides time.Now for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns a classifier and a store. Operations on the same tenant run
// one at a time, in arrival order of their lock acquisition.
type Engine struct {
	classifier Classifier
	store      store.MappingStore
	policy     CachePolicy
	now        func() time.Time
	locks      *tenantLocks
}

// New creates an Engine.
func New(classifier Classifier, st store.MappingStore, opts ...Option) *Engine {
	e := &Engine{
		classifier: classifier,
		store:      st,
		policy:     PolicySubset,
		now:        time.Now,
		locks:      newTenantLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the tenant's stored mapping when usable, otherwise
// generates, validates, and stores a new one.
//
// On a store write failure the fresh Resolution is returned together with an
// ErrPersistenceUnavailable error.
func (e *Engine) Resolve(ctx context.Context, tenantID string, stages []model.SourceStage) (*Resolution, error) {
	release, err := e.locks.acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := e.lookup(ctx, tenantID, stages)
	if err != nil || res != nil {
		return res, err
	}
	return e.generate(ctx, tenantID, stages)
}

// Regenerate always calls the classifier and replaces the stored mapping.
func (e *Engine) Regenerate(ctx context.Context, tenantID string, stages []model.SourceStage) (*Resolution, error) {
	release, err := e.locks.acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.generate(ctx, tenantID, stages)
}

// Lookup returns the stored mapping if usable, or (nil, nil). It never calls
// the classifier.
func (e *Engine) Lookup(ctx context.Context, tenantID string, stages []model.SourceStage) (*Resolution, error) {
	release, err := e.locks.acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.lookup(ctx, tenantID, stages)
}

func (e *Engine) lookup(ctx context.Context, tenantID string, stages []model.SourceStage) (*Resolution, error) {
	m, err := e.store.Get(ctx, tenantID)
	if err != nil {
		return nil, model.NewError(model.ErrPersistenceUnavailable, tenantID, err)
	}
	if m == nil {
		return nil, nil
	}
	if reason := e.unusable(m, stages); reason != "" {
		zap.L().Info("stored mapping not reused",
			zap.String("tenant_id", tenantID),
			zap.String("reason", reason),
		)
		return nil, nil
	}

	resolutionsTotal.WithLabelValues(string(SourceCache)).Inc()
	return &Resolution{TenantID: tenantID, Mapping: m, Source: SourceCache}, nil
}

// unusable explains why a stored mapping cannot be reused, or returns "".
func (e *Engine) unusable(m model.StageMapping, stages []model.SourceStage) string {
	switch {
	case len(m) == 0:
		return "empty"
	case len(m.InvalidTargets()) > 0:
		return "invalid targets"
	case !m.KeysWithin(stages):
		return "keys outside catalog"
	case e.policy == PolicyFull && !m.Covers(stages):
		return "catalog not covered"
	}
	return ""
}

func (e *Engine) generate(ctx context.Context, tenantID string, stages []model.SourceStage) (*Resolution, error) {
	if len(stages) == 0 {
		return nil, model.NewError(model.ErrMappingGenerationFailed, tenantID, eris.New("mapping: empty source catalog"))
	}

	start := time.Now()
	raw, err := e.classifier.Classify(ctx, NewRequest(tenantID, stages))
	classifierSeconds.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		classifierCallsTotal.WithLabelValues(outcomeAbandoned).Inc()
		return nil, ctx.Err()
	}
	if err != nil {
		classifierCallsTotal.WithLabelValues(outcomeError).Inc()
		return nil, model.NewError(model.ErrClassifierUnavailable, tenantID, err)
	}

	m, drops, err := Validate(raw, stages)
	for _, d := range drops {
		droppedEntriesTotal.WithLabelValues(d.Reason).Inc()
	}
	if err != nil {
		classifierCallsTotal.WithLabelValues(outcomeInvalid).Inc()
		zap.L().Warn("classifier response rejected",
			zap.String("tenant_id", tenantID),
			zap.Int("dropped", len(drops)),
			zap.Error(err),
		)
		return nil, model.NewError(model.ErrMappingGenerationFailed, tenantID, err)
	}
	classifierCallsTotal.WithLabelValues(outcomeOK).Inc()

	res := &Resolution{
		TenantID:    tenantID,
		Mapping:     m,
		Source:      SourceGenerated,
		Dropped:     drops,
		GeneratedAt: e.now().UTC(),
	}
	resolutionsTotal.WithLabelValues(string(SourceGenerated)).Inc()

	zap.L().Info("generated stage mapping",
		zap.String("tenant_id", tenantID),
		zap.Int("mapped", len(m)),
		zap.Int("catalog", len(stages)),
		zap.Int("dropped", len(drops)),
	)

	if err := e.store.Put(ctx, tenantID, m); err != nil {
		zap.L().Error("persist stage mapping", zap.String("tenant_id", tenantID), zap.Error(err))
		return res, model.NewError(model.ErrPersistenceUnavailable, tenantID, err)
	}
	return res, nil
}
