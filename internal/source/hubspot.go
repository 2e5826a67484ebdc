package source

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/auth"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/resilience"
	"github.com/sells-group/journey-mapper/pkg/hubspot"
)

var searchFields = []string{"firstname", "lastname", "email"}

// HubSpot reads stages from a contact enumeration property.
type HubSpot struct {
	client   hubspot.Client
	tokens   auth.TokenSource
	property string
	retry    resilience.RetryConfig
}

// HubSpotOption configures the HubSpot adapter.
type HubSpotOption func(*HubSpot)

// WithProperty selects the enumeration property holding the stage. Default
// lifecyclestage.
func WithProperty(name string) HubSpotOption {
	return func(h *HubSpot) {
		if name != "" {
			h.property = name
		}
	}
}

// WithRetry sets the retry policy for CRM calls.
func WithRetry(cfg resilience.RetryConfig) HubSpotOption {
	return func(h *HubSpot) { h.retry = cfg }
}

// NewHubSpot creates a HubSpot adapter.
func NewHubSpot(client hubspot.Client, tokens auth.TokenSource, opts ...HubSpotOption) *HubSpot {
	h := &HubSpot{
		client:   client,
		tokens:   tokens,
		property: "lifecyclestage",
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.retry.ShouldRetry = isRetryableHubSpot
	return h
}

func (h *HubSpot) ListSourceStages(ctx context.Context, tenantID string) ([]model.SourceStage, error) {
	prop, err := callHubSpot(ctx, h, tenantID, "list stages", func(ctx context.Context, token string) (*hubspot.Property, error) {
		return h.client.GetProperty(ctx, token, "contacts", h.property)
	})
	if err != nil {
		return nil, err
	}

	opts := make([]hubspot.Option, 0, len(prop.Options))
	for _, o := range prop.Options {
		if !o.Hidden {
			opts = append(opts, o)
		}
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].DisplayOrder < opts[j].DisplayOrder })

	stages := make([]model.SourceStage, 0, len(opts))
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if _, dup := seen[o.Value]; dup || o.Value == "" {
			continue
		}
		seen[o.Value] = struct{}{}
		stages = append(stages, model.SourceStage{Value: o.Value, Label: o.Label, Description: o.Description})
	}
	return stages, nil
}

func (h *HubSpot) FetchEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	props := append(append([]string{}, searchFields...), h.property)
	obj, err := callHubSpot(ctx, h, tenantID, "fetch contact", func(ctx context.Context, token string) (*hubspot.Object, error) {
		return h.client.GetContact(ctx, token, entityID, props)
	})
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	e := h.toEntity(*obj)
	return &e, nil
}

func (h *HubSpot) SearchEntities(ctx context.Context, tenantID, query string) ([]model.EntitySummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	props := append(append([]string{}, searchFields...), h.property)
	req := hubspot.ContainsTokenSearch(query, searchFields, props, searchLimit)

	resp, err := callHubSpot(ctx, h, tenantID, "search contacts", func(ctx context.Context, token string) (*hubspot.SearchResponse, error) {
		return h.client.SearchContacts(ctx, token, req)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.EntitySummary, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, h.toEntity(r))
	}
	return out, nil
}

func (h *HubSpot) toEntity(obj hubspot.Object) model.Entity {
	return model.Entity{
		ID:         obj.ID,
		FirstName:  obj.Properties["firstname"],
		LastName:   obj.Properties["lastname"],
		Email:      obj.Properties["email"],
		StageValue: obj.Properties[h.property],
	}
}

// callHubSpot obtains the tenant's token and runs fn with retries. Rejected
// tokens surface as ErrAuthFailure and are evicted from the token cache.
func callHubSpot[T any](ctx context.Context, h *HubSpot, tenantID, op string, fn func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T
	token, err := h.tokens.Token(ctx, tenantID)
	if err != nil {
		return zero, err
	}

	cfg := h.retry
	cfg.OnRetry = resilience.RetryLogger("hubspot", op)
	val, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		return fn(ctx, token)
	})
	if err == nil {
		return val, nil
	}

	var se *hubspot.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		if inv, ok := h.tokens.(auth.Invalidator); ok {
			inv.Invalidate(tenantID)
		}
		zap.L().Warn("hubspot rejected token", zap.String("tenant_id", tenantID), zap.Int("status", se.StatusCode))
		return zero, model.NewError(model.ErrAuthFailure, tenantID, err)
	}
	return zero, eris.Wrapf(err, "source: hubspot %s", op)
}

func isRetryableHubSpot(err error) bool {
	var se *hubspot.StatusError
	if errors.As(err, &se) {
		return resilience.IsTransientHTTPStatus(se.StatusCode)
	}
	return resilience.IsTransient(err)
}
