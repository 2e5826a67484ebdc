// Package auth issues per-tenant CRM access tokens.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/model"
)

// TokenSource returns a bearer token for a tenant.
type TokenSource interface {
	Token(ctx context.Context, tenantID string) (string, error)
}

// Invalidator is implemented by token sources that cache. Callers drop a
// tenant's token after the CRM rejects it.
type Invalidator interface {
	Invalidate(tenantID string)
}

// Static hands out the same token for every tenant.
type Static string

func (s Static) Token(_ context.Context, tenantID string) (string, error) {
	if s == "" {
		return "", model.NewError(model.ErrAuthFailure, tenantID, eris.New("auth: no static token configured"))
	}
	return string(s), nil
}

// tokenResponse is the token service payload.
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type cachedToken struct {
	token   string
	expires time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(s *Service) { s.http = hc }
}

// WithDefaultTTL sets how long a token without expiresIn is cached. Zero
// disables caching for such tokens.
func WithDefaultTTL(d time.Duration) ServiceOption {
	return func(s *Service) { s.defaultTTL = d }
}

// Service fetches tokens from an HTTP token endpoint:
// GET {endpoint}?portalId={tenant} -> {"accessToken": "...", "expiresIn": 1800}.
type Service struct {
	endpoint   string
	http       *http.Client
	defaultTTL time.Duration
	nowFunc    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedToken
}

// NewService creates a token service client.
func NewService(endpoint string, opts ...ServiceOption) *Service {
	s := &Service{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: 15 * time.Second},
		defaultTTL: 5 * time.Minute,
		nowFunc:    time.Now,
		cache:      make(map[string]cachedToken),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// expirySlack refreshes tokens slightly before they lapse.
const expirySlack = 30 * time.Second

func (s *Service) Token(ctx context.Context, tenantID string) (string, error) {
	s.mu.Lock()
	if c, ok := s.cache[tenantID]; ok && s.nowFunc().Before(c.expires) {
		s.mu.Unlock()
		return c.token, nil
	}
	s.mu.Unlock()

	tr, err := s.fetch(ctx, tenantID)
	if err != nil {
		return "", model.NewError(model.ErrAuthFailure, tenantID, err)
	}

	ttl := s.defaultTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn)*time.Second - expirySlack
	}
	if ttl > 0 {
		s.mu.Lock()
		s.cache[tenantID] = cachedToken{token: tr.AccessToken, expires: s.nowFunc().Add(ttl)}
		s.mu.Unlock()
	}
	return tr.AccessToken, nil
}

// Invalidate drops the cached token for tenantID.
func (s *Service) Invalidate(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, tenantID)
}

func (s *Service) fetch(ctx context.Context, tenantID string) (*tokenResponse, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, eris.Wrap(err, "auth: parse token url")
	}
	q := u.Query()
	q.Set("portalId", tenantID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "auth: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "auth: token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "auth: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("auth: token service status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, eris.Wrap(err, "auth: unmarshal token response")
	}
	if tr.AccessToken == "" {
		return nil, eris.New("auth: token service returned no accessToken")
	}

	zap.L().Debug("fetched access token",
		zap.String("tenant_id", tenantID),
		zap.Int("expires_in", tr.ExpiresIn),
	)
	return &tr, nil
}
