// Package hubspot provides a client for the HubSpot CRM v3 API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the HubSpot CRM operations used by the journey mapper.
// Every call takes the access token of the portal it acts on.
type Client interface {
	// GetProperty returns a property definition including its options.
	GetProperty(ctx context.Context, token, objectType, name string) (*Property, error)
	// GetContact returns a contact with the requested properties, or nil when
	// the contact does not exist.
	GetContact(ctx context.Context, token, id string, properties []string) (*Object, error)
	// SearchContacts runs a CRM search over contacts.
	SearchContacts(ctx context.Context, token string, req SearchRequest) (*SearchResponse, error)
}

// Property is a CRM property definition.
type Property struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Options []Option `json:"options"`
}

// Option is one enumeration value of a property.
type Option struct {
	Label        string `json:"label"`
	Value        string `json:"value"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"displayOrder"`
	Hidden       bool   `json:"hidden"`
}

// Object is a CRM record.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Filter is a single search predicate.
type Filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// FilterGroup ANDs its filters; groups are ORed together.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// SearchRequest is the body of a CRM search.
type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
}

// SearchResponse is the result of a CRM search.
type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hubspot: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ClientOption configures the HubSpot client.
type ClientOption func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second across all portals.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new HubSpot client.
func NewClient(opts ...ClientOption) Client {
	c := &httpClient{
		baseURL: "https://api.hubapi.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request and returns the body for 2xx responses. Non-2xx
// responses come back as *StatusError.
func (c *httpClient) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limiter")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "hubspot: marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *httpClient) GetProperty(ctx context.Context, token, objectType, name string) (*Property, error) {
	path := fmt.Sprintf("/crm/v3/properties/%s/%s", url.PathEscape(objectType), url.PathEscape(name))
	data, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}

	var prop Property
	if err := json.Unmarshal(data, &prop); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal property")
	}
	return &prop, nil
}

func (c *httpClient) GetContact(ctx context.Context, token, id string, properties []string) (*Object, error) {
	path := "/crm/v3/objects/contacts/" + url.PathEscape(id)
	if len(properties) > 0 {
		path += "?properties=" + url.QueryEscape(strings.Join(properties, ","))
	}

	data, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal contact")
	}
	return &obj, nil
}

func (c *httpClient) SearchContacts(ctx context.Context, token string, req SearchRequest) (*SearchResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", token, req)
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal search response")
	}
	return &out, nil
}

// ContainsTokenSearch builds the OR-of-properties search used for contact
// lookup: one filter group per property, each matching query as a token.
func ContainsTokenSearch(query string, searchOn, properties []string, limit int) SearchRequest {
	groups := make([]FilterGroup, 0, len(searchOn))
	for _, p := range searchOn {
		groups = append(groups, FilterGroup{Filters: []Filter{{
			PropertyName: p,
			Operator:     "CONTAINS_TOKEN",
			Value:        query,
		}}})
	}
	return SearchRequest{FilterGroups: groups, Properties: properties, Limit: limit}
}
