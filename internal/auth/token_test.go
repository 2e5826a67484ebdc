package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/journey-mapper/internal/model"
)

func TestStatic(t *testing.T) {
	tok, err := Static("pat-123").Token(context.Background(), "portal-1")
	require.NoError(t, err)
	assert.Equal(t, "pat-123", tok)

	_, err = Static("").Token(context.Background(), "portal-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAuthFailure))
}

func TestService_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "portal-1", r.URL.Query().Get("portalId"))
		assert.Equal(t, "v1", r.URL.Query().Get("api"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"tok-a","expiresIn":1800}`)) //nolint:errcheck
	}))
	defer srv.Close()

	s := NewService(srv.URL + "/getToken?api=v1")
	for range 3 {
		tok, err := s.Token(context.Background(), "portal-1")
		require.NoError(t, err)
		assert.Equal(t, "tok-a", tok)
	}
	assert.Equal(t, int32(1), calls.Load())

	s.Invalidate("portal-1")
	_, err := s.Token(context.Background(), "portal-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestService_RefreshesAfterExpiry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"accessToken":"tok","expiresIn":60}`)) //nolint:errcheck
	}))
	defer srv.Close()

	now := time.Now()
	s := NewService(srv.URL)
	s.nowFunc = func() time.Time { return now }

	_, err := s.Token(context.Background(), "portal-1")
	require.NoError(t, err)

	s.nowFunc = func() time.Time { return now.Add(45 * time.Second) }
	_, err = s.Token(context.Background(), "portal-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestService_NoCacheWithoutTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"accessToken":"tok"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	s := NewService(srv.URL, WithDefaultTTL(0), WithHTTPClient(srv.Client()))
	_, _ = s.Token(context.Background(), "portal-1")
	_, _ = s.Token(context.Background(), "portal-1")
	assert.Equal(t, int32(2), calls.Load())
}

func TestService_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"message":"denied"}`},
		{"empty token", http.StatusOK, `{"accessToken":""}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			_, err := NewService(srv.URL).Token(context.Background(), "portal-9")
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrAuthFailure))
			assert.Equal(t, model.ErrAuthFailure, model.KindOf(err))
		})
	}
}
