package server

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/journey-mapper/internal/journey"
)

type fakeClock struct{ nanos atomic.Int64 }

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(t.UnixNano())
	return c
}

func (c *fakeClock) now() time.Time          { return time.Unix(0, c.nanos.Load()) }
func (c *fakeClock) advance(d time.Duration) { c.nanos.Add(int64(d)) }

func newClockedSessions(ttl time.Duration) (*sessions, *fakeClock) {
	clock := newFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	ss := newSessions()
	ss.ttl = ttl
	ss.now = clock.now
	return ss, clock
}

func TestSessions_IdleEntriesExpire(t *testing.T) {
	ss, clock := newClockedSessions(10 * time.Minute)
	idle := journey.New(tenant, nil, nil, journey.WithID("idle"))
	busy := journey.New(tenant, nil, nil, journey.WithID("busy"))
	ss.add(idle)
	ss.add(busy)

	clock.advance(6 * time.Minute)
	_, ok := ss.get("busy")
	require.True(t, ok)

	clock.advance(6 * time.Minute)
	_, ok = ss.get("idle")
	assert.False(t, ok)
	assert.True(t, idle.Closed())

	got, ok := ss.get("busy")
	require.True(t, ok)
	assert.Same(t, busy, got)
	assert.False(t, busy.Closed())
}

func TestSessions_ExpiredOnAdd(t *testing.T) {
	ss, clock := newClockedSessions(time.Minute)
	old := journey.New(tenant, nil, nil, journey.WithID("old"))
	ss.add(old)

	clock.advance(2 * time.Minute)
	ss.add(journey.New(tenant, nil, nil, journey.WithID("new")))

	assert.True(t, old.Closed())
	ss.mu.Lock()
	assert.Len(t, ss.byID, 1)
	ss.mu.Unlock()
}

func TestSessions_ZeroTTLKeepsEntries(t *testing.T) {
	ss, clock := newClockedSessions(0)
	sess := journey.New(tenant, nil, nil, journey.WithID("kept"))
	ss.add(sess)

	clock.advance(24 * time.Hour)
	_, ok := ss.get("kept")
	assert.True(t, ok)
	assert.False(t, sess.Closed())
}

func TestSessions_ExpiredSessionIs404(t *testing.T) {
	clock := newFakeClock(time.Now())
	f := newFixture(t, func(s *Server) { s.sessions.now = clock.now })

	resp, body := f.do(t, http.MethodPost, "/sessions", `{"tenant_id":"portal-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)

	clock.advance(defaultSessionTTL + time.Second)
	resp, _ = f.do(t, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
