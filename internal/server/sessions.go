package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/journey"
)

const defaultSessionTTL = 30 * time.Minute

type sessionEntry struct {
	sess     *journey.Session
	lastUsed time.Time
}

// sessions holds open sessions and closes those idle past ttl. Expired
// entries are swept on add and get.
type sessions struct {
	mu   sync.Mutex
	byID map[string]*sessionEntry
	ttl  time.Duration
	now  func() time.Time
}

func newSessions() *sessions {
	return &sessions{
		byID: make(map[string]*sessionEntry),
		ttl:  defaultSessionTTL,
		now:  time.Now,
	}
}

func (ss *sessions) add(s *journey.Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	ss.sweepLocked(now)
	ss.byID[s.ID()] = &sessionEntry{sess: s, lastUsed: now}
}

func (ss *sessions) get(id string) (*journey.Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	ss.sweepLocked(now)
	e, ok := ss.byID[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = now
	return e.sess, true
}

func (ss *sessions) sweepLocked(now time.Time) {
	if ss.ttl <= 0 {
		return
	}
	for id, e := range ss.byID {
		if now.Sub(e.lastUsed) <= ss.ttl {
			continue
		}
		e.sess.Close()
		delete(ss.byID, id)
		zap.L().Info("session expired",
			zap.String("session_id", id),
			zap.String("tenant_id", e.sess.TenantID()),
		)
	}
}

func (ss *sessions) remove(id string) (*journey.Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	e, ok := ss.byID[id]
	if !ok {
		return nil, false
	}
	delete(ss.byID, id)
	return e.sess, true
}

func (ss *sessions) closeAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for id, e := range ss.byID {
		e.sess.Close()
		delete(ss.byID, id)
	}
}

type createSessionRequest struct {
	TenantID  string `json:"tenant_id"`
	ContactID string `json:"contact_id,omitempty"`
}

type contactRequest struct {
	ContactID string `json:"contact_id"`
}

// Session endpoints report failures through the snapshot's notice, so they
// answer 200 unless the session itself is missing or closed.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		writeMessage(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}

	opts := []journey.Option{journey.WithID(uuid.NewString())}
	if req.ContactID != "" {
		opts = append(opts, journey.WithContact(req.ContactID))
	}
	sess := journey.New(req.TenantID, s.engine, s.source, opts...)
	s.sessions.add(sess)

	if err := sess.Open(r.Context()); err != nil {
		zap.L().Info("session opened with notice",
			zap.String("session_id", sess.ID()),
			zap.String("tenant_id", req.TenantID),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, sess *journey.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(chi.URLParam(r, "sessionID"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "not_found", "unknown session")
			return
		}
		fn(w, r, sess)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *journey.Session) {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	})(w, r)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.remove(chi.URLParam(r, "sessionID"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleStage(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *journey.Session) {
		id := bowtie.ID(chi.URLParam(r, "stageID"))
		if !bowtie.Valid(id) {
			writeMessage(w, http.StatusBadRequest, "bad_request", "unknown bowtie stage")
			return
		}
		if err := sess.Toggle(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	})(w, r)
}

func (s *Server) selectContact(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *journey.Session) {
		var req contactRequest
		if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.ContactID) == "" {
			writeMessage(w, http.StatusBadRequest, "bad_request", "contact_id is required")
			return
		}
		s.respondSession(w, sess, sess.SelectEntity(r.Context(), req.ContactID))
	})(w, r)
}

func (s *Server) clearContact(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *journey.Session) {
		sess.ClearEntity()
		writeJSON(w, http.StatusOK, sess.Snapshot())
	})(w, r)
}

func (s *Server) regenerateSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *journey.Session) {
		s.respondSession(w, sess, sess.Regenerate(r.Context()))
	})(w, r)
}

func (s *Server) dismissNotice(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *journey.Session) {
		sess.DismissNotice()
		writeJSON(w, http.StatusOK, sess.Snapshot())
	})(w, r)
}

// respondSession writes the snapshot; the error already lives in its notice.
func (s *Server) respondSession(w http.ResponseWriter, sess *journey.Session, err error) {
	if err != nil && sess.Closed() {
		writeError(w, journey.ErrClosed)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
