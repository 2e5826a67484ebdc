package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/reconcile"
)

type mappingResponse struct {
	*mapping.Resolution
	Grouping reconcile.Grouping `json:"grouping"`
	Warning  *errorBody         `json:"warning,omitempty"`
}

func (s *Server) listBowtieStages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bowtie.Stages())
}

func (s *Server) getBowtieStage(w http.ResponseWriter, r *http.Request) {
	st, ok := bowtie.Lookup(bowtie.ID(chi.URLParam(r, "stageID")))
	if !ok {
		writeMessage(w, http.StatusNotFound, "not_found", "unknown bowtie stage")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listTenantStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.source.ListSourceStages(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (s *Server) getMapping(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	stages, err := s.source.ListSourceStages(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("cached") == "true" {
		res, err := s.engine.Lookup(r.Context(), tenantID, stages)
		if err != nil {
			writeError(w, err)
			return
		}
		if res == nil {
			writeMessage(w, http.StatusNotFound, "not_found", "no usable stored mapping")
			return
		}
		writeMapping(w, res, nil)
		return
	}

	res, err := s.engine.Resolve(r.Context(), tenantID, stages)
	writeMapping(w, res, err)
}

func (s *Server) regenerateMapping(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	stages, err := s.source.ListSourceStages(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.Regenerate(r.Context(), tenantID, stages)
	writeMapping(w, res, err)
}

// writeMapping returns 200 with a warning when a fresh mapping could not be
// persisted.
func writeMapping(w http.ResponseWriter, res *mapping.Resolution, err error) {
	if res == nil {
		if err == nil {
			err = errors.New("server: empty resolution")
		}
		writeError(w, err)
		return
	}
	body := mappingResponse{Resolution: res, Grouping: reconcile.GroupByTarget(res.Mapping)}
	if err != nil {
		body.Warning = &errorBody{Error: err.Error(), Code: model.Code(err), Retryable: model.IsRetryable(err)}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) searchContacts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeMessage(w, http.StatusBadRequest, "bad_request", "q is required")
		return
	}
	results, err := s.source.SearchEntities(r.Context(), chi.URLParam(r, "tenantID"), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []model.EntitySummary{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	entity, err := s.source.FetchEntity(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entity == nil {
		writeMessage(w, http.StatusNotFound, "not_found", "contact not found")
		return
	}
	writeJSON(w, http.StatusOK, entity)
}
