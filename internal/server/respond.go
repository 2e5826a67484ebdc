package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/journey"
	"github.com/sells-group/journey-mapper/internal/model"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeError maps an error kind to a status code.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Int("status", status), zap.Error(err))
	}
	code := model.Code(err)
	if errors.Is(err, journey.ErrClosed) {
		code = "session_closed"
	}
	writeJSON(w, status, errorBody{
		Error:     err.Error(),
		Code:      code,
		Retryable: model.IsRetryable(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrClassifierUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrMappingGenerationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, journey.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
