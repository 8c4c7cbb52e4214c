package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xhad/smartnotes/internal/apperr"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondError maps err to its status and user-facing message. Server-side
// failures are logged with their cause.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			zap.String("kind", string(kind)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected",
			zap.String("kind", string(kind)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}

	respondMessage(w, status, apperr.Message(err))
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("", "Invalid request body").WithCause(err)
	}
	return nil
}
