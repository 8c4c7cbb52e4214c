package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/xhad/smartnotes/pkg/export"
	"go.uber.org/zap"
)

// handleExport handles POST /api/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, "export", err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, r, "export", err)
		return
	}

	contentType, err := export.ParseContentType(req.Type)
	if err != nil {
		s.respondError(w, r, "export", err)
		return
	}

	payload, err := export.Export(req.Content, contentType, s.now())
	if err != nil {
		s.respondError(w, r, "export", err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordExport(string(contentType))
	}
	s.logger.Debug("document exported",
		zap.String("type", string(contentType)),
		zap.String("filename", payload.Filename),
		zap.Int("bytes", len(payload.Data)))

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload.Data)
}
