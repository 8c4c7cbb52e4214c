package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/pkg/auth"
	"go.uber.org/zap"
)

type saveNoteResponse struct {
	Message string       `json:"message"`
	Note    *models.Note `json:"note"`
}

type noteResponse struct {
	Note *models.Note `json:"note"`
}

type listNotesResponse struct {
	Notes []models.NoteSummary `json:"notes"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return user, true
}

func (s *Server) recordNoteOperation(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordNoteOperation(operation, err)
	}
}

// handleSaveNote handles POST /api/notes and POST /api/notes/save
func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req saveNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, "save note", err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if strings.TrimSpace(req.Transcript) == "" {
		req.Transcript = ""
	}
	if strings.TrimSpace(req.StructuredNotes) == "" {
		req.StructuredNotes = ""
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, r, "save note", err)
		return
	}

	note, err := s.store.Create(r.Context(), &models.Note{
		Title:           req.Title,
		Transcript:      req.Transcript,
		StructuredNotes: req.StructuredNotes,
		MindmapData:     req.MindmapData,
		Source:          models.SourceKind(req.Source),
		SourceURL:       req.SourceURL,
		FileName:        req.FileName,
		UserID:          user.ID,
	})
	s.recordNoteOperation("create", err)
	if err != nil {
		s.respondError(w, r, "save note", err)
		return
	}

	s.logger.Info("note saved",
		zap.String("note_id", note.ID),
		zap.String("user_id", user.ID),
		zap.String("source", string(note.Source)))

	respondJSON(w, http.StatusCreated, saveNoteResponse{
		Message: "Note saved successfully",
		Note:    note,
	})
}

// handleListNotes handles GET /api/notes
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	notes, err := s.store.List(r.Context(), user.ID)
	s.recordNoteOperation("list", err)
	if err != nil {
		s.respondError(w, r, "list notes", err)
		return
	}
	if notes == nil {
		notes = []models.NoteSummary{}
	}

	respondJSON(w, http.StatusOK, listNotesResponse{Notes: notes})
}

// handleGetNote handles GET /api/notes/{noteID}
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		s.respondError(w, r, "get note", apperr.NotFound("Note"))
		return
	}

	note, err := s.store.Get(r.Context(), noteID, user.ID)
	s.recordNoteOperation("get", err)
	if err != nil {
		s.respondError(w, r, "get note", err)
		return
	}

	respondJSON(w, http.StatusOK, noteResponse{Note: note})
}

// handleDeleteNote handles DELETE /api/notes/{noteID}
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		s.respondError(w, r, "delete note", apperr.NotFound("Note"))
		return
	}

	err := s.store.Delete(r.Context(), noteID, user.ID)
	s.recordNoteOperation("delete", err)
	if err != nil {
		s.respondError(w, r, "delete note", err)
		return
	}

	s.logger.Info("note deleted", zap.String("note_id", noteID), zap.String("user_id", user.ID))
	respondJSON(w, http.StatusOK, messageResponse{Message: "Note deleted successfully"})
}
