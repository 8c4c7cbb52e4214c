package server

import (
	"net/http"
	"strings"

	"github.com/xhad/smartnotes/pkg/pipeline"
)

// fallbackHeader names the fallback reason when generated content was
// replaced by the fixed defaults.
const fallbackHeader = "X-Generation-Fallback"

type notesResponse struct {
	StructuredNotes string `json:"structuredNotes"`
}

type mindmapResponse struct {
	MindmapData string `json:"mindmapData"`
}

type generateResponse struct {
	StructuredNotes string `json:"structuredNotes"`
	MindmapData     string `json:"mindmapData"`
}

func (s *Server) decodeTranscript(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	var req transcriptRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, op, err)
		return "", false
	}
	req.Transcript = strings.TrimSpace(req.Transcript)
	if err := validateStruct(req); err != nil {
		s.respondError(w, r, op, err)
		return "", false
	}
	return req.Transcript, true
}

// handleGenerateNotes handles POST /api/generate-notes
func (s *Server) handleGenerateNotes(w http.ResponseWriter, r *http.Request) {
	transcript, ok := s.decodeTranscript(w, r, "generate notes")
	if !ok {
		return
	}

	result := s.orchestrator.GenerateNotes(r.Context(), transcript)
	if result.Fallback != pipeline.FallbackNone {
		w.Header().Set(fallbackHeader, string(result.Fallback))
	}
	respondJSON(w, http.StatusOK, notesResponse{StructuredNotes: result.Notes})
}

// handleGenerateMindmap handles POST /api/generate-mindmap
func (s *Server) handleGenerateMindmap(w http.ResponseWriter, r *http.Request) {
	transcript, ok := s.decodeTranscript(w, r, "generate mindmap")
	if !ok {
		return
	}

	result := s.orchestrator.GenerateMindmap(r.Context(), transcript)
	if result.Fallback != pipeline.FallbackNone {
		w.Header().Set(fallbackHeader, string(result.Fallback))
	}
	respondJSON(w, http.StatusOK, mindmapResponse{MindmapData: result.Mindmap.JSON()})
}

// handleGenerate handles POST /api/generate. The fallback header lists
// "notes=<reason>" and "mindmap=<reason>" for each part that fell back.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	transcript, ok := s.decodeTranscript(w, r, "generate")
	if !ok {
		return
	}

	result := s.orchestrator.Generate(r.Context(), transcript)

	var fallbacks []string
	if result.Notes.Fallback != pipeline.FallbackNone {
		fallbacks = append(fallbacks, "notes="+string(result.Notes.Fallback))
	}
	if result.Mindmap.Fallback != pipeline.FallbackNone {
		fallbacks = append(fallbacks, "mindmap="+string(result.Mindmap.Fallback))
	}
	if len(fallbacks) > 0 {
		w.Header().Set(fallbackHeader, strings.Join(fallbacks, ","))
	}

	respondJSON(w, http.StatusOK, generateResponse{
		StructuredNotes: result.Notes.Notes,
		MindmapData:     result.Mindmap.Mindmap.JSON(),
	})
}
