package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"go.uber.org/zap"
)

// multipartOverhead covers form boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

var uploadFields = []string{"file", "audio"}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
}

type youtubeResponse struct {
	Transcript string `json:"transcript"`
	VideoTitle string `json:"videoTitle"`
	VideoID    string `json:"videoId"`
	AudioSize  int    `json:"audioSize"`
}

// handleTranscribe handles POST /api/transcribe
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	limit := s.upload.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, "transcribe", s.upload.Validate("", "", limit+1))
			return
		}
		s.respondError(w, r, "transcribe", apperr.Validation("file", "Audio file is required").WithCause(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var audio models.AudioPayload
	found := false
	for _, field := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}

		// Reject before reading the body into memory.
		mimeType := header.Header.Get("Content-Type")
		if err := s.upload.Validate(header.Filename, mimeType, header.Size); err != nil {
			file.Close()
			s.recordAcquisition(models.SourceFileUpload, err)
			s.respondError(w, r, "transcribe", err)
			return
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.respondError(w, r, "transcribe", apperr.Internal(err))
			return
		}

		audio = models.AudioPayload{Name: header.Filename, MimeType: mimeType, Data: data}
		found = true
		break
	}
	if !found {
		respondMessage(w, http.StatusBadRequest, "Audio file is required")
		return
	}

	acq, err := s.upload.Acquire(r.Context(), audio)
	s.recordAcquisition(models.SourceFileUpload, err)
	if err != nil {
		s.respondError(w, r, "transcribe", err)
		return
	}

	respondJSON(w, http.StatusOK, transcribeResponse{
		Transcript: acq.Transcript,
		FileName:   audio.Name,
		FileSize:   audio.Size(),
		FileType:   audio.MimeType,
	})
}

// handleYouTube handles POST /api/youtube-audio
func (s *Server) handleYouTube(w http.ResponseWriter, r *http.Request) {
	var req youtubeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, "youtube", err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validateStruct(req); err != nil {
		s.respondError(w, r, "youtube", err)
		return
	}

	acq, err := s.youtube.Acquire(r.Context(), req.URL)
	s.recordAcquisition(models.SourceYouTube, err)
	if err != nil {
		s.respondError(w, r, "youtube", err)
		return
	}

	videoID, _ := acq.Metadata["videoId"].(string)
	videoTitle, _ := acq.Metadata["videoTitle"].(string)

	s.logger.Info("youtube transcript acquired",
		zap.String("video_id", videoID),
		zap.Int("chars", len(acq.Transcript)))

	respondJSON(w, http.StatusOK, youtubeResponse{
		Transcript: acq.Transcript,
		VideoTitle: videoTitle,
		VideoID:    videoID,
		AudioSize:  0,
	})
}

func (s *Server) recordAcquisition(source models.SourceKind, err error) {
	if s.metrics != nil {
		s.metrics.RecordAcquisition(string(source), err)
	}
}
