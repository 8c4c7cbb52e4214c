package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/pkg/acquire"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Largest single audio frame accepted from the peer
	maxFrameSize = 1 << 20

	defaultLiveMimeType = "audio/webm"
)

type liveStatus struct {
	Type  string                 `json:"type"`
	State acquire.RecordingState `json:"state"`
	Bytes int64                  `json:"bytes"`
}

type liveTranscript struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder"`
}

type liveError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handleLive handles GET /api/live. Binary frames carry audio; text frames
// "pause", "resume" and "stop" (or "DONE") drive the recording.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	mimeType := r.URL.Query().Get("mimeType")
	if mimeType == "" {
		mimeType = defaultLiveMimeType
	}

	if s.metrics != nil {
		s.metrics.LiveSessionsActive.Inc()
		defer s.metrics.LiveSessionsActive.Dec()
	}

	session := &liveSession{
		server: s,
		conn:   conn,
		rec:    s.live.Start(mimeType),
		logger: s.logger.With(zap.String("mime_type", mimeType), zap.String("remoteAddr", r.RemoteAddr)),
	}
	session.run(r)
}

type liveSession struct {
	server *Server
	conn   *websocket.Conn
	rec    *acquire.Recording
	logger *zap.Logger
}

func (ls *liveSession) run(r *http.Request) {
	ls.conn.SetReadLimit(maxFrameSize)
	ls.logger.Info("live session started")

	if !ls.sendStatus() {
		return
	}

	for {
		messageType, message, err := ls.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ls.logger.Warn("WebSocket read error", zap.Error(err))
			}
			// Abandoned before stop; the audio is discarded.
			_, _ = ls.rec.Stop()
			ls.server.recordAcquisition(models.SourceLiveAudio, errors.New("abandoned"))
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if !ls.handleFrame(message) {
				return
			}
		case websocket.TextMessage:
			done, ok := ls.handleCommand(r, string(bytes.TrimSpace(message)))
			if !ok || done {
				return
			}
		}
	}
}

func (ls *liveSession) handleFrame(frame []byte) bool {
	_, err := ls.rec.Write(frame)
	switch {
	case err == nil:
		return true
	case errors.Is(err, acquire.ErrNotRecording):
		// Frames that arrive while paused are dropped.
		ls.logger.Debug("dropping frame while not recording", zap.Int("bytes", len(frame)))
		return true
	default:
		return ls.send(liveError{Type: "error", Error: apperr.Message(err)})
	}
}

// handleCommand reports done once the session has delivered its transcript.
func (ls *liveSession) handleCommand(r *http.Request, command string) (done, ok bool) {
	switch strings.ToLower(command) {
	case "pause":
		if err := ls.rec.Pause(); err != nil {
			return false, ls.send(liveError{Type: "error", Error: "Recording is not active"})
		}
		return false, ls.sendStatus()

	case "resume":
		if err := ls.rec.Resume(); err != nil {
			return false, ls.send(liveError{Type: "error", Error: "Recording is not paused"})
		}
		return false, ls.sendStatus()

	case "stop", "done":
		size := ls.rec.Size()
		results, err := ls.server.live.Finish(r.Context(), ls.rec)
		if err != nil {
			return false, ls.send(liveError{Type: "error", Error: "Recording already stopped"})
		}
		if !ls.send(liveStatus{Type: "status", State: acquire.StateStopped, Bytes: size}) {
			return false, false
		}

		result, received := <-results
		if !received || result.Acquisition == nil {
			ls.server.recordAcquisition(models.SourceLiveAudio, errors.New("no result"))
			return true, ls.send(liveError{Type: "error", Error: "Internal server error"})
		}
		ls.server.recordAcquisition(models.SourceLiveAudio, nil)

		ls.logger.Info("live session finished",
			zap.Bool("placeholder", result.Placeholder),
			zap.Int("chars", len(result.Acquisition.Transcript)))

		ok := ls.send(liveTranscript{
			Type:        "transcript",
			Text:        result.Acquisition.Transcript,
			Placeholder: result.Placeholder,
		})
		if ok {
			_ = ls.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
		}
		return true, ok

	default:
		ls.logger.Debug("unknown live command", zap.String("command", command))
		return false, ls.send(liveError{Type: "error", Error: "Unknown command"})
	}
}

func (ls *liveSession) sendStatus() bool {
	return ls.send(liveStatus{Type: "status", State: ls.rec.State(), Bytes: ls.rec.Size()})
}

func (ls *liveSession) send(v interface{}) bool {
	ls.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ls.conn.WriteJSON(v); err != nil {
		ls.logger.Warn("Failed to write message", zap.Error(err))
		return false
	}
	return true
}
