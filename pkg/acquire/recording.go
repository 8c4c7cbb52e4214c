package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultLiveMaxBytes = 50 * 1024 * 1024

	// PlaceholderTranscript stands in when a recording produced no text.
	PlaceholderTranscript = "(Audio recorded - will be transcribed on processing)"
)

type RecordingState string

const (
	StateRecording RecordingState = "recording"
	StatePaused    RecordingState = "paused"
	StateStopped   RecordingState = "stopped"
)

var (
	ErrInvalidTransition = errors.New("invalid recording state transition")
	ErrNotRecording      = errors.New("recording is not active")
)

// Recording buffers audio for one live session. Frames are accepted only in
// StateRecording. Every method is safe for concurrent use and none of them
// waits on transcription.
type Recording struct {
	mu       sync.Mutex
	state    RecordingState
	buf      bytes.Buffer
	maxBytes int64
	name     string
	mimeType string

	now     func() time.Time
	resumed time.Time
	active  time.Duration
}

func NewRecording(maxBytes int64, mimeType string) *Recording {
	return newRecording(maxBytes, mimeType, time.Now)
}

func newRecording(maxBytes int64, mimeType string, now func() time.Time) *Recording {
	if maxBytes <= 0 {
		maxBytes = DefaultLiveMaxBytes
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	return &Recording{
		state:    StateRecording,
		maxBytes: maxBytes,
		name:     "recording" + extensionFor(mimeType),
		mimeType: mimeType,
		now:      now,
		resumed:  now(),
	}
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	case strings.Contains(mimeType, "mpeg"):
		return ".mp3"
	default:
		return ".webm"
	}
}

// Write appends an audio frame.
func (r *Recording) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return 0, ErrNotRecording
	}
	if int64(r.buf.Len()+len(p)) > r.maxBytes {
		return 0, apperr.New(apperr.KindFileTooLarge,
			fmt.Sprintf("Recording exceeds the %dMB limit", r.maxBytes/(1024*1024)))
	}
	return r.buf.Write(p)
}

func (r *Recording) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, StatePaused)
	}
	r.active += r.now().Sub(r.resumed)
	r.state = StatePaused
	return nil
}

func (r *Recording) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, StateRecording)
	}
	r.resumed = r.now()
	r.state = StateRecording
	return nil
}

// Stop ends the recording and hands back the buffered audio. It is valid
// from both recording and paused.
func (r *Recording) Stop() (models.AudioPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateStopped {
		return models.AudioPayload{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, StateStopped)
	}
	if r.state == StateRecording {
		r.active += r.now().Sub(r.resumed)
	}
	r.state = StateStopped

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.buf.Reset()

	return models.AudioPayload{
		Name:     r.name,
		MimeType: r.mimeType,
		Data:     data,
	}, nil
}

func (r *Recording) State() RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recording) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(r.buf.Len())
}

// Duration is the time spent in StateRecording.
func (r *Recording) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording {
		return r.active + r.now().Sub(r.resumed)
	}
	return r.active
}

// LiveResult is delivered once transcription of a stopped recording ends.
type LiveResult struct {
	Acquisition *models.Acquisition
	Placeholder bool
}

type Live struct {
	maxBytes    int64
	transcriber types.Transcriber
	logger      *zap.Logger
}

func NewLive(maxBytes int64, transcriber types.Transcriber, logger *zap.Logger) *Live {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{
		maxBytes:    maxBytes,
		transcriber: transcriber,
		logger:      logger,
	}
}

func (l *Live) Start(mimeType string) *Recording {
	return NewRecording(l.maxBytes, mimeType)
}

// Finish stops rec and transcribes its audio in the background. The channel
// yields exactly one result; an empty or failed transcription yields
// PlaceholderTranscript.
func (l *Live) Finish(ctx context.Context, rec *Recording) (<-chan LiveResult, error) {
	audio, err := rec.Stop()
	if err != nil {
		return nil, err
	}
	duration := rec.Duration()

	out := make(chan LiveResult, 1)
	go func() {
		defer close(out)

		transcript := ""
		if l.transcriber != nil && l.transcriber.IsAvailable() && audio.Size() > 0 {
			text, err := l.transcriber.Transcribe(ctx, audio)
			if err != nil {
				l.logger.Warn("live transcription failed", zap.Int64("audio_size", audio.Size()), zap.Error(err))
			}
			transcript = strings.TrimSpace(text)
		}

		placeholder := transcript == ""
		if placeholder {
			transcript = PlaceholderTranscript
		}

		out <- LiveResult{
			Acquisition: &models.Acquisition{
				Transcript: transcript,
				Source:     models.SourceLiveAudio,
				Metadata: map[string]interface{}{
					"audioSize":   audio.Size(),
					"duration":    duration.Seconds(),
					"placeholder": placeholder,
				},
			},
			Placeholder: placeholder,
		}
	}()

	return out, nil
}
