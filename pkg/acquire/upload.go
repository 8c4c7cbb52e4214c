package acquire

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/internal/types"
	"go.uber.org/zap"
)

const DefaultUploadMaxBytes = 25 * 1024 * 1024

var (
	DefaultAllowedTypes = []string{
		"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/mp4",
		"audio/m4a", "audio/x-m4a", "audio/webm", "audio/ogg",
		"video/mp4", "video/avi", "video/x-msvideo", "video/x-matroska",
		"video/webm", "video/quicktime",
	}
	DefaultAllowedExtensions = []string{".mp3", ".wav", ".m4a", ".mp4", ".avi", ".mkv", ".webm", ".ogg", ".mov"}
)

type UploadConfig struct {
	MaxBytes          int64
	AllowedTypes      []string
	AllowedExtensions []string
}

type Upload struct {
	config      UploadConfig
	mimeTypes   map[string]bool
	extensions  map[string]bool
	transcriber types.Transcriber
	logger      *zap.Logger
}

// NewUpload builds the file-upload acquirer. transcriber may be nil, in which
// case every upload gets the fallback transcript.
func NewUpload(config UploadConfig, transcriber types.Transcriber, logger *zap.Logger) *Upload {
	if config.MaxBytes == 0 {
		config.MaxBytes = DefaultUploadMaxBytes
	}
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = DefaultAllowedTypes
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = DefaultAllowedExtensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	u := &Upload{
		config:      config,
		mimeTypes:   make(map[string]bool, len(config.AllowedTypes)),
		extensions:  make(map[string]bool, len(config.AllowedExtensions)),
		transcriber: transcriber,
		logger:      logger,
	}
	for _, t := range config.AllowedTypes {
		u.mimeTypes[strings.ToLower(t)] = true
	}
	for _, ext := range config.AllowedExtensions {
		u.extensions[strings.ToLower(ext)] = true
	}
	return u
}

func (u *Upload) MaxBytes() int64 {
	return u.config.MaxBytes
}

// Validate checks size first, then format. A file passes the format check
// when either its MIME type or its extension is allowed.
func (u *Upload) Validate(name, mimeType string, size int64) error {
	if size > u.config.MaxBytes {
		return apperr.New(apperr.KindFileTooLarge,
			fmt.Sprintf("File is too large. Please upload a file smaller than %dMB.", u.config.MaxBytes/(1024*1024)))
	}
	if u.allowedType(mimeType) || u.extensions[strings.ToLower(filepath.Ext(name))] {
		return nil
	}
	return apperr.New(apperr.KindUnsupportedFormat,
		"Unsupported file type. Please upload audio (MP3, WAV, M4A, OGG, WEBM) or video (MP4, AVI, MKV, MOV) files.")
}

func (u *Upload) allowedType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = mimeType
	}
	return u.mimeTypes[strings.ToLower(mediaType)]
}

// Acquire validates the payload and transcribes it. Provider absence or
// failure still succeeds with FallbackTranscript.
func (u *Upload) Acquire(ctx context.Context, audio models.AudioPayload) (*models.Acquisition, error) {
	if err := u.Validate(audio.Name, audio.MimeType, audio.Size()); err != nil {
		return nil, err
	}

	log := u.logger.With(
		zap.String("file_name", audio.Name),
		zap.Int64("file_size", audio.Size()),
		zap.String("file_type", audio.MimeType))

	transcript := ""
	switch {
	case u.transcriber == nil || !u.transcriber.IsAvailable():
		log.Info("no transcription provider configured; using fallback transcript")
	default:
		text, err := u.transcriber.Transcribe(ctx, audio)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("transcription failed; using fallback transcript",
				zap.String("provider", u.transcriber.Name()), zap.Error(err))
		} else {
			transcript = strings.TrimSpace(text)
			log.Info("transcription completed", zap.Int("chars", len(transcript)))
		}
	}

	if transcript == "" {
		transcript = FallbackTranscript(audio.Name, audio.MimeType, audio.Size())
	}

	metadata := map[string]interface{}{
		"fileName": audio.Name,
		"fileSize": audio.Size(),
		"fileType": audio.MimeType,
	}
	for key, value := range audioTags(audio.Data) {
		metadata[key] = value
	}

	return &models.Acquisition{
		Transcript: transcript,
		Source:     models.SourceFileUpload,
		Metadata:   metadata,
	}, nil
}

// audioTags reads embedded ID3, MP4, FLAC or Ogg tags. Files without tags
// yield nil.
func audioTags(data []byte) map[string]string {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	tags := map[string]string{}
	for key, value := range map[string]string{
		"audioTitle":  m.Title(),
		"audioArtist": m.Artist(),
		"audioAlbum":  m.Album(),
	} {
		if value = strings.TrimSpace(value); value != "" {
			tags[key] = value
		}
	}
	return tags
}

// FallbackTranscript describes an upload that could not be transcribed. The
// output depends only on its arguments.
func FallbackTranscript(name, mimeType string, size int64) string {
	mb := float64(size) / 1024 / 1024
	return fmt.Sprintf(`Transcript unavailable for the uploaded file: %s

The file was received and holds %.2f MB of audio/video content, but no speech-to-text provider could transcribe it. Configure a transcription API key to enable full transcription, or edit this text before generating notes.

File details:
- Name: %s
- Size: %.2f MB
- Type: %s`, name, mb, name, mb, mimeType)
}
