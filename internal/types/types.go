package types

import (
	"context"

	"github.com/xhad/smartnotes/internal/models"
)

// Core interfaces
type NoteStore interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	Get(ctx context.Context, id, ownerID string) (*models.Note, error)
	Delete(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, ownerID string) ([]models.NoteSummary, error)
	Close()
}

type Generator interface {
	GenerateNotes(ctx context.Context, transcript string) (string, error)
	GenerateMindmap(ctx context.Context, transcript string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio models.AudioPayload) (string, error)
	IsAvailable() bool
	Name() string
}

type CaptionSource interface {
	Video(ctx context.Context, videoID string) (*models.VideoInfo, error)
	Captions(ctx context.Context, track models.CaptionTrack) ([]models.CaptionSegment, error)
}
