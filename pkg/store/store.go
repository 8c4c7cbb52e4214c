// Package store persists notes. Every read and delete is scoped to the
// owning user; a note owned by someone else is reported as not found.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/internal/types"
	"github.com/xhad/smartnotes/pkg/processor"
)

type StoreConfig struct {
	Driver    string // "postgres", "sqlite" or "memory"
	URL       string
	TableName string
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open returns the backend selected by config.Driver.
func Open(ctx context.Context, config StoreConfig) (types.NoteStore, error) {
	switch strings.ToLower(config.Driver) {
	case "", "memory":
		return NewMemory(), nil
	case "postgres", "postgresql":
		return NewPostgres(ctx, config)
	case "sqlite":
		return NewSQLite(ctx, config)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", config.Driver)
	}
}

func tableName(config StoreConfig) (string, error) {
	if config.TableName == "" {
		return "notes", nil
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return "", fmt.Errorf("invalid table name: %q", config.TableName)
	}
	return config.TableName, nil
}

// prepare copies note with a fresh id and timestamps and cleans its text
// fields.
func prepare(note *models.Note, now time.Time) (*models.Note, error) {
	if note == nil {
		return nil, apperr.Validation("note", "Note is required")
	}
	if note.UserID == "" {
		return nil, apperr.Unauthorized("")
	}
	if !note.Source.Valid() {
		return nil, apperr.Validation("source", "Invalid source")
	}

	n := *note
	n.ID = uuid.NewString()
	n.Title = processor.SanitizeUTF8(n.Title)
	n.Transcript = processor.SanitizeUTF8(n.Transcript)
	n.StructuredNotes = processor.SanitizeUTF8(n.StructuredNotes)
	n.MindmapData = sanitizeOptional(n.MindmapData)
	n.SourceURL = sanitizeOptional(n.SourceURL)
	n.FileName = sanitizeOptional(n.FileName)
	n.CreatedAt = now
	n.UpdatedAt = now
	return &n, nil
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	clean := processor.SanitizeUTF8(*s)
	return &clean
}

func notFound() error {
	return apperr.NotFound("Note")
}
