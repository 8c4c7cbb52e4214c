package models

import "time"

// SourceKind identifies which acquisition path produced a transcript.
type SourceKind string

const (
	SourceLiveAudio  SourceKind = "live-audio"
	SourceYouTube    SourceKind = "youtube"
	SourceFileUpload SourceKind = "file-upload"
)

func (k SourceKind) Valid() bool {
	switch k {
	case SourceLiveAudio, SourceYouTube, SourceFileUpload:
		return true
	}
	return false
}

type Note struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Transcript      string     `json:"transcript"`
	StructuredNotes string     `json:"structuredNotes"`
	MindmapData     *string    `json:"mindmapData,omitempty"`
	Source          SourceKind `json:"source"`
	SourceURL       *string    `json:"sourceUrl,omitempty"`
	FileName        *string    `json:"fileName,omitempty"`
	UserID          string     `json:"userId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NoteSummary is the listing view of a Note; transcript and generated
// content are left out.
type NoteSummary struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Source    SourceKind `json:"source"`
	SourceURL *string    `json:"sourceUrl,omitempty"`
	FileName  *string    `json:"fileName,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (n *Note) Summary() NoteSummary {
	return NoteSummary{
		ID:        n.ID,
		Title:     n.Title,
		Source:    n.Source,
		SourceURL: n.SourceURL,
		FileName:  n.FileName,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
