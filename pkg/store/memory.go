package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xhad/smartnotes/internal/models"
)

type memoryEntry struct {
	note models.Note
	seq  uint64
}

// Memory keeps notes in process. It backs tests and single-node demos.
type Memory struct {
	mu    sync.RWMutex
	notes map[string]memoryEntry
	seq   uint64
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		notes: make(map[string]memoryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	n, err := prepare(note, m.now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.notes[n.ID] = memoryEntry{note: *n, seq: m.seq}
	out := *n
	return &out, nil
}

func (m *Memory) Get(ctx context.Context, id, ownerID string) (*models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.notes[id]
	if !ok || entry.note.UserID != ownerID {
		return nil, notFound()
	}
	out := entry.note
	return &out, nil
}

func (m *Memory) Delete(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.notes[id]
	if !ok || entry.note.UserID != ownerID {
		return notFound()
	}
	delete(m.notes, id)
	return nil
}

// List returns the owner's notes, newest first.
func (m *Memory) List(ctx context.Context, ownerID string) ([]models.NoteSummary, error) {
	m.mu.RLock()
	entries := make([]memoryEntry, 0)
	for _, entry := range m.notes {
		if entry.note.UserID == ownerID {
			entries = append(entries, entry)
		}
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.NoteSummary, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].note.Summary())
	}
	return out, nil
}

func (m *Memory) Close() {}
