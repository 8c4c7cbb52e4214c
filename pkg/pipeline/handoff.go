// Package pipeline connects acquisition, review and generation: a
// single-slot handoff carries the transcript between stages and the
// orchestrator turns it into notes and a mindmap.
package pipeline

import (
	"sync"

	"github.com/xhad/smartnotes/internal/models"
)

// Handoff holds at most one pending acquisition. It is created per
// processing session and passed between stages explicitly.
type Handoff struct {
	mu      sync.Mutex
	pending *models.Acquisition
}

func NewHandoff() *Handoff {
	return &Handoff{}
}

// Put replaces whatever is pending.
func (h *Handoff) Put(acq models.Acquisition) {
	h.mu.Lock()
	defer h.mu.Unlock()

	acq.Metadata = copyMetadata(acq.Metadata)
	h.pending = &acq
}

// Take returns the pending acquisition and empties the slot.
func (h *Handoff) Take() (models.Acquisition, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending == nil {
		return models.Acquisition{}, false
	}
	acq := *h.pending
	h.pending = nil
	return acq, true
}

// Peek returns a copy of the pending acquisition without consuming it.
func (h *Handoff) Peek() (models.Acquisition, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending == nil {
		return models.Acquisition{}, false
	}
	acq := *h.pending
	acq.Metadata = copyMetadata(acq.Metadata)
	return acq, true
}

// Edit rewrites the pending transcript in place. It reports false when the
// slot is empty.
func (h *Handoff) Edit(fn func(transcript string) string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending == nil {
		return false
	}
	h.pending.Transcript = fn(h.pending.Transcript)
	return true
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
