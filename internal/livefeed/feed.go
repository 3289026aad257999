package livefeed

import (
	"sync"

	"github.com/mirelio/echodesk/internal/models"
)

// Feed is a bounded, most-recent-first view of feedback snapshots. Pushed
// updates and fetched pages reconcile into it by id; for a given id the
// snapshot with the newer UpdatedAt wins, so replays and redeliveries are
// harmless.
type Feed struct {
	mu         sync.Mutex
	limit      int
	pinUnknown bool
	entries    []models.Feedback
}

// NewFeed returns a feed that retains at most limit entries.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit}
}

// SetPinUnknown controls what happens when a pushed update references an id
// the feed does not hold. When false (the default) the update is prepended as
// a new entry and the tail trimmed; when true it is dropped, keeping the feed
// a strict subset of what has been fetched.
func (f *Feed) SetPinUnknown(v bool) {
	f.mu.Lock()
	f.pinUnknown = v
	f.mu.Unlock()
}

// Apply merges one pushed snapshot. Applying the same snapshot twice is a
// no-op.
func (f *Feed) Apply(fb models.Feedback) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		if f.entries[i].ID == fb.ID {
			if !fb.UpdatedAt.Before(f.entries[i].UpdatedAt) {
				f.entries[i] = fb
			}
			return
		}
	}
	if f.pinUnknown {
		return
	}
	f.entries = append([]models.Feedback{fb}, f.entries...)
	f.trim()
}

// MergePage reconciles a fetched page into the feed. Page order wins for
// entries the page contains; per-entry, an in-feed snapshot newer than the
// page's copy is kept. Pushed entries the page does not contain stay at the
// front.
func (f *Feed) MergePage(page []models.Feedback) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := make(map[string]models.Feedback, len(f.entries))
	for _, e := range f.entries {
		current[e.ID] = e
	}

	merged := make([]models.Feedback, 0, len(page)+len(f.entries))
	inPage := make(map[string]bool, len(page))
	for _, p := range page {
		inPage[p.ID] = true
		if held, ok := current[p.ID]; ok && held.UpdatedAt.After(p.UpdatedAt) {
			merged = append(merged, held)
			continue
		}
		merged = append(merged, p)
	}

	var front []models.Feedback
	for _, e := range f.entries {
		if !inPage[e.ID] {
			front = append(front, e)
		}
	}

	f.entries = append(front, merged...)
	f.trim()
}

// Snapshot returns a copy of the feed, most recent first.
func (f *Feed) Snapshot() []models.Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Feedback, len(f.entries))
	copy(out, f.entries)
	return out
}

// Reset drops all entries.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
}

func (f *Feed) trim() {
	if len(f.entries) > f.limit {
		f.entries = f.entries[:f.limit]
	}
}
