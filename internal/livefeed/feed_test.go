package livefeed

import (
	"testing"
	"time"

	"github.com/mirelio/echodesk/internal/models"
)

func fb(id string, updated time.Time, status models.ProcessingStatus) models.Feedback {
	return models.Feedback{ID: id, ProcessingStatus: status, UpdatedAt: updated}
}

func ids(entries []models.Feedback) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestApplyReplacesInPlace(t *testing.T) {
	f := NewFeed(10)
	t0 := time.Now()

	f.Apply(fb("a", t0, models.StatusProcessing))
	f.Apply(fb("b", t0, models.StatusProcessing))
	f.Apply(fb("a", t0.Add(time.Second), models.StatusCompleted))

	got := f.Snapshot()
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	// position is preserved, only content is replaced
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("order = %v", ids(got))
	}
	if got[1].ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s", got[1].ProcessingStatus)
	}
}

func TestApplyStaleSnapshotLoses(t *testing.T) {
	f := NewFeed(10)
	t0 := time.Now()

	f.Apply(fb("a", t0.Add(time.Minute), models.StatusCompleted))
	f.Apply(fb("a", t0, models.StatusProcessing))

	got := f.Snapshot()
	if got[0].ProcessingStatus != models.StatusCompleted {
		t.Errorf("stale snapshot overwrote newer entry: %s", got[0].ProcessingStatus)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	f := NewFeed(10)
	snap := fb("a", time.Now(), models.StatusProcessing)

	f.Apply(snap)
	f.Apply(snap)

	if got := f.Snapshot(); len(got) != 1 {
		t.Errorf("len = %d after duplicate apply", len(got))
	}
}

func TestApplyUnknownPrependsAndTrims(t *testing.T) {
	f := NewFeed(2)
	t0 := time.Now()

	f.Apply(fb("a", t0, models.StatusProcessing))
	f.Apply(fb("b", t0, models.StatusProcessing))
	f.Apply(fb("c", t0, models.StatusProcessing))

	got := f.Snapshot()
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("entries = %v", ids(got))
	}
}

func TestApplyUnknownDroppedWhenPinned(t *testing.T) {
	f := NewFeed(10)
	f.SetPinUnknown(true)
	t0 := time.Now()

	f.Apply(fb("a", t0, models.StatusProcessing))
	if got := f.Snapshot(); len(got) != 0 {
		t.Errorf("unknown id admitted while pinned: %v", ids(got))
	}

	f.MergePage([]models.Feedback{fb("a", t0, models.StatusProcessing)})
	f.Apply(fb("a", t0.Add(time.Second), models.StatusCompleted))
	got := f.Snapshot()
	if len(got) != 1 || got[0].ProcessingStatus != models.StatusCompleted {
		t.Errorf("known id not updated while pinned: %v", got)
	}
}

func TestMergePageKeepsNewerHeldSnapshots(t *testing.T) {
	f := NewFeed(10)
	t0 := time.Now()

	f.MergePage([]models.Feedback{fb("a", t0, models.StatusProcessing)})
	f.Apply(fb("a", t0.Add(time.Second), models.StatusCompleted))

	// a page refetch still carries the stale copy
	f.MergePage([]models.Feedback{fb("a", t0, models.StatusProcessing)})

	got := f.Snapshot()
	if got[0].ProcessingStatus != models.StatusCompleted {
		t.Errorf("page merge rolled back a newer snapshot: %s", got[0].ProcessingStatus)
	}
}

func TestMergePageRetainsPushedEntriesAtFront(t *testing.T) {
	f := NewFeed(10)
	t0 := time.Now()

	f.Apply(fb("pushed", t0.Add(time.Second), models.StatusProcessing))
	f.MergePage([]models.Feedback{
		fb("a", t0, models.StatusCompleted),
		fb("b", t0, models.StatusCompleted),
	})

	got := ids(f.Snapshot())
	want := []string{"pushed", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries = %v, want %v", got, want)
			break
		}
	}
}

func TestMergePageDeduplicates(t *testing.T) {
	f := NewFeed(10)
	t0 := time.Now()

	page := []models.Feedback{fb("a", t0, models.StatusCompleted), fb("b", t0, models.StatusCompleted)}
	f.MergePage(page)
	f.MergePage(page)

	if got := f.Snapshot(); len(got) != 2 {
		t.Errorf("len = %d after repeated merge", len(got))
	}
}

func TestMergePageTrims(t *testing.T) {
	f := NewFeed(2)
	t0 := time.Now()

	f.MergePage([]models.Feedback{
		fb("a", t0, models.StatusCompleted),
		fb("b", t0, models.StatusCompleted),
		fb("c", t0, models.StatusCompleted),
	})

	got := ids(f.Snapshot())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("entries = %v", got)
	}
}

func TestReset(t *testing.T) {
	f := NewFeed(10)
	f.Apply(fb("a", time.Now(), models.StatusProcessing))
	f.Reset()
	if got := f.Snapshot(); len(got) != 0 {
		t.Errorf("entries = %v after reset", ids(got))
	}
}
