package watching

import (
	"testing"
	"time"
)

func TestTrackerCollectsOnlyQuietFiles(t *testing.T) {
	window := 5 * time.Second
	tr := NewTracker(window)
	start := time.Now()
	mtime := start.Add(-time.Minute)

	tr.Observe("/in/a.mp4", 100, mtime, start)
	tr.Observe("/in/b.mp4", 200, mtime, start.Add(3*time.Second))

	ready := tr.Collect(start.Add(5 * time.Second))
	if len(ready) != 1 || ready[0].Path != "/in/a.mp4" {
		t.Fatalf("expected only the quiet file, got %v", ready)
	}
	if tr.Len() != 1 {
		t.Errorf("expected one file still tracked, got %d", tr.Len())
	}
}

func TestTrackerChangeResetsQuietWindow(t *testing.T) {
	window := 5 * time.Second
	tr := NewTracker(window)
	start := time.Now()

	tr.Observe("/in/a.mp4", 100, start, start)
	// The file grows 4 seconds in; the window restarts from there.
	tr.Observe("/in/a.mp4", 150, start.Add(4*time.Second), start.Add(4*time.Second))

	if ready := tr.Collect(start.Add(5 * time.Second)); len(ready) != 0 {
		t.Fatalf("expected no ready files 1s after a change, got %v", ready)
	}
	ready := tr.Collect(start.Add(9 * time.Second))
	if len(ready) != 1 {
		t.Fatalf("expected the file after a fresh full window, got %v", ready)
	}
	if ready[0].Size != 150 {
		t.Errorf("expected last observed size, got %d", ready[0].Size)
	}
}

func TestTrackerUnchangedObservationBumpsStableCount(t *testing.T) {
	tr := NewTracker(5 * time.Second)
	start := time.Now()
	mtime := start.Add(-time.Minute)

	tr.Observe("/in/a.mp4", 100, mtime, start)
	tr.Observe("/in/a.mp4", 100, mtime, start.Add(time.Second))
	tr.Observe("/in/a.mp4", 100, mtime, start.Add(2*time.Second))

	ready := tr.Collect(start.Add(5 * time.Second))
	if len(ready) != 1 {
		t.Fatalf("expected one ready file, got %v", ready)
	}
	if ready[0].StableObservations != 2 {
		t.Errorf("expected 2 stable observations, got %d", ready[0].StableObservations)
	}
}

func TestTrackerInvalidateDiscards(t *testing.T) {
	tr := NewTracker(time.Second)
	start := time.Now()

	tr.Observe("/in/a.mp4", 100, start, start)
	tr.Invalidate("/in/a.mp4")

	if ready := tr.Collect(start.Add(time.Minute)); len(ready) != 0 {
		t.Errorf("expected nothing after invalidation, got %v", ready)
	}

	// Reappearance starts over.
	tr.Observe("/in/a.mp4", 100, start, start.Add(time.Minute))
	ready := tr.Collect(start.Add(time.Minute + time.Second))
	if len(ready) != 1 || ready[0].StableObservations != 0 {
		t.Errorf("expected a fresh entry after reappearance, got %v", ready)
	}
}

func TestTrackerRequeuePreservesRetries(t *testing.T) {
	window := 5 * time.Second
	tr := NewTracker(window)
	start := time.Now()

	tr.Requeue("/in/a.mp4", 2, start)

	if ready := tr.Collect(start.Add(time.Second)); len(ready) != 0 {
		t.Fatal("expected requeued file to wait out a fresh window")
	}
	ready := tr.Collect(start.Add(window))
	if len(ready) != 1 {
		t.Fatalf("expected requeued file after the window, got %v", ready)
	}
	if ready[0].Retries != 2 {
		t.Errorf("expected preserved retry count, got %d", ready[0].Retries)
	}
}

func TestTrackerPaths(t *testing.T) {
	tr := NewTracker(time.Second)
	now := time.Now()
	tr.Observe("/in/a.mp4", 100, now, now)
	tr.Observe("/in/b.mp4", 200, now, now)

	paths := tr.Paths()
	if len(paths) != 2 {
		t.Errorf("expected 2 tracked paths, got %v", paths)
	}
}
