package watching

import (
	"sync"
	"time"
)

// PendingFile tracks one candidate path between first observation and
// import decision. It is owned exclusively by the Tracker of one WatchSpec.
type PendingFile struct {
	Path               string
	FirstSeen          time.Time
	Size               int64
	ModTime            time.Time
	StableObservations int
	LastChange         time.Time
	Retries            int
}

// Tracker is the per-WatchSpec stability state machine. A path advances
// monotonically from observed to ready; a path that vanishes or becomes
// ineligible is discarded and, if it reappears, starts over with a fresh
// observation count. The tracker does no I/O: callers feed it stat results.
type Tracker struct {
	window  time.Duration
	mu      sync.Mutex
	entries map[string]*PendingFile
}

// NewTracker creates a Tracker with the given debounce window.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		entries: make(map[string]*PendingFile),
	}
}

// Observe records one sighting of path with its current size and mtime.
// A new path starts tracking; a known path either bumps its stable count
// (unchanged) or resets its quiet window (changed).
func (t *Tracker) Observe(path string, size int64, modTime, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[path]
	if !ok {
		t.entries[path] = &PendingFile{
			Path:       path,
			FirstSeen:  now,
			Size:       size,
			ModTime:    modTime,
			LastChange: now,
		}
		return
	}

	if entry.Size == size && entry.ModTime.Equal(modTime) {
		entry.StableObservations++
		return
	}
	entry.Size = size
	entry.ModTime = modTime
	entry.StableObservations = 0
	entry.LastChange = now
}

// Invalidate discards a tracked path with no further action.
func (t *Tracker) Invalidate(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, path)
}

// Requeue puts a path back under tracking after a transient import
// failure, preserving the spent retry count. The quiet window restarts so
// the next attempt waits out another debounce period.
func (t *Tracker) Requeue(path string, retries int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[path] = &PendingFile{
		Path:       path,
		FirstSeen:  now,
		LastChange: now,
		Retries:    retries,
	}
}

// Collect removes and returns every tracked path whose quiet window has
// elapsed: no size/mtime change for at least the debounce window. The
// transition is time based so irregular event or poll intervals cannot
// starve an idle file.
func (t *Tracker) Collect(now time.Time) []*PendingFile {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ready []*PendingFile
	for path, entry := range t.entries {
		if now.Sub(entry.LastChange) >= t.window {
			ready = append(ready, entry)
			delete(t.entries, path)
		}
	}
	return ready
}

// Paths returns the currently tracked paths, for the periodic re-stat tick.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.entries))
	for path := range t.entries {
		paths = append(paths, path)
	}
	return paths
}

// Len returns the number of tracked paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
