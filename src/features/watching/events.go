package watching

import (
	"context"
	"time"
)

// FileEventType represents the type of file system event.
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileModified FileEventType = "modified"
	FileRemoved  FileEventType = "removed"
	// FileObserved is emitted by poll-backed sources: the file is present
	// on disk right now, with no claim about what changed.
	FileObserved FileEventType = "observed"
)

// FileEvent represents a file system event.
type FileEvent struct {
	Path      string
	EventType FileEventType
	Timestamp time.Time
}

// ChangeSource feeds a watcher runner with filesystem change events for one
// directory tree. Push-notification and poll-backed implementations exist;
// the poll source doubles as the self-healing fallback when push events are
// dropped under burst load.
type ChangeSource interface {
	// Start begins delivering events. The channel closes when the source
	// is exhausted (single-pass listing) or stopped.
	Start(ctx context.Context) (<-chan FileEvent, error)
	// Stop releases any OS resources held by the source.
	Stop() error
}
