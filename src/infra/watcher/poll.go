package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/watching"
)

// Ensure PollSource implements watching.ChangeSource
var _ watching.ChangeSource = (*PollSource)(nil)

// PollSource lists the directory tree on a fixed interval and reports every
// file it finds as observed. It backs scan mode and works on filesystems
// where inotify does not (NFS, CIFS, FUSE mounts).
type PollSource struct {
	spec     *config.WatchSpec
	interval time.Duration
	once     bool
	events   chan watching.FileEvent
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPollSource creates a listing-backed source. With once set the source
// emits a single listing and closes its channel.
func NewPollSource(spec *config.WatchSpec, interval time.Duration, once bool) *PollSource {
	return &PollSource{
		spec:     spec,
		interval: interval,
		once:     once,
		events:   make(chan watching.FileEvent, 256),
		stop:     make(chan struct{}),
	}
}

// Start begins listing. The first listing runs immediately.
func (s *PollSource) Start(ctx context.Context) (<-chan watching.FileEvent, error) {
	slog.Info("PollSource.Start: scanning", "path", s.spec.Path, "interval", s.interval, "once", s.once)
	go s.run(ctx)
	return s.events, nil
}

// Stop ends the listing loop.
func (s *PollSource) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *PollSource) run(ctx context.Context) {
	defer close(s.events)

	s.list(ctx)
	if s.once {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.list(ctx)
		}
	}
}

func (s *PollSource) list(ctx context.Context) {
	err := filepath.WalkDir(s.spec.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("PollSource.list: skipping entry", "error", err, "path", path)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != s.spec.Path && (!s.spec.Recursive || pathWithin(s.spec.ProcessedDir, path)) {
				return filepath.SkipDir
			}
			return nil
		}
		select {
		case s.events <- watching.FileEvent{Path: path, EventType: watching.FileObserved, Timestamp: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("PollSource.list: walk failed", "error", err, "path", s.spec.Path)
	}
}
