package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/watching"
	"github.com/fsnotify/fsnotify"
)

// Ensure FsnotifySource implements watching.ChangeSource
var _ watching.ChangeSource = (*FsnotifySource)(nil)

// FsnotifySource delivers push notifications for one watched directory tree.
// On start it also walks the tree once and reports every existing file, so
// files dropped while the watcher was down are not lost.
type FsnotifySource struct {
	spec     *config.WatchSpec
	watcher  *fsnotify.Watcher
	events   chan watching.FileEvent
	stopOnce sync.Once
}

// NewFsnotifySource creates a push-backed source for the spec's directory.
func NewFsnotifySource(spec *config.WatchSpec) (*FsnotifySource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FsnotifySource{
		spec:    spec,
		watcher: watcher,
		events:  make(chan watching.FileEvent, 256),
	}, nil
}

// Start registers the directory tree with the OS watcher and begins
// delivering events. The initial catch-up walk runs before the event loop so
// pre-existing files are observed first.
func (s *FsnotifySource) Start(ctx context.Context) (<-chan watching.FileEvent, error) {
	if err := s.addTree(s.spec.Path); err != nil {
		s.watcher.Close()
		return nil, err
	}
	slog.Info("FsnotifySource.Start: watching", "path", s.spec.Path, "recursive", s.spec.Recursive)

	go s.run(ctx)
	return s.events, nil
}

// Stop closes the OS watcher, which in turn ends the event loop.
func (s *FsnotifySource) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		err = s.watcher.Close()
	})
	return err
}

func (s *FsnotifySource) run(ctx context.Context) {
	defer close(s.events)

	// Catch-up walk: files already on disk never produce Create events.
	s.walkExisting(ctx, s.spec.Path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("FsnotifySource.run: watcher error", "error", err, "path", s.spec.Path)
		}
	}
}

func (s *FsnotifySource) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// A directory moved in can already contain files; register it
			// and observe its contents.
			if s.spec.Recursive && !s.isSkipped(event.Name) {
				if err := s.addTree(event.Name); err != nil {
					slog.Error("FsnotifySource.handleEvent: failed to watch new directory", "error", err, "path", event.Name)
				}
				s.walkExisting(ctx, event.Name)
			}
			return
		}
		s.emit(ctx, event.Name, watching.FileCreated)
	case event.Op&fsnotify.Write != 0:
		s.emit(ctx, event.Name, watching.FileModified)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.emit(ctx, event.Name, watching.FileRemoved)
	}
}

func (s *FsnotifySource) emit(ctx context.Context, path string, eventType watching.FileEventType) {
	if s.isSkipped(path) {
		return
	}
	select {
	case s.events <- watching.FileEvent{Path: path, EventType: eventType, Timestamp: time.Now()}:
	case <-ctx.Done():
	}
}

// addTree registers path and, when recursion is on, every directory below it.
func (s *FsnotifySource) addTree(root string) error {
	if !s.spec.Recursive {
		return s.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if s.isSkipped(path) {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
}

// walkExisting reports every regular file currently under root as observed.
func (s *FsnotifySource) walkExisting(ctx context.Context, root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("FsnotifySource.walkExisting: skipping entry", "error", err, "path", path)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && (!s.spec.Recursive || s.isSkipped(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		s.emit(ctx, path, watching.FileObserved)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("FsnotifySource.walkExisting: walk failed", "error", err, "path", root)
	}
}

// isSkipped keeps the processed directory out of the watch when an operator
// nests it inside the watched tree.
func (s *FsnotifySource) isSkipped(path string) bool {
	return pathWithin(s.spec.ProcessedDir, path)
}

// pathWithin reports whether path is dir itself or somewhere below it.
func pathWithin(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
