package watching

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/importing"
	"github.com/denniswebb/mediacms/src/features/metrics"
	"golang.org/x/sync/errgroup"
)

// Mode selects how a watcher obtains its observations.
type Mode string

const (
	// ModeContinuous consumes push notifications plus a periodic re-stat tick.
	ModeContinuous Mode = "continuous"
	// ModeScan takes full directory listings at a fixed interval.
	ModeScan Mode = "scan"
)

// Options are the per-invocation switches from the CLI.
type Options struct {
	Mode   Mode
	Once   bool // scan mode: one listing, drain the pipeline, exit
	DryRun bool // full pipeline except sink call and ledger commit
	Force  bool // bypass dedup for this run
}

// SourceFactory builds a ChangeSource for one WatchSpec in the given mode.
type SourceFactory func(spec *config.WatchSpec, mode Mode, once bool, interval time.Duration) (ChangeSource, error)

// Status is a point-in-time snapshot of one runner, for the status server.
type Status struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Pending    int    `json:"pending"`
	Imported   int64  `json:"imported"`
	Duplicates int64  `json:"duplicates"`
	Failed     int64  `json:"failed"`
}

// Service runs one independent watcher per WatchSpec. Watchers share the
// bounded import worker pool and the ledger, nothing else; per-path
// pending state is owned by each runner's Tracker.
type Service struct {
	config   *config.Manager
	importer *importing.Importer
	recorder *metrics.Recorder
	sources  SourceFactory

	mu      sync.Mutex
	runners []*runner
}

// NewService creates the watcher service. recorder may be nil.
func NewService(cfg *config.Manager, importer *importing.Importer, recorder *metrics.Recorder, sources SourceFactory) *Service {
	return &Service{
		config:   cfg,
		importer: importer,
		recorder: recorder,
		sources:  sources,
	}
}

// Run validates the environment, starts one runner per valid WatchSpec and
// blocks until the context is cancelled (continuous mode) or every runner
// drained its single pass (scan --once). Invalid specs are reported and
// skipped; the remaining specs still run.
func (s *Service) Run(ctx context.Context, opts Options) error {
	report := s.config.ValidateEnvironment()
	for _, cfgErr := range report.Errors {
		slog.Error("Service.Run: skipping invalid watch directory", "error", cfgErr)
	}
	for _, warning := range report.Warnings {
		slog.Warn("Service.Run: " + warning)
	}
	if len(report.Valid) == 0 {
		return fmt.Errorf("no valid watch directories to run")
	}

	importCfg := s.config.Get().Import
	pool := pond.NewPool(importCfg.Workers())

	group, groupCtx := errgroup.WithContext(ctx)
	for idx := range report.Valid {
		spec := report.Valid[idx]
		source, err := s.sources(&spec, opts.Mode, opts.Once, importCfg.ScanInterval())
		if err != nil {
			return fmt.Errorf("failed to create change source for %s: %w", spec.Path, err)
		}

		r := &runner{
			spec:     spec,
			opts:     opts,
			tracker:  NewTracker(importCfg.DebounceWindow()),
			importer: s.importer,
			recorder: s.recorder,
			source:   source,
			pool:     pool,
			decided:  make(map[string]importing.Outcome),
		}
		r.matcher = NewMatcher(&r.spec, importCfg.MaxFileSize)
		s.mu.Lock()
		s.runners = append(s.runners, r)
		s.mu.Unlock()

		group.Go(func() error { return r.run(groupCtx) })
		slog.Info("Service.Run: watcher started", "path", spec.Path, "recursive", spec.Recursive, "mode", opts.Mode)
	}

	err := group.Wait()
	// Let in-flight imports commit before reporting shutdown; tasks run on
	// a non-cancellable context so no commit is interrupted midway.
	pool.StopAndWait()
	slog.Info("Service.Run: all watchers stopped")
	return err
}

// StatusSnapshot reports the current state of every runner.
func (s *Service) StatusSnapshot() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.runners))
	for _, r := range s.runners {
		out = append(out, Status{
			Name:       r.spec.Name,
			Path:       r.spec.Path,
			Pending:    r.tracker.Len(),
			Imported:   r.imported.Load(),
			Duplicates: r.duplicates.Load(),
			Failed:     r.failed.Load(),
		})
	}
	return out
}

// tickInterval is how often runners re-stat tracked paths. An idle file
// receives no further events, so window expiry must be driven by the tick.
const tickInterval = time.Second

type runner struct {
	spec     config.WatchSpec
	opts     Options
	matcher  *Matcher
	tracker  *Tracker
	importer *importing.Importer
	recorder *metrics.Recorder
	source   ChangeSource
	pool     pond.Pool

	decidedMu sync.Mutex
	decided   map[string]importing.Outcome
	lastSweep time.Time
	inflight  atomic.Int64

	imported   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

func (r *runner) run(ctx context.Context) error {
	events, err := r.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("change source for %s failed to start: %w", r.spec.Path, err)
	}
	defer r.source.Stop()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("runner: shutting down", "path", r.spec.Path)
			return nil

		case event, ok := <-events:
			if !ok {
				// Single-pass source exhausted; keep ticking until every
				// pending file is decided, then exit.
				events = nil
				continue
			}
			r.handleEvent(event)

		case now := <-ticker.C:
			r.tick(ctx, now)
			r.recorder.SetPending(r.tracker.Len())
			if events == nil && r.tracker.Len() == 0 && r.inflight.Load() == 0 {
				slog.Info("runner: single pass complete", "path", r.spec.Path)
				return nil
			}
		}
	}
}

// handleEvent feeds one filesystem event into stability tracking. Event
// handling stays cheap so the notification source is always drained; the
// heavy work happens on the worker pool.
func (r *runner) handleEvent(event FileEvent) {
	if event.EventType == FileRemoved {
		r.tracker.Invalidate(event.Path)
		r.forgetDecided(event.Path)
		return
	}
	if r.isDecided(event.Path) {
		return
	}
	info, ok, _ := r.matcher.Accept(event.Path)
	if !ok {
		r.recorder.FileRejected()
		return
	}
	r.recorder.FileObserved()
	r.tracker.Observe(event.Path, info.Size(), info.ModTime(), time.Now())
}

// tick re-stats every tracked path so idle files advance toward Ready and
// vanished files drop out, then dispatches everything whose quiet window
// has elapsed.
func (r *runner) tick(ctx context.Context, now time.Time) {
	for _, path := range r.tracker.Paths() {
		info, ok, _ := r.matcher.Accept(path)
		if !ok {
			r.tracker.Invalidate(path)
			continue
		}
		r.tracker.Observe(path, info.Size(), info.ModTime(), now)
	}

	for _, pending := range r.tracker.Collect(now) {
		r.dispatch(ctx, pending)
	}

	if now.Sub(r.lastSweep) >= decidedSweepInterval {
		r.lastSweep = now
		r.sweepDecided()
	}
}

// decidedSweepInterval bounds how often decided paths are re-checked for
// existence. Poll sources never report removals, so without the sweep the
// decided set would grow for the life of a long-running watch.
const decidedSweepInterval = time.Minute

// sweepDecided drops decisions for paths that no longer exist. A file that
// reappears at the same path gets a fresh look; the ledger still deduplicates
// its content.
func (r *runner) sweepDecided() {
	r.decidedMu.Lock()
	paths := make([]string, 0, len(r.decided))
	for path := range r.decided {
		paths = append(paths, path)
	}
	r.decidedMu.Unlock()

	for _, path := range paths {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			r.forgetDecided(path)
		}
	}
}

func (r *runner) forgetDecided(path string) {
	r.decidedMu.Lock()
	delete(r.decided, path)
	r.decidedMu.Unlock()
}

// dispatch hands one ready file to the import pool. The task runs on a
// non-cancellable context so a shutdown signal never interrupts a ledger
// commit midway; the pool's StopAndWait gives the task time to finish.
func (r *runner) dispatch(ctx context.Context, pending *PendingFile) {
	importCtx := context.WithoutCancel(ctx)
	r.inflight.Add(1)
	r.pool.Submit(func() {
		defer r.inflight.Add(-1)

		result, err := r.importer.Import(importCtx, importing.Request{
			Path:    pending.Path,
			Spec:    &r.spec,
			Retries: pending.Retries,
			DryRun:  r.opts.DryRun,
			Force:   r.opts.Force,
		})
		if err != nil {
			// Ledger durability failure: fatal for this attempt, loud, and
			// the path stays undecided so a later observation can retry.
			slog.Error("runner: import attempt failed", "path", pending.Path, "error", err)
			return
		}
		if result.Transient {
			r.tracker.Requeue(pending.Path, pending.Retries+1, time.Now())
			return
		}
		if result.Record != nil {
			r.markDecided(pending.Path, result.Record.Outcome)
		}
	})
}

func (r *runner) markDecided(path string, outcome importing.Outcome) {
	r.decidedMu.Lock()
	r.decided[path] = outcome
	r.decidedMu.Unlock()

	switch outcome {
	case importing.OutcomeImported:
		r.imported.Add(1)
	case importing.OutcomeDuplicate:
		r.duplicates.Add(1)
	case importing.OutcomeFailed:
		r.failed.Add(1)
	}
}

func (r *runner) isDecided(path string) bool {
	r.decidedMu.Lock()
	defer r.decidedMu.Unlock()
	_, ok := r.decided[path]
	return ok
}
