package importing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/metrics"
	"github.com/denniswebb/mediacms/src/media"
)

// Request describes one ready file the watcher hands to the Importer.
type Request struct {
	Path    string
	Spec    *config.WatchSpec
	Retries int // transient failures already spent on this path
	DryRun  bool
	Force   bool
}

// Result is the decision the Importer reached for one Request.
type Result struct {
	Record *ImportRecord
	// Transient asks the caller to put the path back into stability
	// tracking and try again next cycle, with the retry counter bumped.
	Transient bool
}

// Importer performs the idempotent ingest transaction: revalidate,
// fingerprint, dedup check, sink hand-off, ledger commit, post-import
// file policy.
type Importer struct {
	ledger        Ledger
	fingerprinter Fingerprinter
	sink          media.Sink
	relocator     Relocator
	notifier      Notifier
	metrics       *metrics.Recorder
	config        *config.Manager
}

// NewImporter creates a new Importer. notifier and recorder may be nil.
func NewImporter(ledger Ledger, fp Fingerprinter, sink media.Sink, relocator Relocator, notifier Notifier, recorder *metrics.Recorder, cfg *config.Manager) *Importer {
	return &Importer{
		ledger:        ledger,
		fingerprinter: fp,
		sink:          sink,
		relocator:     relocator,
		notifier:      notifier,
		metrics:       recorder,
		config:        cfg,
	}
}

// Import runs the ingest transaction for one ready file. Errors are only
// returned for ledger durability failures; everything else resolves to a
// Result carrying either a terminal record or a retry request.
func (i *Importer) Import(ctx context.Context, req Request) (*Result, error) {
	logger := slog.With("path", req.Path, "watch", req.Spec.Name)

	// The file may have changed between Ready and now; a file that went
	// away or became ineligible is dropped without a ledger record so a
	// reappearing file can be retried cleanly.
	size, err := i.revalidate(req.Path, req.Spec)
	if err != nil {
		logger.Info("Importer.Import: file no longer eligible, dropping", "reason", err)
		return &Result{}, nil
	}

	fingerprint, err := i.fingerprinter.Fingerprint(ctx, req.Path)
	if err != nil {
		return i.handleTransient(ctx, req, size, fmt.Errorf("fingerprint failed: %w", err), logger)
	}
	logger = logger.With("fingerprint", fingerprint)

	scope := req.Spec.Scope(i.config.Get().Import.DedupScope)

	if !req.Force {
		existing, err := i.ledger.FindImported(ctx, fingerprint, scope)
		if err != nil {
			i.metrics.LedgerError()
			return nil, err
		}
		if existing != nil {
			return i.handleDuplicate(ctx, req, fingerprint, scope, size, existing, logger)
		}
	}

	if req.DryRun {
		logger.Info("Importer.Import: would import file", "dry_run", true, "scope", scope)
		return &Result{Record: &ImportRecord{
			Fingerprint: fingerprint,
			Scope:       scope,
			SourcePath:  req.Path,
			Size:        size,
			Outcome:     OutcomeImported,
			Detail:      "dry-run",
		}}, nil
	}

	attempt, err := i.ledger.BeginAttempt(ctx, fingerprint, req.Path, scope, size, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyImported):
			// Lost the race to a concurrent attempt with identical content.
			existing, ferr := i.ledger.FindImported(ctx, fingerprint, scope)
			if ferr != nil {
				i.metrics.LedgerError()
				return nil, ferr
			}
			if existing == nil {
				// The winning record disappeared between the claim and the
				// lookup, likely superseded by a concurrent force. Requeue
				// and let the next attempt settle it.
				logger.Debug("Importer.Import: imported record vanished after claim, requeueing")
				return &Result{Transient: true}, nil
			}
			return i.handleDuplicate(ctx, req, fingerprint, scope, size, existing, logger)
		case errors.Is(err, ErrAttemptInFlight):
			// Another worker owns this fingerprint right now. Come back
			// once its outcome is on the ledger.
			logger.Debug("Importer.Import: attempt in flight elsewhere, requeueing")
			return &Result{Transient: true}, nil
		default:
			i.metrics.LedgerError()
			return nil, err
		}
	}

	mediaID, sinkErr := i.createMedia(ctx, req)
	if sinkErr != nil {
		i.metrics.SinkError()
		reason := fmt.Sprintf("sink error: %v", sinkErr)
		logger.Error("Importer.Import: sink rejected file", "error", sinkErr)
		if err := i.ledger.Commit(ctx, attempt, OutcomeFailed, reason, ""); err != nil {
			i.metrics.LedgerError()
			return nil, err
		}
		i.finish(ctx, attempt.Record, logger)
		return &Result{Record: attempt.Record}, nil
	}

	if err := i.ledger.Commit(ctx, attempt, OutcomeImported, "", string(mediaID)); err != nil {
		// The sink stored the file but the commit failed. Surfacing this
		// loudly beats silently risking a double import.
		i.metrics.LedgerError()
		return nil, err
	}
	logger.Info("Importer.Import: file imported", "media_id", mediaID, "size", size)

	i.applyPolicy(ctx, req.Path, req.Spec, false, logger)
	i.finish(ctx, attempt.Record, logger)
	return &Result{Record: attempt.Record}, nil
}

// revalidate re-checks eligibility at import time: existence, regular
// file, non-empty, within the size bound, extension still allowed.
func (i *Importer) revalidate(path string, spec *config.WatchSpec) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat failed: %w", err)
	}
	if info.IsDir() {
		return 0, errors.New("path is a directory")
	}
	if info.Size() == 0 {
		return 0, errors.New("file is empty")
	}
	if max := i.config.Get().Import.MaxFileSize; max > 0 && info.Size() > max {
		return 0, fmt.Errorf("file exceeds maximum size (%d bytes)", info.Size())
	}
	if !spec.AllowsExtension(filepath.Ext(path)) {
		return 0, errors.New("extension no longer allowed")
	}
	return info.Size(), nil
}

// handleTransient either requeues the file or, once the retry budget is
// spent, records a terminal failure.
func (i *Importer) handleTransient(ctx context.Context, req Request, size int64, cause error, logger *slog.Logger) (*Result, error) {
	maxRetries := i.config.Get().Import.Retries()
	if req.Retries+1 < maxRetries {
		logger.Warn("Importer.Import: transient failure, will retry", "error", cause, "attempt", req.Retries+1, "max_retries", maxRetries)
		return &Result{Transient: true}, nil
	}

	logger.Error("Importer.Import: retries exhausted, recording failure", "error", cause, "attempts", req.Retries+1)
	if req.DryRun {
		return &Result{Record: &ImportRecord{
			SourcePath: req.Path,
			Outcome:    OutcomeFailed,
			Detail:     cause.Error(),
		}}, nil
	}
	scope := req.Spec.Scope(i.config.Get().Import.DedupScope)
	record, err := i.ledger.RecordFailure(ctx, "", req.Path, scope, cause.Error(), size)
	if err != nil {
		i.metrics.LedgerError()
		return nil, err
	}
	i.finish(ctx, record, logger)
	return &Result{Record: record}, nil
}

// handleDuplicate records the duplicate outcome and applies the duplicate
// file policy. The sink is never called for duplicates.
func (i *Importer) handleDuplicate(ctx context.Context, req Request, fingerprint, scope string, size int64, existing *ImportRecord, logger *slog.Logger) (*Result, error) {
	logger.Info("Importer.Import: duplicate content", "duplicate_of", existing.ID, "original_path", existing.SourcePath)

	if req.DryRun {
		return &Result{Record: &ImportRecord{
			Fingerprint: fingerprint,
			Scope:       scope,
			SourcePath:  req.Path,
			Size:        size,
			Outcome:     OutcomeDuplicate,
			Detail:      "duplicate-of:" + existing.ID,
		}}, nil
	}

	record, err := i.ledger.RecordDuplicate(ctx, fingerprint, req.Path, scope, size, existing.ID)
	if err != nil {
		i.metrics.LedgerError()
		return nil, err
	}
	i.applyPolicy(ctx, req.Path, req.Spec, true, logger)
	i.finish(ctx, record, logger)
	return &Result{Record: record}, nil
}

// createMedia hands the file to the sink under the configured timeout.
func (i *Importer) createMedia(ctx context.Context, req Request) (media.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, i.config.Get().Sink.SinkTimeout())
	defer cancel()

	spec := req.Spec
	description := spec.Description
	if description == "" {
		description = fmt.Sprintf("Auto-imported from %s", spec.Path)
	}
	return i.sink.CreateMedia(ctx, media.CreateRequest{
		FilePath:      req.Path,
		Title:         media.TitleFromPath(req.Path),
		Description:   description,
		Owner:         spec.Owner,
		State:         media.State(spec.State),
		Channel:       spec.Channel,
		Categories:    spec.Categories,
		Tags:          spec.Tags,
		AllowDownload: spec.AllowDownload,
		IsReviewed:    spec.IsReviewed,
	})
}

// applyPolicy runs the post-import file policy. Policy failures are logged
// and never roll back the ledger: the import itself already succeeded and
// must not be reattempted because cleanup failed.
func (i *Importer) applyPolicy(ctx context.Context, path string, spec *config.WatchSpec, duplicate bool, logger *slog.Logger) {
	switch spec.Policy {
	case config.PolicyDelete:
		if err := i.relocator.Delete(ctx, path); err != nil {
			logger.Warn("Importer.applyPolicy: failed to delete source file", "error", err)
		}
	case config.PolicyMove:
		dest, err := i.relocator.MoveProcessed(ctx, path, spec.ProcessedDir, duplicate)
		if err != nil {
			logger.Warn("Importer.applyPolicy: failed to move processed file", "error", err)
			return
		}
		logger.Info("Importer.applyPolicy: moved processed file", "dest", dest, "duplicate", duplicate)
	}
}

// finish publishes the terminal outcome to metrics and notifications.
func (i *Importer) finish(ctx context.Context, record *ImportRecord, logger *slog.Logger) {
	i.metrics.OutcomeRecorded(string(record.Outcome))
	if i.notifier != nil {
		i.notifier.NotifyOutcome(ctx, record)
	}
	logger.Info("Importer.Import: outcome recorded", "outcome", record.Outcome, "detail", record.Detail)
}
