package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/denniswebb/mediacms/src/features/importing"
)

func newTestLedger(t *testing.T) *SqliteLedger {
	t.Helper()
	l, err := NewSqliteLedger(filepath.Join(t.TempDir(), "imports.db"))
	if err != nil {
		t.Fatalf("NewSqliteLedger failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBeginAttemptClaimsKeyOnce(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	attempt, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false)
	if err != nil {
		t.Fatalf("first BeginAttempt failed: %v", err)
	}
	if attempt.Record.Outcome != importing.OutcomePending {
		t.Errorf("expected pending outcome, got %s", attempt.Record.Outcome)
	}

	if _, err := l.BeginAttempt(ctx, "fp1", "/in/a-copy.mp4", "global", 100, false); !errors.Is(err, importing.ErrAttemptInFlight) {
		t.Errorf("expected ErrAttemptInFlight while pending, got %v", err)
	}

	if err := l.Commit(ctx, attempt, importing.OutcomeImported, "", "tok123"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := l.BeginAttempt(ctx, "fp1", "/in/a-copy.mp4", "global", 100, false); !errors.Is(err, importing.ErrAlreadyImported) {
		t.Errorf("expected ErrAlreadyImported after commit, got %v", err)
	}
}

func TestScopeSeparatesDedup(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	attempt, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "incoming", 100, false)
	if err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}
	if err := l.Commit(ctx, attempt, importing.OutcomeImported, "", "tok123"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// The same fingerprint is free in a different scope.
	if _, err := l.BeginAttempt(ctx, "fp1", "/other/a.mp4", "archive", 100, false); err != nil {
		t.Errorf("expected a different scope to be claimable, got %v", err)
	}
}

func TestCommitIsOneWay(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	attempt, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false)
	if err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}
	if err := l.Commit(ctx, attempt, importing.OutcomeFailed, "sink unreachable", ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	err = l.Commit(ctx, attempt, importing.OutcomeImported, "", "tok123")
	var ledgerErr *importing.LedgerError
	if !errors.As(err, &ledgerErr) {
		t.Errorf("expected LedgerError committing a terminal record, got %v", err)
	}
}

func TestFailedOutcomeDoesNotBlockRetry(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	attempt, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false)
	if err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}
	if err := l.Commit(ctx, attempt, importing.OutcomeFailed, "sink unreachable", ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false); err != nil {
		t.Errorf("expected retry after failure to claim the key, got %v", err)
	}
}

func TestForceSupersedesImportedRecord(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false)
	if err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}
	if err := l.Commit(ctx, first, importing.OutcomeImported, "", "tok123"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	forced, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, true)
	if err != nil {
		t.Fatalf("forced BeginAttempt failed: %v", err)
	}
	if forced.Record.Supersedes != first.Record.ID {
		t.Errorf("expected forced record to supersede %s, got %q", first.Record.ID, forced.Record.Supersedes)
	}
	if err := l.Commit(ctx, forced, importing.OutcomeImported, "", "tok456"); err != nil {
		t.Fatalf("forced Commit failed: %v", err)
	}

	// History keeps both records; lookup returns the newest import.
	found, err := l.FindImported(ctx, "fp1", "global")
	if err != nil {
		t.Fatalf("FindImported failed: %v", err)
	}
	if found == nil || found.ID != forced.Record.ID {
		t.Errorf("expected newest imported record, got %+v", found)
	}
}

func TestRecordDuplicateLinksOriginal(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	record, err := l.RecordDuplicate(ctx, "fp1", "/in/b.mp4", "global", 100, "orig-id")
	if err != nil {
		t.Fatalf("RecordDuplicate failed: %v", err)
	}
	if record.Outcome != importing.OutcomeDuplicate {
		t.Errorf("expected duplicate outcome, got %s", record.Outcome)
	}
	if record.Detail != "duplicate-of:orig-id" {
		t.Errorf("unexpected detail %q", record.Detail)
	}

	// Duplicate records never claim the dedup key.
	if _, err := l.BeginAttempt(ctx, "fp1", "/in/b.mp4", "global", 100, false); err != nil {
		t.Errorf("expected BeginAttempt after duplicate record to succeed, got %v", err)
	}
}

func TestReconcileFailsOrphanedPending(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false); err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}

	touched, err := l.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if touched != 1 {
		t.Errorf("expected 1 reconciled record, got %d", touched)
	}

	// The key is claimable again after reconciliation.
	if _, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false); err != nil {
		t.Errorf("expected BeginAttempt after reconcile to succeed, got %v", err)
	}

	records, err := l.RecordsForPath(ctx, "/in/a.mp4")
	if err != nil {
		t.Fatalf("RecordsForPath failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Outcome != importing.OutcomeFailed {
		t.Errorf("expected reconciled record to be failed, got %s", records[1].Outcome)
	}
}

func TestRecordsForPathNewestFirst(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	attempt, err := l.BeginAttempt(ctx, "fp1", "/in/a.mp4", "global", 100, false)
	if err != nil {
		t.Fatalf("BeginAttempt failed: %v", err)
	}
	if err := l.Commit(ctx, attempt, importing.OutcomeImported, "", "tok123"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := l.RecordDuplicate(ctx, "fp2", "/in/a.mp4", "global", 100, attempt.Record.ID); err != nil {
		t.Fatalf("RecordDuplicate failed: %v", err)
	}

	records, err := l.RecordsForPath(ctx, "/in/a.mp4")
	if err != nil {
		t.Fatalf("RecordsForPath failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Outcome != importing.OutcomeDuplicate {
		t.Errorf("expected the newest record first, got %s", records[0].Outcome)
	}

	records, err = l.RecordsForPath(ctx, "/in/other.mp4")
	if err != nil {
		t.Fatalf("RecordsForPath failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for an unseen path, got %d", len(records))
	}
}
