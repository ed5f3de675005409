package importing

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAlreadyImported is returned by BeginAttempt when the fingerprint
	// already has a successful import in the same scope and force is off.
	ErrAlreadyImported = errors.New("fingerprint already imported in scope")
	// ErrAttemptInFlight is returned by BeginAttempt when another attempt
	// for the same fingerprint and scope is currently pending.
	ErrAttemptInFlight = errors.New("import attempt already in flight")
)

// LedgerError wraps a durability failure from the backing store. It is
// fatal for the attempt that hit it and must never be swallowed: silently
// losing a dedup record risks a double import.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Attempt is the handle between BeginAttempt and Commit.
type Attempt struct {
	Record *ImportRecord
}

// Ledger is the durable record of import attempts and the source of truth
// for "already imported". Implementations must provide atomic
// compare-and-set semantics on (fingerprint, scope): at most one pending or
// imported record may exist per key unless force is set.
type Ledger interface {
	// FindImported returns the imported record for (fingerprint, scope),
	// or nil when none exists.
	FindImported(ctx context.Context, fingerprint, scope string) (*ImportRecord, error)

	// BeginAttempt atomically claims (fingerprint, scope) by inserting a
	// pending record. Fails with ErrAlreadyImported or ErrAttemptInFlight
	// unless force is set, in which case the new record links to the prior
	// one instead of replacing it.
	BeginAttempt(ctx context.Context, fingerprint, path, scope string, size int64, force bool) (*Attempt, error)

	// Commit durably moves a pending attempt to a terminal outcome. The
	// transition is one-way; committing an already terminal record is an error.
	Commit(ctx context.Context, attempt *Attempt, outcome Outcome, detail string, mediaID string) error

	// RecordDuplicate writes a terminal duplicate record pointing at the
	// existing imported record.
	RecordDuplicate(ctx context.Context, fingerprint, path, scope string, size int64, duplicateOf string) (*ImportRecord, error)

	// RecordFailure writes a terminal failed record. The fingerprint may be
	// empty when hashing itself failed.
	RecordFailure(ctx context.Context, fingerprint, path, scope, reason string, size int64) (*ImportRecord, error)

	// Reconcile resolves attempts orphaned by a crash between BeginAttempt
	// and Commit, marking them failed so they never lock out retries. It is
	// called once at startup and returns the number of records touched.
	Reconcile(ctx context.Context) (int, error)
}
