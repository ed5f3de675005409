package importing

import (
	"fmt"
	"time"

	"github.com/denniswebb/mediacms/src/media"
)

// Outcome is the terminal (or in-flight) state of one import attempt.
type Outcome string

const (
	// OutcomePending marks an attempt that has begun but not committed.
	OutcomePending Outcome = "pending"
	// OutcomeImported marks content handed to the sink exactly once.
	OutcomeImported Outcome = "imported"
	// OutcomeDuplicate marks content whose fingerprint was already imported.
	// Duplicates are a normal result, not an error.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeFailed marks an attempt that ended in an error.
	OutcomeFailed Outcome = "failed"
)

// ImportRecord is the durable dedup unit. One record is created per import
// attempt; terminal outcomes are never mutated afterwards. A forced
// re-import creates a new record linked to the prior one via Supersedes.
type ImportRecord struct {
	ID          string
	Fingerprint string
	Scope       string
	SourcePath  string
	Size        int64
	Outcome     Outcome
	Detail      string // duplicate-of:<id> or failure reason
	MediaID     media.ID
	Supersedes  string // prior record id when force was used
	CreatedAt   time.Time
	CommittedAt time.Time
}

// TransientFileError marks a file-level failure worth retrying: the file
// vanished, was locked, or was truncated mid-read. Retries are bounded by
// configuration; past the budget the attempt is recorded failed.
type TransientFileError struct {
	Path string
	Err  error
}

func (e *TransientFileError) Error() string {
	return fmt.Sprintf("transient file error for %s: %v", e.Path, e.Err)
}

func (e *TransientFileError) Unwrap() error { return e.Err }
