package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/denniswebb/mediacms/src/features/importing"
	"github.com/denniswebb/mediacms/src/media"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteLedger is a SQLite implementation of the importing.Ledger interface.
// SQLite serializes writers, so the BeginAttempt transaction provides the
// atomic compare-and-set on (fingerprint, scope) the contract requires.
type SqliteLedger struct {
	db *sql.DB
}

// NewSqliteLedger opens (or creates) the ledger database at path.
func NewSqliteLedger(path string) (*SqliteLedger, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteLedger{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS import_records (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			scope TEXT NOT NULL,
			source_path TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			media_id TEXT NOT NULL DEFAULT '',
			supersedes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			committed_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_import_records_key
			ON import_records(fingerprint, scope, outcome);

		CREATE INDEX IF NOT EXISTS idx_import_records_path
			ON import_records(source_path);
	`)
	return err
}

// Close closes the underlying database.
func (l *SqliteLedger) Close() error {
	return l.db.Close()
}

// FindImported returns the most recent imported record for (fingerprint, scope).
func (l *SqliteLedger) FindImported(ctx context.Context, fingerprint, scope string) (*importing.ImportRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, scope, source_path, size, outcome, detail, media_id, supersedes, created_at, committed_at
		 FROM import_records
		 WHERE fingerprint = ? AND scope = ? AND outcome = ?
		 ORDER BY created_at DESC LIMIT 1`,
		fingerprint, scope, importing.OutcomeImported)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &importing.LedgerError{Op: "find_imported", Err: err}
	}
	return record, nil
}

// BeginAttempt atomically claims (fingerprint, scope) with a pending record.
func (l *SqliteLedger) BeginAttempt(ctx context.Context, fingerprint, path, scope string, size int64, force bool) (*importing.Attempt, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &importing.LedgerError{Op: "begin_attempt", Err: err}
	}
	defer tx.Rollback()

	var existingID, existingOutcome string
	err = tx.QueryRowContext(ctx,
		`SELECT id, outcome FROM import_records
		 WHERE fingerprint = ? AND scope = ? AND outcome IN (?, ?)
		 ORDER BY created_at DESC LIMIT 1`,
		fingerprint, scope, importing.OutcomePending, importing.OutcomeImported).
		Scan(&existingID, &existingOutcome)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &importing.LedgerError{Op: "begin_attempt", Err: err}
	}

	supersedes := ""
	if err == nil {
		switch importing.Outcome(existingOutcome) {
		case importing.OutcomePending:
			return nil, importing.ErrAttemptInFlight
		case importing.OutcomeImported:
			if !force {
				return nil, importing.ErrAlreadyImported
			}
			// Forced re-import: history stays, the new record links back.
			supersedes = existingID
		}
	}

	record := &importing.ImportRecord{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Scope:       scope,
		SourcePath:  path,
		Size:        size,
		Outcome:     importing.OutcomePending,
		Supersedes:  supersedes,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_records (id, fingerprint, scope, source_path, size, outcome, detail, media_id, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', '', ?, ?)`,
		record.ID, record.Fingerprint, record.Scope, record.SourcePath, record.Size,
		record.Outcome, record.Supersedes, record.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, &importing.LedgerError{Op: "begin_attempt", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &importing.LedgerError{Op: "begin_attempt", Err: err}
	}
	return &importing.Attempt{Record: record}, nil
}

// Commit durably moves a pending attempt to its terminal outcome. The
// update is guarded on the pending state so outcome transitions stay one-way.
func (l *SqliteLedger) Commit(ctx context.Context, attempt *importing.Attempt, outcome importing.Outcome, detail string, mediaID string) error {
	committedAt := time.Now().UTC()
	result, err := l.db.ExecContext(ctx,
		`UPDATE import_records SET outcome = ?, detail = ?, media_id = ?, committed_at = ?
		 WHERE id = ? AND outcome = ?`,
		outcome, detail, mediaID, committedAt.Format(time.RFC3339Nano),
		attempt.Record.ID, importing.OutcomePending)
	if err != nil {
		return &importing.LedgerError{Op: "commit", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &importing.LedgerError{Op: "commit", Err: err}
	}
	if affected == 0 {
		return &importing.LedgerError{Op: "commit", Err: fmt.Errorf("record %s is not pending", attempt.Record.ID)}
	}

	attempt.Record.Outcome = outcome
	attempt.Record.Detail = detail
	attempt.Record.MediaID = media.ID(mediaID)
	attempt.Record.CommittedAt = committedAt
	return nil
}

// RecordDuplicate writes a terminal duplicate record pointing at the
// already imported one.
func (l *SqliteLedger) RecordDuplicate(ctx context.Context, fingerprint, path, scope string, size int64, duplicateOf string) (*importing.ImportRecord, error) {
	return l.insertTerminal(ctx, fingerprint, path, scope, size, importing.OutcomeDuplicate, "duplicate-of:"+duplicateOf)
}

// RecordFailure writes a terminal failed record.
func (l *SqliteLedger) RecordFailure(ctx context.Context, fingerprint, path, scope, reason string, size int64) (*importing.ImportRecord, error) {
	return l.insertTerminal(ctx, fingerprint, path, scope, size, importing.OutcomeFailed, reason)
}

func (l *SqliteLedger) insertTerminal(ctx context.Context, fingerprint, path, scope string, size int64, outcome importing.Outcome, detail string) (*importing.ImportRecord, error) {
	now := time.Now().UTC()
	record := &importing.ImportRecord{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Scope:       scope,
		SourcePath:  path,
		Size:        size,
		Outcome:     outcome,
		Detail:      detail,
		CreatedAt:   now,
		CommittedAt: now,
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO import_records (id, fingerprint, scope, source_path, size, outcome, detail, media_id, supersedes, created_at, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?, ?)`,
		record.ID, record.Fingerprint, record.Scope, record.SourcePath, record.Size,
		record.Outcome, record.Detail,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, &importing.LedgerError{Op: string(outcome), Err: err}
	}
	return record, nil
}

// Reconcile resolves attempts orphaned by a crash between BeginAttempt and
// Commit. They are marked failed, which keeps history and never blocks a
// future retry: dedup only honors imported outcomes.
func (l *SqliteLedger) Reconcile(ctx context.Context) (int, error) {
	result, err := l.db.ExecContext(ctx,
		`UPDATE import_records SET outcome = ?, detail = ?, committed_at = ?
		 WHERE outcome = ?`,
		importing.OutcomeFailed, "interrupted before commit",
		time.Now().UTC().Format(time.RFC3339Nano), importing.OutcomePending)
	if err != nil {
		return 0, &importing.LedgerError{Op: "reconcile", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &importing.LedgerError{Op: "reconcile", Err: err}
	}
	return int(affected), nil
}

// RecordsForPath returns every record for a source path, newest first.
func (l *SqliteLedger) RecordsForPath(ctx context.Context, path string) ([]*importing.ImportRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, fingerprint, scope, source_path, size, outcome, detail, media_id, supersedes, created_at, committed_at
		 FROM import_records WHERE source_path = ? ORDER BY created_at DESC, rowid DESC`, path)
	if err != nil {
		return nil, &importing.LedgerError{Op: "records_for_path", Err: err}
	}
	defer rows.Close()

	var records []*importing.ImportRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &importing.LedgerError{Op: "records_for_path", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &importing.LedgerError{Op: "records_for_path", Err: err}
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*importing.ImportRecord, error) {
	var record importing.ImportRecord
	var mediaID, createdAt string
	var committedAt sql.NullString
	err := row.Scan(&record.ID, &record.Fingerprint, &record.Scope, &record.SourcePath,
		&record.Size, &record.Outcome, &record.Detail, &mediaID, &record.Supersedes,
		&createdAt, &committedAt)
	if err != nil {
		return nil, err
	}
	record.MediaID = media.ID(mediaID)
	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for record %s: %w", record.ID, err)
	}
	if committedAt.Valid && committedAt.String != "" {
		if record.CommittedAt, err = time.Parse(time.RFC3339Nano, committedAt.String); err != nil {
			return nil, fmt.Errorf("bad committed_at for record %s: %w", record.ID, err)
		}
	}
	return &record, nil
}
