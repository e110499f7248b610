// Package ledger records the outcome of every derivative attempt and how
// often each item has been submitted to a task.
package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/zeebo/blake3"
)

// Outcome of one asset
type Outcome string

// Outcomes
const (
	OutcomeFiltered Outcome = "filtered"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one recorded derivative attempt
type Entry struct {
	RunID          string
	Task           string
	ItemID         string
	SourceName     string
	DerivativeName string
	Outcome        Outcome
	// Digest is the hex BLAKE3 digest of the derivative bytes, empty on failure
	Digest     string
	Detail     string
	RecordedAt time.Time
}

// Ledger stores entries and seen counts in SQL. Statements are portable
// between PostgreSQL and SQLite.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates the ledger tables if they don't exist
func New(ctx context.Context, db *sql.DB) (*Ledger, error) {
	l := &Ledger{db: db, now: time.Now}

	if err := l.ensureTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger tables: %w", err)
	}

	return l, nil
}

func (l *Ledger) ensureTables(ctx context.Context) error {
	queries := []string{`
		CREATE TABLE IF NOT EXISTS mediafilter_seen (
			item_id TEXT NOT NULL,
			task TEXT NOT NULL,
			first_seen_at BIGINT NOT NULL,
			last_seen_at BIGINT NOT NULL,
			seen_count INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (item_id, task)
		)`, `
		CREATE TABLE IF NOT EXISTS mediafilter_outcomes (
			run_id TEXT NOT NULL,
			task TEXT NOT NULL,
			item_id TEXT NOT NULL,
			source_name TEXT NOT NULL,
			derivative_name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			digest TEXT NOT NULL,
			detail TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := l.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Touch records a submission of item to task and returns the seen count
func (l *Ledger) Touch(ctx context.Context, itemID, task string) (int, error) {
	now := l.now().UnixMilli()
	query := `
		INSERT INTO mediafilter_seen (item_id, task, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, $3, $3, 1)
		ON CONFLICT (item_id, task) DO UPDATE
		SET last_seen_at = EXCLUDED.last_seen_at,
		    seen_count = mediafilter_seen.seen_count + 1
		RETURNING seen_count
	`

	var seen int
	if err := l.db.QueryRowContext(ctx, query, itemID, task, now).Scan(&seen); err != nil {
		return 0, fmt.Errorf("failed to record submission: %w", err)
	}
	return seen, nil
}

// SeenCount returns how often item was submitted to task
func (l *Ledger) SeenCount(ctx context.Context, itemID, task string) (int, error) {
	var seen int
	err := l.db.QueryRowContext(ctx,
		`SELECT seen_count FROM mediafilter_seen WHERE item_id = $1 AND task = $2`, itemID, task).Scan(&seen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seen count: %w", err)
	}
	return seen, nil
}

// Record appends an entry
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = l.now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO mediafilter_outcomes
			(run_id, task, item_id, source_name, derivative_name, outcome, digest, detail, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.RunID, e.Task, e.ItemID, e.SourceName, e.DerivativeName, string(e.Outcome), e.Digest, e.Detail,
		e.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// Entries returns the entries of a run in recording order
func (l *Ledger) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, task, item_id, source_name, derivative_name, outcome, digest, detail, recorded_at
		FROM mediafilter_outcomes WHERE run_id = $1 ORDER BY recorded_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			outcome string
			at      int64
		)
		if err := rows.Scan(&e.RunID, &e.Task, &e.ItemID, &e.SourceName, &e.DerivativeName,
			&outcome, &e.Digest, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.RecordedAt = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// NewDigest returns a BLAKE3 hasher for derivative bytes
func NewDigest() hash.Hash {
	return blake3.New()
}

// HexDigest formats the sum of h
func HexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the hex BLAKE3 digest of data
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
