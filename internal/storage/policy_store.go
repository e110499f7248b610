package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"github.com/tendant/simple-content-mediafilter/internal/policy"
)

// MemoryPolicyStore implements policy.Store in memory
type MemoryPolicyStore struct {
	mu    sync.RWMutex
	rules map[string][]policy.Rule
}

// NewMemoryPolicyStore creates an empty store
func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{rules: make(map[string][]policy.Rule)}
}

func (s *MemoryPolicyStore) Rules(ctx context.Context, objectID string) ([]policy.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rules[objectID]), nil
}

func (s *MemoryPolicyStore) AddRule(ctx context.Context, objectID string, rule policy.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[objectID] = append(s.rules[objectID], rule)
	return nil
}

func (s *MemoryPolicyStore) RemoveByAction(ctx context.Context, objectID string, action policy.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[objectID] = slices.DeleteFunc(s.rules[objectID], func(r policy.Rule) bool {
		return r.Action == action
	})
	return nil
}

func (s *MemoryPolicyStore) Clear(ctx context.Context, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, objectID)
	return nil
}

// SQLPolicyStore implements policy.Store on a SQL database. The statements
// run unchanged on PostgreSQL and SQLite.
type SQLPolicyStore struct {
	db *sql.DB
}

// NewSQLPolicyStore creates the access_rules table if it doesn't exist
func NewSQLPolicyStore(ctx context.Context, db *sql.DB) (*SQLPolicyStore, error) {
	s := &SQLPolicyStore{db: db}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure access_rules table: %w", err)
	}
	return s, nil
}

func (s *SQLPolicyStore) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS access_rules (
			object_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			action TEXT NOT NULL,
			group_name TEXT NOT NULL,
			PRIMARY KEY (object_id, position)
		)
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Rules returns the rules of objectID in insertion order
func (s *SQLPolicyStore) Rules(ctx context.Context, objectID string) ([]policy.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, group_name FROM access_rules WHERE object_id = $1 ORDER BY position`, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []policy.Rule
	for rows.Next() {
		var r policy.Rule
		var action string
		if err := rows.Scan(&action, &r.Group); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Action = policy.Action(action)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLPolicyStore) AddRule(ctx context.Context, objectID string, rule policy.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM access_rules WHERE object_id = $1`, objectID).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to allocate rule position: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO access_rules (object_id, position, action, group_name) VALUES ($1, $2, $3, $4)`,
		objectID, next, string(rule.Action), rule.Group)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return tx.Commit()
}

func (s *SQLPolicyStore) RemoveByAction(ctx context.Context, objectID string, action policy.Action) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM access_rules WHERE object_id = $1 AND action = $2`, objectID, string(action))
	if err != nil {
		return fmt.Errorf("failed to remove %s rules: %w", action, err)
	}
	return nil
}

func (s *SQLPolicyStore) Clear(ctx context.Context, objectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM access_rules WHERE object_id = $1`, objectID)
	if err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}
	return nil
}
