package dbosruntime

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabaseURL: "postgres://localhost/dbos",
		EnvQueueName:   "thumbs",
	}
	cfg := ConfigFromEnv(func(k string) string { return env[k] })
	require.NoError(t, cfg.Validate())

	cfg.WithDefaults()
	assert.Equal(t, "postgres://localhost/dbos", cfg.DatabaseURL)
	assert.Equal(t, "mediafilter", cfg.AppName)
	assert.Equal(t, "thumbs", cfg.QueueName)
}

func TestNewRuntimeRequiresDatabase(t *testing.T) {
	_, err := NewRuntime(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestQueryWorkflowStatus(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.ExecContext(ctx, `ATTACH DATABASE ':memory:' AS dbos`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE dbos.workflow_status (
		workflow_uuid TEXT PRIMARY KEY, status TEXT, name TEXT, created_at BIGINT, updated_at BIGINT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO dbos.workflow_status VALUES ('run-1', 'SUCCESS', 'execute', 10, 20)`)
	require.NoError(t, err)

	info, err := QueryWorkflowStatus(ctx, db, "run-1")
	require.NoError(t, err)
	assert.Equal(t, &WorkflowStatusInfo{WorkflowUUID: "run-1", Status: "SUCCESS", Name: "execute", CreatedAt: 10, UpdatedAt: 20}, info)

	_, err = QueryWorkflowStatus(ctx, db, "missing")
	assert.Error(t, err)
}
