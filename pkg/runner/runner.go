// Package runner embeds the media filter tasks in another process: it
// builds every configured task over a simple-content service, registers the
// durable run workflow with DBOS and launches the queue.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-content/pkg/simplecontent"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/dbosruntime"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/internal/ledger"
	"github.com/tendant/simple-content-mediafilter/internal/storage"
	"github.com/tendant/simple-content-mediafilter/internal/workflows"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// Config holds the configuration for initializing the runner
type Config struct {
	DatabaseURL        string // DBOS PostgreSQL connection string
	AppName            string // Application name for DBOS
	QueueName          string // DBOS queue name
	ApplicationVersion string // Optional: Override binary hash for version matching

	// TasksFile is the YAML task configuration. MEDIAFILTER_* environment
	// variables override its properties.
	TasksFile string

	// Content is the service items are read from and derivatives written to
	Content simplecontent.Service

	// SourceContainer names the container holding an item's own content.
	// Optional. Defaults to ORIGINAL
	SourceContainer string

	// StateDB holds access rules and the outcome ledger. Optional.
	// Defaults to the DBOS system database.
	StateDB *sql.DB

	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Runner provides a high-level API for running media filter tasks via DBOS
type Runner struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
	tasks   []string
}

// New creates the runner and launches DBOS
func New(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.Content == nil {
		return nil, fmt.Errorf("content service is required")
	}
	if cfg.SourceContainer == "" {
		cfg.SourceContainer = pipeline.ContainerOriginal
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	src, tasks, err := LoadTaskSource(cfg.TasksFile, config.NewEnvSource())
	if err != nil {
		return nil, err
	}

	dbosRuntime, err := dbosruntime.NewRuntime(ctx, dbosruntime.Config{
		DatabaseURL:        cfg.DatabaseURL,
		AppName:            cfg.AppName,
		QueueName:          cfg.QueueName,
		ApplicationVersion: cfg.ApplicationVersion,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	db := cfg.StateDB
	if db == nil {
		db = dbosRuntime.DB()
	}
	policies, err := storage.NewSQLPolicyStore(ctx, db)
	if err != nil {
		return nil, err
	}
	outcomes, err := ledger.New(ctx, db)
	if err != nil {
		return nil, err
	}

	var metrics *workflows.Metrics
	if cfg.Registerer != nil {
		metrics = workflows.NewMetrics(cfg.Registerer)
	}

	registry := formats.Default()
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)
	_, err = workflows.LoadTasks(workflowRunner, src, tasks, registry, workflows.Dependencies{
		Repository: storage.NewSimpleContentRepository(cfg.Content, registry, cfg.SourceContainer),
		Policies:   policies,
		Ledger:     outcomes,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	// Launch DBOS (must be after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		return nil, err
	}

	return &Runner{
		runtime: dbosRuntime,
		runner:  workflowRunner,
		tasks:   tasks,
	}, nil
}

// LoadTaskSource reads the task file and layers env over it. It returns the
// task ids defined in the file.
func LoadTaskSource(path string, env config.Source) (config.Source, []string, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("task configuration file is required")
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	tasks := file.Tasks()
	if len(tasks) == 0 {
		return nil, nil, fmt.Errorf("no tasks defined in %s", path)
	}
	return config.Layered{env, file}, tasks, nil
}

// Tasks returns the configured task ids
func (r *Runner) Tasks() []string {
	return r.runner.Tasks()
}

// Submit enqueues a task run over one item and returns its run id
func (r *Runner) Submit(ctx context.Context, itemID, task string) (string, error) {
	return r.runner.RunAsync(ctx, pipeline.RunRequest{ItemID: itemID, Task: task})
}

// Run executes a task over one item in the calling goroutine
func (r *Runner) Run(ctx context.Context, runID, itemID, task string) (*pipeline.RunResponse, error) {
	return r.runner.Run(&workflows.WorkflowContext{
		Ctx:     ctx,
		Request: pipeline.RunRequest{ItemID: itemID, Task: task},
		RunID:   runID,
	})
}

// Status returns the state of a submitted run
func (r *Runner) Status(ctx context.Context, runID string) (*workflows.WorkflowStatus, error) {
	return r.runner.GetStatus(ctx, runID)
}

// WorkflowRunner exposes the underlying runner
func (r *Runner) WorkflowRunner() *workflows.WorkflowRunner {
	return r.runner
}

// Shutdown gracefully shuts down the runner
func (r *Runner) Shutdown(timeout time.Duration) error {
	if r.runtime != nil {
		return r.runtime.Shutdown(timeout)
	}
	return nil
}
