// mediafilter runs one media filter task over a directory of items.
//
// The tree holds one directory per item, one directory per container
// inside it and the asset files below those; an optional item.yaml in the
// item directory carries the handle, collection and access rules. Access
// rules and the outcome ledger are kept in SQLite.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/executors"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/internal/ledger"
	"github.com/tendant/simple-content-mediafilter/internal/logging"
	"github.com/tendant/simple-content-mediafilter/internal/storage"
	"github.com/tendant/simple-content-mediafilter/internal/workflows"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
	"github.com/tendant/simple-content-mediafilter/pkg/runner"
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	envFile     string
	task        string
	tree        string
	export      string
	dbPath      string
	blobDir     string
	items       []string
	force       bool
	concurrency int
	logLevel    string
	logFormat   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	flagSet := pflag.NewFlagSet("mediafilter", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&o.configPath, "config", "c", "tasks.yaml", "task configuration file")
	flagSet.StringVar(&o.envFile, "env-file", ".env", "environment file loaded before the configuration")
	flagSet.StringVarP(&o.task, "task", "t", "", "task id to run")
	flagSet.StringVar(&o.tree, "tree", "", "directory of items to import")
	flagSet.StringVar(&o.export, "export", "", "write the task's target containers to this directory")
	flagSet.StringVar(&o.dbPath, "db", ":memory:", "SQLite database for access rules and the outcome ledger")
	flagSet.StringVar(&o.blobDir, "blob-dir", "", "keep asset bytes in this directory instead of memory")
	flagSet.StringSliceVar(&o.items, "item", nil, "restrict the run to these item ids")
	flagSet.BoolVar(&o.force, "force", false, "regenerate derivatives that already exist")
	flagSet.IntVar(&o.concurrency, "concurrency", executors.DefaultConcurrency, "items processed in parallel")
	flagSet.StringVar(&o.logLevel, "log-level", os.Getenv(logging.EnvLevel), "log level (debug, info, warn, error)")
	flagSet.StringVar(&o.logFormat, "log-format", os.Getenv(logging.EnvFormat), "log format (text, json)")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if o.task == "" {
		return nil, &exitError{code: 2, err: errors.New("--task is required")}
	}
	if o.tree == "" {
		return nil, &exitError{code: 2, err: errors.New("--tree is required")}
	}
	return &o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}
	logger, err := logging.New(stderr, o.logLevel, o.logFormat)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, tasks, err := runner.LoadTaskSource(o.configPath, config.NewEnvSource())
	if err != nil {
		return err
	}
	if !slices.Contains(tasks, o.task) {
		return &exitError{code: 2, err: fmt.Errorf("task %q not defined in %s (have %s)", o.task, o.configPath, strings.Join(tasks, ", "))}
	}
	if o.force {
		src = config.Layered{config.MapSource{o.task: {config.KeyFilterForce: "true"}}, src}
	}

	db, err := sql.Open("sqlite3", o.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	policies, err := storage.NewSQLPolicyStore(ctx, db)
	if err != nil {
		return err
	}
	outcomes, err := ledger.New(ctx, db)
	if err != nil {
		return err
	}

	var blobs storage.BlobStore
	if o.blobDir != "" {
		if blobs, err = storage.NewFilesystemStorage(o.blobDir); err != nil {
			return err
		}
	}
	repo := storage.NewMemoryRepository(blobs)

	registry := formats.Default()
	itemIDs, err := storage.LoadTree(ctx, o.tree, repo, policies, registry)
	if err != nil {
		return err
	}
	if len(o.items) > 0 {
		itemIDs = slices.DeleteFunc(itemIDs, func(id string) bool { return !slices.Contains(o.items, id) })
	}
	logger.Info("items imported", "tree", o.tree, "items", len(itemIDs))

	workflowRunner := workflows.NewWorkflowRunner(nil)
	filters, err := workflows.LoadTasks(workflowRunner, src, []string{o.task}, registry, workflows.Dependencies{
		Repository: repo,
		Policies:   policies,
		Ledger:     outcomes,
		Logger:     logger,
	})
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	result := executors.NewBatchExecutor(workflowRunner, o.concurrency, logger).Execute(ctx, o.task, itemIDs)
	printResult(stdout, result)

	if o.export != "" {
		paths, err := storage.Export(ctx, repo, itemIDs, filters[0].Spec().TargetContainer, o.export)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(stdout, "exported %s\n", p)
		}
	}

	switch result.Status() {
	case pipeline.StatusError:
		return &exitError{code: 3, err: fmt.Errorf("task %s: %d item(s) aborted", o.task, result.Counts[pipeline.StatusError])}
	case pipeline.StatusFail:
		return &exitError{code: 1, err: fmt.Errorf("task %s: %d item(s) failed", o.task, result.Counts[pipeline.StatusFail])}
	}
	return nil
}

func printResult(w io.Writer, result *executors.BatchResult) {
	for _, item := range result.Items {
		resp := item.Response
		if resp == nil {
			fmt.Fprintf(w, "%s: error: %v\n", item.ItemID, item.Err)
			continue
		}
		fmt.Fprintf(w, "%s [%s] %d/%d filtered\n", resp.Summary, resp.Status, resp.Filtered, resp.Eligible)
		for _, line := range resp.Report {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintf(w, "%s: %s (success %d, fail %d, skip %d, error %d)\n", result.Task, result.Status(),
		result.Counts[pipeline.StatusSuccess], result.Counts[pipeline.StatusFail],
		result.Counts[pipeline.StatusSkip], result.Counts[pipeline.StatusError])
}
