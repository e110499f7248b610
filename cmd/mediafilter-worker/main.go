// mediafilter-worker hosts the media filter tasks on the DBOS queue over an
// embedded simple-content service and serves health, run status and
// metrics endpoints.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tendant/simple-content/pkg/simplecontent/presets"

	"github.com/tendant/simple-content-mediafilter/internal/dbosruntime"
	"github.com/tendant/simple-content-mediafilter/internal/handlers"
	"github.com/tendant/simple-content-mediafilter/internal/logging"
	"github.com/tendant/simple-content-mediafilter/pkg/runner"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	logger, err := logging.New(os.Stderr, os.Getenv(logging.EnvLevel), os.Getenv(logging.EnvFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if err := run(logger); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(logger *slog.Logger) error {
	httpAddr := getenv("WORKER_HTTP_ADDR", ":8081")
	storageDir := getenv("STORAGE_DIR", "./dev-data")
	tasksFile := getenv("MEDIAFILTER_TASKS_FILE", "tasks.yaml")

	svc, cleanup, err := presets.NewDevelopment(presets.WithDevStorage(storageDir))
	if err != nil {
		return fmt.Errorf("failed to initialize simple-content service: %w", err)
	}
	defer cleanup()
	logger.Info("simple-content service initialized", "storage_dir", storageDir)

	// access rules and the ledger may live outside the DBOS database
	var stateDB *sql.DB
	if url := os.Getenv("MEDIAFILTER_DATABASE_URL"); url != "" {
		if stateDB, err = sql.Open("postgres", url); err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer stateDB.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dbosCfg := dbosruntime.ConfigFromEnv(nil)
	r, err := runner.New(context.Background(), runner.Config{
		DatabaseURL:        dbosCfg.DatabaseURL,
		AppName:            dbosCfg.AppName,
		QueueName:          dbosCfg.QueueName,
		ApplicationVersion: dbosCfg.ApplicationVersion,
		TasksFile:          tasksFile,
		Content:            svc,
		StateDB:            stateDB,
		Registerer:         reg,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	defer r.Shutdown(10 * time.Second)
	logger.Info("tasks registered", "tasks", r.Tasks(), "tasks_file", tasksFile)

	mux := http.NewServeMux()
	handlers.NewOpsHandler(r.Tasks(), r.WorkflowRunner(), reg, logger).Routes(mux)

	server := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("worker listening", "addr", httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
