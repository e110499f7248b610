// Package handlers serves the worker's operational endpoints
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-content-mediafilter/internal/workflows"
)

// StatusLookup reads the state of a queued run
type StatusLookup interface {
	GetStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error)
}

// StatusFunc adapts a function to StatusLookup
type StatusFunc func(ctx context.Context, runID string) (*workflows.WorkflowStatus, error)

// GetStatus calls f
func (f StatusFunc) GetStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error) {
	return f(ctx, runID)
}

// OpsHandler serves health, metrics and run status
type OpsHandler struct {
	tasks    []string
	status   StatusLookup
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewOpsHandler creates the handler. status may be nil when runs are not
// queued.
func NewOpsHandler(tasks []string, status StatusLookup, gatherer prometheus.Gatherer, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	tasks = slices.Clone(tasks)
	slices.Sort(tasks)
	return &OpsHandler{tasks: tasks, status: status, gatherer: gatherer, logger: logger}
}

// Routes registers the endpoints on mux
func (h *OpsHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/v1/runs/", h.HandleStatus)
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// HandleHealth handles GET /health
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tasks":  h.tasks,
	})
}

// HandleStatus handles GET /v1/runs/{runID}
func (h *OpsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.status == nil {
		http.Error(w, "Run status not available", http.StatusNotImplemented)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	status, err := h.status.GetStatus(r.Context(), runID)
	if err != nil {
		h.logger.Warn("run status lookup failed", "run_id", runID, "error", err)
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
