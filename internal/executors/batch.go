// Package executors runs one task over many items
package executors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-content-mediafilter/internal/workflows"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// DefaultConcurrency is used when a non-positive concurrency is configured
const DefaultConcurrency = 4

// Runner executes one run synchronously
type Runner interface {
	Run(wctx *workflows.WorkflowContext) (*pipeline.RunResponse, error)
}

// ItemResult is the outcome of one item
type ItemResult struct {
	ItemID   string
	Response *pipeline.RunResponse
	Err      error
}

// BatchResult holds the item results in submission order
type BatchResult struct {
	Task   string
	Items  []ItemResult
	Counts map[pipeline.Status]int
}

// Status returns the combined status: error if any item errored, then
// fail, then success; skip only when every item skipped
func (b *BatchResult) Status() pipeline.Status {
	switch {
	case b.Counts[pipeline.StatusError] > 0:
		return pipeline.StatusError
	case b.Counts[pipeline.StatusFail] > 0:
		return pipeline.StatusFail
	case b.Counts[pipeline.StatusSuccess] > 0:
		return pipeline.StatusSuccess
	}
	return pipeline.StatusSkip
}

// BatchExecutor runs a task over a list of items with bounded concurrency
type BatchExecutor struct {
	runner      Runner
	concurrency int
	logger      *slog.Logger
	newRunID    func() string
}

// NewBatchExecutor creates a batch executor
func NewBatchExecutor(runner Runner, concurrency int, logger *slog.Logger) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchExecutor{
		runner:      runner,
		concurrency: concurrency,
		logger:      logger,
		newRunID:    uuid.NewString,
	}
}

// Execute runs task on every item. An item that errors does not stop the
// others; items not started before ctx is done are reported with ctx.Err().
func (e *BatchExecutor) Execute(ctx context.Context, task string, itemIDs []string) *BatchResult {
	result := &BatchResult{
		Task:   task,
		Items:  make([]ItemResult, len(itemIDs)),
		Counts: make(map[pipeline.Status]int),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, itemID := range itemIDs {
		g.Go(func() error {
			res := e.runOne(ctx, task, itemID)

			mu.Lock()
			result.Items[i] = res
			if res.Response != nil {
				result.Counts[res.Response.Status]++
			} else {
				result.Counts[pipeline.StatusError]++
			}
			mu.Unlock()
			return nil
		})
	}
	// per-item errors live in the results
	g.Wait()

	e.logger.Info("batch finished", "task", task, "items", len(itemIDs),
		"success", result.Counts[pipeline.StatusSuccess],
		"fail", result.Counts[pipeline.StatusFail],
		"skip", result.Counts[pipeline.StatusSkip],
		"error", result.Counts[pipeline.StatusError])
	return result
}

func (e *BatchExecutor) runOne(ctx context.Context, task, itemID string) ItemResult {
	res := ItemResult{ItemID: itemID}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	runID := e.newRunID()
	res.Response, res.Err = e.runner.Run(&workflows.WorkflowContext{
		Ctx:     ctx,
		Request: pipeline.RunRequest{ItemID: itemID, Task: task},
		RunID:   runID,
	})
	if res.Err != nil {
		e.logger.Error("item run failed", "run_id", runID, "task", task, "item_id", itemID, "error", res.Err)
	}
	return res
}
