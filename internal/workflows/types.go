package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"

	"github.com/tendant/simple-content-mediafilter/internal/dbosruntime"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.RunRequest
	RunID   string
}

// Workflow runs one task over one item
type Workflow interface {
	// Execute runs the workflow. A non-nil error accompanies StatusError.
	Execute(wctx *WorkflowContext) (*pipeline.RunResponse, error)

	// Name returns the workflow name
	Name() string
}

// WorkflowRunner executes workflows, either in process or through the DBOS
// queue
type WorkflowRunner struct {
	workflows   map[string]Workflow
	dbosRuntime *dbosruntime.Runtime
}

// NewWorkflowRunner creates a runner. With a DBOS runtime the durable
// workflow function is registered; this must happen before Launch.
func NewWorkflowRunner(dbosRuntime *dbosruntime.Runtime) *WorkflowRunner {
	runner := &WorkflowRunner{
		workflows:   make(map[string]Workflow),
		dbosRuntime: dbosRuntime,
	}

	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), runner.executeWorkflowDBOS)
	}

	return runner
}

// Register registers the workflow of a task
func (r *WorkflowRunner) Register(task string, workflow Workflow) {
	r.workflows[task] = workflow
}

// Tasks returns the registered task ids
func (r *WorkflowRunner) Tasks() []string {
	out := make([]string, 0, len(r.workflows))
	for task := range r.workflows {
		out = append(out, task)
	}
	return out
}

func validate(req pipeline.RunRequest) error {
	if req.ItemID == "" {
		return fmt.Errorf("%w: item_id is required", ErrInvalidRequest)
	}
	if req.Task == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidRequest)
	}
	return nil
}

// Run executes a workflow synchronously
func (r *WorkflowRunner) Run(wctx *WorkflowContext) (*pipeline.RunResponse, error) {
	if err := validate(wctx.Request); err != nil {
		return nil, err
	}
	workflow, ok := r.workflows[wctx.Request.Task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, wctx.Request.Task)
	}

	return workflow.Execute(wctx)
}

// RunAsync enqueues a workflow on the DBOS queue and returns its run id
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.RunRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", errors.New("DBOS runtime not initialized")
	}
	if err := validate(req); err != nil {
		return "", err
	}
	if _, ok := r.workflows[req.Task]; !ok {
		return "", fmt.Errorf("%w: %s", ErrWorkflowNotFound, req.Task)
	}

	workflowID := fmt.Sprintf("%s-%s-%d", req.Task, req.ItemID, time.Now().UnixNano())

	handle, err := dbos.RunWorkflow[pipeline.RunRequest, pipeline.RunResponse](
		r.dbosRuntime.Context(),
		r.executeWorkflowDBOS,
		req,
		dbos.WithWorkflowID(workflowID),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", err
	}

	return handle.GetWorkflowID(), nil
}

// executeWorkflowDBOS is the durable workflow function
func (r *WorkflowRunner) executeWorkflowDBOS(dbosCtx dbos.DBOSContext, req pipeline.RunRequest) (pipeline.RunResponse, error) {
	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return pipeline.RunResponse{ItemID: req.ItemID, Task: req.Task, Status: pipeline.StatusError}, err
	}

	// DBOSContext implements context.Context
	resp, err := r.Run(&WorkflowContext{
		Ctx:     dbosCtx,
		Request: req,
		RunID:   workflowID,
	})
	if resp == nil {
		return pipeline.RunResponse{RunID: workflowID, ItemID: req.ItemID, Task: req.Task, Status: pipeline.StatusError}, err
	}
	return *resp, err
}

// WorkflowStatus represents the status of a queued run
type WorkflowStatus struct {
	RunID     string
	State     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetStatus reads the status of a queued run from the DBOS system tables
func (r *WorkflowRunner) GetStatus(ctx context.Context, runID string) (*WorkflowStatus, error) {
	if r.dbosRuntime == nil {
		return nil, errors.New("status tracking requires DBOS runtime")
	}

	info, err := r.dbosRuntime.GetWorkflowStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &WorkflowStatus{
		RunID:     info.WorkflowUUID,
		State:     info.Status,
		Name:      info.Name,
		CreatedAt: time.UnixMilli(info.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(info.UpdatedAt).UTC(),
	}, nil
}
