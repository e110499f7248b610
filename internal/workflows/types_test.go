package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

func TestWorkflowRunnerRun(t *testing.T) {
	f := newFixture(t)
	f.addSource(t, "fig1.tif", "image/tiff", "TIFF", tiffImage(t, 40, 30))

	runner := NewWorkflowRunner(nil)
	runner.Register(pipeline.TaskScaleImage, newScaleFilter(t, f.deps(), nil))
	assert.Equal(t, []string{pipeline.TaskScaleImage}, runner.Tasks())

	resp, err := runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: pipeline.RunRequest{ItemID: f.item.ID, Task: pipeline.TaskScaleImage},
		RunID:   "run-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
}

func TestWorkflowRunnerRejects(t *testing.T) {
	runner := NewWorkflowRunner(nil)
	ctx := context.Background()

	_, err := runner.Run(&WorkflowContext{Ctx: ctx, Request: pipeline.RunRequest{ItemID: "x", Task: "nope"}})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = runner.Run(&WorkflowContext{Ctx: ctx, Request: pipeline.RunRequest{Task: "nope"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = runner.RunAsync(ctx, pipeline.RunRequest{ItemID: "x", Task: pipeline.TaskScaleImage})
	assert.Error(t, err)

	_, err = runner.GetStatus(ctx, "run-1")
	assert.Error(t, err)
}
