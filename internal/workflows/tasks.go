package workflows

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// NewTransform builds the transform named by spec.Filter
func NewTransform(spec *config.DerivativeSpec, logger *slog.Logger) (Transform, error) {
	switch spec.Filter {
	case pipeline.TaskScaleImage:
		return NewScaleImage(spec, nil, logger)
	case pipeline.TaskExtractText:
		return NewExtractText(spec, nil, logger), nil
	}
	return nil, &config.ConfigurationError{
		Task: spec.TaskID,
		Key:  config.KeyFilterType,
		Err:  fmt.Errorf("%w: unknown filter %q", config.ErrInvalid, spec.Filter),
	}
}

// LoadTasks builds a MediaFilter for every named task and registers it on
// the runner
func LoadTasks(runner *WorkflowRunner, src config.Source, tasks []string, registry *formats.Registry, deps Dependencies) ([]*MediaFilter, error) {
	sorted := append([]string(nil), tasks...)
	sort.Strings(sorted)

	var out []*MediaFilter
	for _, task := range sorted {
		spec, err := config.LoadSpec(config.ForTask(src, task), registry)
		if err != nil {
			return nil, err
		}
		tr, err := NewTransform(spec, deps.Logger)
		if err != nil {
			return nil, err
		}
		m, err := NewMediaFilter(spec, tr, deps)
		if err != nil {
			return nil, err
		}
		if runner != nil {
			runner.Register(task, m)
		}
		out = append(out, m)
	}
	return out, nil
}
