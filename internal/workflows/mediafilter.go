// Package workflows runs media filter tasks: one pipeline, parameterised by
// a Transform, that selects the source assets of an item, produces a
// derivative for each, names and stores it, and assigns its access rules.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/ledger"
	"github.com/tendant/simple-content-mediafilter/internal/naming"
	"github.com/tendant/simple-content-mediafilter/internal/policy"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// Repository is the content store a media filter reads sources from and
// writes derivatives to
type Repository interface {
	GetItem(ctx context.Context, itemID string) (*content.Item, error)
	ListContainers(ctx context.Context, itemID string, name string) ([]*content.Container, error)
	CreateContainer(ctx context.Context, itemID string, name string) (*content.Container, error)
	ListAssets(ctx context.Context, containerID string) ([]*content.Asset, error)
	OpenAsset(ctx context.Context, assetID string) (io.ReadCloser, error)
	// CreateAsset must not link the asset before r is fully consumed
	CreateAsset(ctx context.Context, containerID string, meta content.AssetMeta, r io.Reader) (*content.Asset, error)
	RemoveAsset(ctx context.Context, containerID string, assetID string) error
}

// Transform produces the bytes of a derivative
type Transform interface {
	Name() string

	// Supports reports whether the transform can read the candidate
	Supports(c selector.Candidate) bool

	// Apply returns the derivative stream for src. Errors wrapping
	// ErrTransform fail only this asset; any other error aborts the run.
	Apply(ctx context.Context, item *content.Item, source *content.Asset, src io.Reader) (io.ReadCloser, error)
}

// Ledger records submissions and per-asset outcomes
type Ledger interface {
	Touch(ctx context.Context, itemID, task string) (int, error)
	Record(ctx context.Context, e ledger.Entry) error
}

// Dependencies are the collaborators of a MediaFilter. Ledger and Metrics
// are optional.
type Dependencies struct {
	Repository Repository
	Policies   policy.Store
	Ledger     Ledger
	Metrics    *Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// MediaFilter runs one configured task. It holds no per-run state and is
// safe for concurrent use.
type MediaFilter struct {
	spec      *config.DerivativeSpec
	transform Transform
	namer     *naming.Namer
	policies  *policy.Propagator
	deps      Dependencies
}

// NewMediaFilter creates the task pipeline
func NewMediaFilter(spec *config.DerivativeSpec, transform Transform, deps Dependencies) (*MediaFilter, error) {
	if deps.Repository == nil || deps.Policies == nil {
		return nil, errors.New("media filter needs a repository and a policy store")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	namer, err := naming.New(spec.TargetContainer, spec.TargetTemplate, spec.TargetFormat)
	if err != nil {
		return nil, &config.ConfigurationError{Task: spec.TaskID, Key: config.KeyTargetFormat, Err: err}
	}
	if !spec.Policy.Known() {
		deps.Logger.Warn("unknown policy configured, derivatives will get no access rules",
			"task", spec.TaskID, "policy", string(spec.Policy))
	}

	return &MediaFilter{
		spec:      spec,
		transform: transform,
		namer:     namer,
		policies:  policy.NewPropagator(deps.Policies, deps.Logger),
		deps:      deps,
	}, nil
}

// Name returns the workflow name
func (m *MediaFilter) Name() string {
	return "MediaFilter:" + m.transform.Name()
}

// Spec returns the task configuration
func (m *MediaFilter) Spec() *config.DerivativeSpec {
	return m.spec
}

// Execute implements Workflow
func (m *MediaFilter) Execute(wctx *WorkflowContext) (*pipeline.RunResponse, error) {
	return m.Run(wctx.Ctx, wctx.RunID, wctx.Request.ItemID)
}

type run struct {
	id     string
	item   *content.Item
	logger *slog.Logger
}

// Run processes every source asset of one item. Per-asset failures lower
// the status to fail; collaborator failures and cancellation stop the run
// with StatusError and are returned.
func (m *MediaFilter) Run(ctx context.Context, runID, itemID string) (*pipeline.RunResponse, error) {
	start := m.deps.Now()
	task := m.spec.TaskID
	logger := m.deps.Logger.With("run_id", runID, "task", task, "item_id", itemID)

	resp := &pipeline.RunResponse{RunID: runID, ItemID: itemID, Task: task}
	finish := func(status pipeline.Status, err error) (*pipeline.RunResponse, error) {
		resp.Status = status
		m.deps.Metrics.observeRun(task, status, m.deps.Now().Sub(start))
		if err != nil {
			logger.Error("media filter run aborted", "error", err)
			resp.Report = append(resp.Report, fmt.Sprintf("%s: error: %v", resp.Summary, err))
			return resp, err
		}
		logger.Info("media filter run finished", "status", string(status),
			"eligible", resp.Eligible, "filtered", resp.Filtered)
		return resp, nil
	}

	item, err := m.deps.Repository.GetItem(ctx, itemID)
	if errors.Is(err, content.ErrNotFound) {
		resp.Summary = "Object skipped"
		return finish(pipeline.StatusSkip, nil)
	}
	if err != nil {
		resp.Summary = "workspace item: " + itemID
		return finish(pipeline.StatusError, fmt.Errorf("failed to get item: %w", err))
	}
	resp.Summary = "Filtered item: " + item.DisplayID()

	if m.deps.Ledger != nil {
		seen, err := m.deps.Ledger.Touch(ctx, item.ID, task)
		if err != nil {
			return finish(pipeline.StatusError, err)
		}
		resp.SeenCount = seen
	}

	r := &run{id: runID, item: item, logger: logger}
	sel := selector.New(m.spec.Criteria(), m.targetLookup(item.ID), m.transform.Supports, logger)

	containers, err := m.deps.Repository.ListContainers(ctx, item.ID, m.spec.SourceContainer)
	if err != nil {
		return finish(pipeline.StatusError, fmt.Errorf("failed to list source containers: %w", err))
	}
	for _, c := range containers {
		assets, err := m.deps.Repository.ListAssets(ctx, c.ID)
		if err != nil {
			return finish(pipeline.StatusError, fmt.Errorf("failed to list assets of %s: %w", c.Name, err))
		}
		for _, asset := range assets {
			if err := ctx.Err(); err != nil {
				return finish(pipeline.StatusError, err)
			}

			verdict, err := sel.Evaluate(ctx, candidate(asset))
			if err != nil {
				return finish(pipeline.StatusError, err)
			}
			if !verdict.Eligible {
				continue
			}
			resp.Eligible++
			m.deps.Metrics.observeAsset(task, AssetEligible)

			line, ok, err := m.filterAsset(ctx, r, asset)
			if err != nil {
				return finish(pipeline.StatusError, err)
			}
			resp.Report = append(resp.Report, line)
			if ok {
				resp.Filtered++
				m.deps.Metrics.observeAsset(task, AssetFiltered)
			} else {
				m.deps.Metrics.observeAsset(task, AssetFailed)
			}
		}
	}

	status := Aggregate(resp.Eligible, resp.Filtered)
	if status == pipeline.StatusFail {
		resp.Report = append(resp.Report, resp.Summary+": failed!")
	}
	return finish(status, nil)
}

// Aggregate derives the run status from the asset counts
func Aggregate(eligible, filtered int) pipeline.Status {
	switch {
	case eligible == 0:
		return pipeline.StatusSkip
	case filtered == eligible:
		return pipeline.StatusSuccess
	}
	return pipeline.StatusFail
}

func candidate(a *content.Asset) selector.Candidate {
	return selector.Candidate{
		Name:       a.Name,
		Size:       a.Size,
		MediaType:  a.MediaType,
		Format:     a.Format,
		Extensions: a.Extensions,
	}
}

func (m *MediaFilter) targetLookup(itemID string) selector.TargetLookup {
	return func(ctx context.Context, c selector.Candidate) (bool, error) {
		existing, err := m.namer.Existing(ctx, m.deps.Repository, itemID, c.Name)
		return existing != nil, err
	}
}

// filterAsset produces the derivative of one eligible asset. It reports
// the report line and whether a derivative was produced; a non-nil error
// aborts the run.
func (m *MediaFilter) filterAsset(ctx context.Context, r *run, source *content.Asset) (string, bool, error) {
	logger := r.logger.With("asset", source.Name)
	name := m.namer.Name(source.Name)

	src, err := m.deps.Repository.OpenAsset(ctx, source.ID)
	if err != nil {
		return "", false, fmt.Errorf("failed to open %s: %w", source.Name, err)
	}
	defer src.Close()

	fail := func(cause error) (string, bool, error) {
		logger.Warn("derivative not produced", "error", cause)
		if err := m.record(ctx, r, source.Name, name, ledger.OutcomeFailed, "", cause.Error()); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("%s: failed: %v", source.Name, cause), false, nil
	}

	out, err := m.transform.Apply(ctx, r.item, source, src)
	if err != nil {
		if errors.Is(err, ErrTransform) && ctx.Err() == nil {
			return fail(err)
		}
		return "", false, fmt.Errorf("transform of %s: %w", source.Name, err)
	}
	defer out.Close()

	digest := ledger.NewDigest()
	created, err := m.createDerivative(ctx, r, source, &derivativeReader{r: out, h: digest})
	if err != nil {
		var serr *streamError
		if errors.As(err, &serr) && ctx.Err() == nil {
			return fail(fmt.Errorf("%w: %w", ErrTransform, serr.err))
		}
		return "", false, err
	}

	hex := ledger.HexDigest(digest)
	logger.Info("derivative produced", "derivative", created.Name, "size", created.Size, "digest", hex)
	if err := m.record(ctx, r, source.Name, created.Name, ledger.OutcomeFiltered, hex, ""); err != nil {
		return "", false, err
	}
	return fmt.Sprintf("%s: filtered as %s", source.Name, created.Name), true, nil
}

func (m *MediaFilter) record(ctx context.Context, r *run, sourceName, derivativeName string, outcome ledger.Outcome, digest, detail string) error {
	if m.deps.Ledger == nil {
		return nil
	}
	err := m.deps.Ledger.Record(ctx, ledger.Entry{
		RunID:          r.id,
		Task:           m.spec.TaskID,
		ItemID:         r.item.ID,
		SourceName:     sourceName,
		DerivativeName: derivativeName,
		Outcome:        outcome,
		Digest:         digest,
		Detail:         detail,
		RecordedAt:     m.deps.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome of %s: %w", sourceName, err)
	}
	return nil
}

// createDerivative stores the derivative, assigns its rules and only then
// removes a previous derivative of the same name
func (m *MediaFilter) createDerivative(ctx context.Context, r *run, source *content.Asset, body io.Reader) (*content.Asset, error) {
	repo := m.deps.Repository
	name := m.namer.Name(source.Name)

	existing, err := m.namer.Existing(ctx, repo, r.item.ID, source.Name)
	if err != nil {
		return nil, err
	}

	containers, err := repo.ListContainers(ctx, r.item.ID, m.namer.Container())
	if err != nil {
		return nil, fmt.Errorf("failed to list target containers: %w", err)
	}
	var target *content.Container
	if len(containers) > 0 {
		target = containers[0]
	} else {
		if target, err = repo.CreateContainer(ctx, r.item.ID, m.namer.Container()); err != nil {
			return nil, fmt.Errorf("failed to create target container: %w", err)
		}
	}

	f := m.spec.TargetFormat
	created, err := repo.CreateAsset(ctx, target.ID, content.AssetMeta{
		Name:        name,
		MediaType:   f.MediaType,
		Format:      f.ShortDescription,
		Extensions:  slices.Clone(f.Extensions),
		Description: m.spec.TargetDescription,
		Source:      m.sourceNote(),
	}, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create derivative %s: %w", name, err)
	}

	err = m.policies.Apply(ctx, m.spec.Policy, created.ID, policy.Donors{
		Source:     source.ID,
		Container:  target.ID,
		Item:       r.item.ID,
		Collection: r.item.CollectionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign policy to %s: %w", name, err)
	}

	if existing != nil {
		if err := repo.RemoveAsset(ctx, existing.ContainerID, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to remove previous %s: %w", name, err)
		}
		r.logger.Debug("replaced previous derivative", "derivative", name, "previous_id", existing.ID)
	}
	return created, nil
}

func (m *MediaFilter) sourceNote() string {
	return fmt.Sprintf("Written by curation task %s on %s (GMT).",
		m.spec.TaskID, m.deps.Now().UTC().Format(time.RFC3339))
}

// derivativeReader hashes what it reads and tags read errors
type derivativeReader struct {
	r io.Reader
	h hash.Hash
}

func (d *derivativeReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.h.Write(p[:n])
	if err != nil && err != io.EOF {
		err = &streamError{err: err}
	}
	return n, err
}
