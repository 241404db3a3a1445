// Package usecase implements the gap-filling pipeline over gridded surface
// current datasets.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/domain"
	"go.ngs.io/currents-api/internal/engine"
)

// GapfillStep is one stage of the pipeline. It receives the
// progressively-filled U/V arrays and the target dataset (for its coordinate
// envelope) and returns replacement arrays of identical shape. Ownership of
// the input arrays transfers to the step; implementations may not retain
// references to the arrays they return.
type GapfillStep interface {
	// Kind returns the registry name of the step.
	Kind() string

	// Process runs the step over the current U/V estimate.
	Process(ctx context.Context, u, v *domain.Field3D, target *domain.Dataset) (*domain.Field3D, *domain.Field3D, error)
}

// StepReport summarizes one step's effect on the invalid-cell count.
type StepReport struct {
	Step          string `json:"step"`
	InvalidBefore int    `json:"invalid_before"`
	InvalidAfter  int    `json:"invalid_after"`
}

// Gapfiller runs an ordered sequence of gap-filling steps over a target
// dataset and rebuilds a complete output dataset from the results.
type Gapfiller struct {
	steps  []GapfillStep
	logger *slog.Logger
}

// NewGapfiller creates a pipeline with the given steps. A nil logger falls
// back to slog.Default().
func NewGapfiller(logger *slog.Logger, steps ...GapfillStep) *Gapfiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gapfiller{steps: steps, logger: logger}
}

// AddSteps appends steps to the pipeline in order.
func (g *Gapfiller) AddSteps(steps ...GapfillStep) {
	g.steps = append(g.steps, steps...)
}

// Execute threads the target's U/V arrays through every step in order and
// reassembles a dataset carrying the original coordinate and metadata
// envelope. The target itself is never mutated: the caller receives either a
// fully reconstructed dataset or an error.
func (g *Gapfiller) Execute(ctx context.Context, target *domain.Dataset) (*domain.Dataset, []StepReport, error) {
	if _, err := domain.NewSurfaceGrid(target); err != nil {
		return nil, nil, fmt.Errorf("invalid target dataset: %w", err)
	}

	u := target.U.Clone()
	v := target.V.Clone()

	reports := make([]StepReport, 0, len(g.steps))
	for _, step := range g.steps {
		before, err := domain.Invalid(u, v)
		if err != nil {
			return nil, nil, err
		}
		g.logger.Info("running gapfill step", "step", step.Kind(), "invalid", before.Count())

		u, v, err = step.Process(ctx, u, v, target)
		if err != nil {
			return nil, nil, fmt.Errorf("step %s: %w", step.Kind(), err)
		}
		if !u.SameShape(target.U) || !v.SameShape(target.V) {
			return nil, nil, fmt.Errorf("step %s altered array shape", step.Kind())
		}

		after, err := domain.Invalid(u, v)
		if err != nil {
			return nil, nil, err
		}
		g.logger.Info("completed gapfill step", "step", step.Kind(), "invalid", after.Count())
		reports = append(reports, StepReport{Step: step.Kind(), InvalidBefore: before.Count(), InvalidAfter: after.Count()})
	}

	out, err := target.WithCurrents(u, v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rebuild dataset: %w", err)
	}
	return out, reports, nil
}

// StepDeps carries the collaborators steps may need when built from
// declarative configuration.
type StepDeps struct {
	Loader   store.DatasetLoader
	Smoother engine.Smoother
	Logger   *slog.Logger
}

// StepConfig is one declarative step record.
type StepConfig struct {
	Name string         `yaml:"name" json:"name"`
	Args map[string]any `yaml:"args" json:"args"`
}

type stepConstructor func(args map[string]any, deps StepDeps) (GapfillStep, error)

// stepRegistry is the fixed set of known step kinds.
var stepRegistry = map[string]stepConstructor{
	"interpolation": newInterpolationStepFromArgs,
	"smoothing":     newSmoothingStepFromArgs,
}

// StepKinds lists the registered step names.
func StepKinds() []string {
	kinds := make([]string, 0, len(stepRegistry))
	for name := range stepRegistry {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)
	return kinds
}

// NewGapfillerFromConfig resolves an ordered list of step records against
// the registry. Unregistered names fail with ErrUnknownStepKind before any
// numeric work begins.
func NewGapfillerFromConfig(cfgs []StepConfig, deps StepDeps) (*Gapfiller, error) {
	steps := make([]GapfillStep, 0, len(cfgs))
	for _, cfg := range cfgs {
		build, ok := stepRegistry[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known kinds: %v)", domain.ErrUnknownStepKind, cfg.Name, StepKinds())
		}
		step, err := build(cfg.Args, deps)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", cfg.Name, err)
		}
		steps = append(steps, step)
	}
	return NewGapfiller(deps.Logger, steps...), nil
}
