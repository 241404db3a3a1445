package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/domain"
)

// InterpolationStep fills invalid cells from a priority-ordered list of
// reference grids. Each reference is consulted against the invalid set left
// by its predecessors, so the invalid set shrinks monotonically; cells no
// reference can serve stay NaN.
type InterpolationStep struct {
	references []Reference
	loader     store.DatasetLoader
	logger     *slog.Logger
}

// NewInterpolationStep creates the step. References are consulted in the
// given order; earlier references are preferred.
func NewInterpolationStep(references []Reference, loader store.DatasetLoader, logger *slog.Logger) *InterpolationStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterpolationStep{references: references, loader: loader, logger: logger}
}

func newInterpolationStepFromArgs(args map[string]any, deps StepDeps) (GapfillStep, error) {
	raw, ok := args["references"]
	if !ok {
		return NewInterpolationStep(nil, deps.Loader, deps.Logger), nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("references argument must be a list, got %T", raw)
	}
	refs := make([]Reference, 0, len(list))
	for _, v := range list {
		ref, err := NewReference(v)
		if err != nil {
			return nil, err
		}
		if _, isLocator := ref.(LocatorReference); isLocator && deps.Loader == nil {
			return nil, fmt.Errorf("reference %s requires a dataset loader", ref.describe())
		}
		refs = append(refs, ref)
	}
	return NewInterpolationStep(refs, deps.Loader, deps.Logger), nil
}

// Kind returns the registry name of the step.
func (s *InterpolationStep) Kind() string { return "interpolation" }

// Process runs the fill. Reference resolution or coverage failures skip that
// reference with a warning; the pipeline continues with the remaining ones.
func (s *InterpolationStep) Process(ctx context.Context, u, v *domain.Field3D, target *domain.Dataset) (*domain.Field3D, *domain.Field3D, error) {
	targetGrid, err := domain.NewSurfaceGrid(target)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid target: %w", err)
	}

	invalid, err := domain.Invalid(u, v)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("total invalid values on target data", "count", invalid.Count())

	outU := u.Clone()
	outV := v.Clone()

	for _, ref := range s.references {
		if invalid.Count() == 0 {
			break
		}

		grid, err := ref.resolve(ctx, targetGrid, s.loader)
		if err != nil {
			s.logger.Warn("skipping reference", "reference", ref.describe(), "error", err)
			continue
		}
		if err := validateCoverage(targetGrid, grid); err != nil {
			s.logger.Warn("skipping reference", "reference", ref.describe(), "error", err)
			continue
		}

		cells := invalid.Positions()
		s.logger.Info("attempting to interpolate points", "reference", ref.describe(), "count", len(cells))

		fills, err := s.lookupCells(ctx, cells, targetGrid, grid)
		if err != nil {
			return nil, nil, err
		}
		for i, cell := range cells {
			outU.Set(cell.T, cell.Y, cell.X, fills[i][0])
			outV.Set(cell.T, cell.Y, cell.X, fills[i][1])
		}

		prev := len(cells)
		invalid, err = domain.Invalid(outU, outV)
		if err != nil {
			return nil, nil, err
		}
		s.logger.Info("interpolated from reference",
			"reference", ref.describe(),
			"invalid", invalid.Count(),
			"filled", prev-invalid.Count())
	}

	s.logger.Info("total invalid values after interpolation", "count", invalid.Count())
	return outU, outV, nil
}

// lookupCells resolves donor values for every invalid cell. Cells are
// independent, so the lookup fans out across workers.
func (s *InterpolationStep) lookupCells(ctx context.Context, cells []domain.CellIndex, target, ref *domain.SurfaceGrid) ([][2]float64, error) {
	fills := make([][2]float64, len(cells))
	targetCoords := target.Coords()
	targetStep := targetCoords.TimeStep()
	refStep := ref.Coords().TimeStep()
	refLen := len(ref.Coords().Times)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(cells) {
		workers = len(cells)
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(cells) + workers - 1) / workers
	for start := 0; start < len(cells); start += chunk {
		end := start + chunk
		if end > len(cells) {
			end = len(cells)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cell := cells[i]
				lat := targetCoords.Lats[cell.Y]
				lon := targetCoords.Lons[cell.X]
				fills[i] = lookupDonor(ref, cell.T, targetStep, refStep, refLen, lat, lon)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fills, nil
}

// lookupDonor fetches the reference value for one invalid cell, returning a
// NaN pair when the reference has no data there. A donor whose own value is
// invalid is rejected so that one grid's gap never propagates into another.
func lookupDonor(ref *domain.SurfaceGrid, t int, targetStep, refStep time.Duration, refLen int, lat, lon float64) [2]float64 {
	noData := [2]float64{math.NaN(), math.NaN()}

	refIdx, ok := mapTimeIndex(t, targetStep, refStep, refLen)
	if !ok {
		return noData
	}
	ru, rv, err := ref.ValueAtIndex(refIdx, lat, lon)
	if err != nil {
		// Out-of-span lookups count as "no data"; never extrapolate.
		return noData
	}
	if domain.IsInvalidSample(ru, rv) {
		return noData
	}
	return [2]float64{ru, rv}
}

// mapTimeIndex maps a target time index onto a reference's time axis via the
// integer ratio of the two grids' time steps, handling coarser and finer
// reference resolutions. Indices past the reference axis report ok=false.
func mapTimeIndex(t int, targetStep, refStep time.Duration, refLen int) (int, bool) {
	idx := t
	switch {
	case targetStep == 0 || refStep == 0 || targetStep == refStep:
		// Degenerate or matching resolution: indices map one-to-one.
	case refStep > targetStep:
		ratio := int(refStep / targetStep)
		if ratio < 1 {
			ratio = 1
		}
		idx = t / ratio
	default:
		ratio := int(targetStep / refStep)
		if ratio < 1 {
			ratio = 1
		}
		idx = t * ratio
	}
	if idx < 0 || idx >= refLen {
		return 0, false
	}
	return idx, true
}

// validateCoverage enforces that a reference fully encloses the target
// domain on every axis.
func validateCoverage(target, ref *domain.SurfaceGrid) error {
	if !ref.Coords().Covers(target.Coords()) {
		return fmt.Errorf("%w: reference dimension ranges must enclose the target's", domain.ErrInsufficientCoverage)
	}
	return nil
}
