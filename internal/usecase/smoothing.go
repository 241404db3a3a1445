package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/domain"
	"go.ngs.io/currents-api/internal/engine"
)

// SmoothingStep delegates residual smoothing of the (mostly filled) arrays
// to an external numerical engine, one 2-D slab pair per time step. An
// optional static no-data mask forces cells back to NaN after smoothing so
// the engine cannot hallucinate values onto invalid geography.
type SmoothingStep struct {
	smoother engine.Smoother
	mask     Reference // Optional; nil disables masking.
	robust   bool
	loader   store.DatasetLoader
	logger   *slog.Logger
}

// NewSmoothingStep creates the step. mask may be nil.
func NewSmoothingStep(smoother engine.Smoother, mask Reference, robust bool, loader store.DatasetLoader, logger *slog.Logger) *SmoothingStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SmoothingStep{smoother: smoother, mask: mask, robust: robust, loader: loader, logger: logger}
}

func newSmoothingStepFromArgs(args map[string]any, deps StepDeps) (GapfillStep, error) {
	if deps.Smoother == nil {
		return nil, fmt.Errorf("no smoothing engine configured")
	}

	var mask Reference
	if raw, ok := args["mask"]; ok && raw != nil {
		ref, err := NewReference(raw)
		if err != nil {
			return nil, err
		}
		if _, isLocator := ref.(LocatorReference); isLocator && deps.Loader == nil {
			return nil, fmt.Errorf("mask %s requires a dataset loader", ref.describe())
		}
		mask = ref
	}

	robust := true
	if raw, ok := args["robust"]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return nil, fmt.Errorf("robust argument must be a boolean, got %T", raw)
		}
		robust = b
	}

	return NewSmoothingStep(deps.Smoother, mask, robust, deps.Loader, deps.Logger), nil
}

// Kind returns the registry name of the step.
func (s *SmoothingStep) Kind() string { return "smoothing" }

// Process smooths every time slab through the external engine. Engine
// failures and mask shape mismatches are fatal for the run.
func (s *SmoothingStep) Process(ctx context.Context, u, v *domain.Field3D, target *domain.Dataset) (*domain.Field3D, *domain.Field3D, error) {
	targetGrid, err := domain.NewSurfaceGrid(target)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid target: %w", err)
	}

	noData, err := s.resolveMask(ctx, targetGrid)
	if err != nil {
		return nil, nil, err
	}

	outU := u.Clone()
	outV := v.Clone()
	nt, ny, nx := outU.Dims()
	s.logger.Info("smoothing fields", "count", nt, "robust", s.robust)

	for t := 0; t < nt; t++ {
		su, sv, err := s.smoother.Smooth(ctx, outU.Slab(t), outV.Slab(t), s.robust)
		if err != nil {
			return nil, nil, fmt.Errorf("time step %d: %w", t, err)
		}
		if err := outU.SetSlab(t, su); err != nil {
			return nil, nil, fmt.Errorf("%w: time step %d: %v", domain.ErrEngineFailure, t, err)
		}
		if err := outV.SetSlab(t, sv); err != nil {
			return nil, nil, fmt.Errorf("%w: time step %d: %v", domain.ErrEngineFailure, t, err)
		}
	}

	if noData != nil {
		nan := math.NaN()
		for t := 0; t < nt; t++ {
			for i := 0; i < ny; i++ {
				for j := 0; j < nx; j++ {
					if noData[i][j] {
						outU.Set(t, i, j, nan)
						outV.Set(t, i, j, nan)
					}
				}
			}
		}
	}

	return outU, outV, nil
}

// resolveMask loads the optional no-data mask and checks that it matches the
// target's lat/lon grid exactly; a mask of a different resolution cannot be
// applied cell-for-cell.
func (s *SmoothingStep) resolveMask(ctx context.Context, target *domain.SurfaceGrid) ([][]bool, error) {
	if s.mask == nil {
		return nil, nil
	}

	grid, err := s.mask.resolve(ctx, target, s.loader)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mask %s: %w", s.mask.describe(), err)
	}

	targetCoords := target.Coords()
	maskCoords := grid.Coords()
	if len(maskCoords.Lats) != len(targetCoords.Lats) || len(maskCoords.Lons) != len(targetCoords.Lons) {
		return nil, fmt.Errorf("%w: mask is %dx%d, target is %dx%d",
			domain.ErrIncompatibleMaskShape,
			len(maskCoords.Lats), len(maskCoords.Lons),
			len(targetCoords.Lats), len(targetCoords.Lons))
	}
	if maskCoords.Lats[0] != targetCoords.Lats[0] ||
		maskCoords.Lats[len(maskCoords.Lats)-1] != targetCoords.Lats[len(targetCoords.Lats)-1] ||
		maskCoords.Lons[0] != targetCoords.Lons[0] ||
		maskCoords.Lons[len(maskCoords.Lons)-1] != targetCoords.Lons[len(targetCoords.Lons)-1] {
		return nil, fmt.Errorf("%w: mask axis bounds differ from target's", domain.ErrIncompatibleMaskShape)
	}

	// A geography mask is time-invariant; its first slab decides which
	// cells carry no data.
	invalid := grid.InvalidMask()
	_, ny, nx := invalid.Dims()
	noData := make([][]bool, ny)
	for i := 0; i < ny; i++ {
		noData[i] = make([]bool, nx)
		for j := 0; j < nx; j++ {
			noData[i][j] = invalid.At(0, i, j)
		}
	}
	return noData, nil
}
