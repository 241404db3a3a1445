package usecase

import (
	"context"
	"fmt"
	"time"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/domain"
)

// Reference identifies a donor grid consulted during interpolation: either
// an already-resolved in-memory grid or a locator resolved through a
// DatasetLoader. The variant is fixed when the step is constructed; loading
// happens at process time because cropping needs the target's span.
type Reference interface {
	resolve(ctx context.Context, target *domain.SurfaceGrid, loader store.DatasetLoader) (*domain.SurfaceGrid, error)
	describe() string
}

// ResolvedReference wraps a grid already held in memory.
type ResolvedReference struct {
	Grid *domain.SurfaceGrid
}

func (r ResolvedReference) resolve(_ context.Context, _ *domain.SurfaceGrid, _ store.DatasetLoader) (*domain.SurfaceGrid, error) {
	return r.Grid, nil
}

func (r ResolvedReference) describe() string {
	nt, ny, nx := r.Grid.Coords().Shape()
	return fmt.Sprintf("grid[%dx%dx%d]", nt, ny, nx)
}

// LocatorReference names a dataset to be loaded and cropped on use.
type LocatorReference struct {
	Locator string
}

func (r LocatorReference) resolve(ctx context.Context, target *domain.SurfaceGrid, loader store.DatasetLoader) (*domain.SurfaceGrid, error) {
	if loader == nil {
		return nil, fmt.Errorf("no dataset loader configured for locator %q", r.Locator)
	}
	ds, err := loader.Load(ctx, r.Locator)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference %q: %w", r.Locator, err)
	}

	// Crop to the target's span before building the grid; source datasets
	// can be huge.
	coords := target.Coords()
	sliced, err := store.Slice(ds,
		[2]time.Time{coords.Times[0], coords.Times[len(coords.Times)-1]},
		[2]float64{coords.Lats[0], coords.Lats[len(coords.Lats)-1]},
		[2]float64{coords.Lons[0], coords.Lons[len(coords.Lons)-1]},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to crop reference %q to target span: %w", r.Locator, err)
	}
	return domain.NewSurfaceGrid(sliced)
}

func (r LocatorReference) describe() string {
	return r.Locator
}

// NewReference classifies a reference value into its sum-type variant.
// Unrecognized representations fail with ErrUnsupportedReferenceType.
func NewReference(v any) (Reference, error) {
	switch ref := v.(type) {
	case Reference:
		return ref, nil
	case *domain.SurfaceGrid:
		return ResolvedReference{Grid: ref}, nil
	case *domain.Dataset:
		grid, err := domain.NewSurfaceGrid(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid reference dataset: %w", err)
		}
		return ResolvedReference{Grid: grid}, nil
	case string:
		return LocatorReference{Locator: ref}, nil
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnsupportedReferenceType, v)
	}
}
