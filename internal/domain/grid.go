package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Coordinates holds the three axes of a gridded surface current field.
// Each axis must be strictly increasing.
type Coordinates struct {
	Times []time.Time
	Lats  []float64
	Lons  []float64
}

// Validate checks that all three axes are non-empty and strictly increasing.
func (c Coordinates) Validate() error {
	if len(c.Times) == 0 {
		return fmt.Errorf("time axis is empty")
	}
	if len(c.Lats) == 0 {
		return fmt.Errorf("latitude axis is empty")
	}
	if len(c.Lons) == 0 {
		return fmt.Errorf("longitude axis is empty")
	}
	for i := 1; i < len(c.Times); i++ {
		if !c.Times[i].After(c.Times[i-1]) {
			return fmt.Errorf("time axis must be strictly increasing")
		}
	}
	for i := 1; i < len(c.Lats); i++ {
		if c.Lats[i] <= c.Lats[i-1] {
			return fmt.Errorf("latitude axis must be strictly increasing")
		}
	}
	for i := 1; i < len(c.Lons); i++ {
		if c.Lons[i] <= c.Lons[i-1] {
			return fmt.Errorf("longitude axis must be strictly increasing")
		}
	}
	return nil
}

// Shape returns the axis lengths as (time, lat, lon).
func (c Coordinates) Shape() (nt, ny, nx int) {
	return len(c.Times), len(c.Lats), len(c.Lons)
}

// TimeStep returns the spacing between the first two time instants, or zero
// for a single-sample axis.
func (c Coordinates) TimeStep() time.Duration {
	if len(c.Times) < 2 {
		return 0
	}
	return c.Times[1].Sub(c.Times[0])
}

// Covers reports whether this coordinate span fully encloses the target's
// span on every axis.
func (c Coordinates) Covers(target Coordinates) bool {
	latOK := c.Lats[0] <= target.Lats[0] && c.Lats[len(c.Lats)-1] >= target.Lats[len(target.Lats)-1]
	lonOK := c.Lons[0] <= target.Lons[0] && c.Lons[len(c.Lons)-1] >= target.Lons[len(target.Lons)-1]
	timeOK := !c.Times[0].After(target.Times[0]) &&
		!c.Times[len(c.Times)-1].Before(target.Times[len(target.Times)-1])
	return latOK && lonOK && timeOK
}

// nearestIndex locates the axis index closest to x. Returns ErrOutOfDomain
// when x falls outside the axis span; no extrapolation.
func nearestIndex(axis []float64, x float64) (int, error) {
	if x < axis[0] || x > axis[len(axis)-1] {
		return 0, fmt.Errorf("%w: %.6f outside [%.6f, %.6f]", ErrOutOfDomain, x, axis[0], axis[len(axis)-1])
	}
	i := sort.SearchFloat64s(axis, x)
	if i == 0 {
		return 0, nil
	}
	if i == len(axis) || x-axis[i-1] <= axis[i]-x {
		return i - 1, nil
	}
	return i, nil
}

// nearestTimeIndex locates the time axis index closest to t, failing with
// ErrOutOfDomain outside the axis span.
func nearestTimeIndex(times []time.Time, t time.Time) (int, error) {
	if t.Before(times[0]) || t.After(times[len(times)-1]) {
		return 0, fmt.Errorf("%w: %s outside [%s, %s]",
			ErrOutOfDomain, t.Format(time.RFC3339), times[0].Format(time.RFC3339), times[len(times)-1].Format(time.RFC3339))
	}
	i := sort.Search(len(times), func(k int) bool { return !times[k].Before(t) })
	if i == 0 {
		return 0, nil
	}
	if i == len(times) || t.Sub(times[i-1]) <= times[i].Sub(t) {
		return i - 1, nil
	}
	return i, nil
}

// SurfaceGrid is a read-only view over a dataset's U/V current fields and
// their coordinate axes.
type SurfaceGrid struct {
	u, v   *Field3D
	coords Coordinates
}

// NewSurfaceGrid builds a grid view over a dataset, validating that the axes
// are monotonic and that U and V match the coordinate shape.
func NewSurfaceGrid(ds *Dataset) (*SurfaceGrid, error) {
	if err := ds.Coords.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coordinates: %w", err)
	}
	nt, ny, nx := ds.Coords.Shape()
	for name, f := range map[string]*Field3D{"U": ds.U, "V": ds.V} {
		if f == nil {
			return nil, fmt.Errorf("dataset has no %s field", name)
		}
		ft, fy, fx := f.Dims()
		if ft != nt || fy != ny || fx != nx {
			return nil, fmt.Errorf("%s shape %dx%dx%d does not match coordinates %dx%dx%d", name, ft, fy, fx, nt, ny, nx)
		}
	}
	return &SurfaceGrid{u: ds.U, v: ds.V, coords: ds.Coords}, nil
}

// Coords returns the grid's coordinate axes.
func (g *SurfaceGrid) Coords() Coordinates {
	return g.coords
}

// U returns the zonal current field.
func (g *SurfaceGrid) U() *Field3D { return g.u }

// V returns the meridional current field.
func (g *SurfaceGrid) V() *Field3D { return g.v }

// ValueAt resolves the current vector at the grid cell nearest to the query
// point. Fails with ErrOutOfDomain if the point lies outside the grid's
// coordinate span on any axis.
func (g *SurfaceGrid) ValueAt(at time.Time, lat, lon float64) (u, v float64, err error) {
	t, err := nearestTimeIndex(g.coords.Times, at)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	i, err := nearestIndex(g.coords.Lats, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	j, err := nearestIndex(g.coords.Lons, lon)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return g.u.At(t, i, j), g.v.At(t, i, j), nil
}

// ValueAtIndex resolves the current vector at a reference time index and a
// real-world lat/lon. The time index is taken as-is on the grid's own axis;
// an index past the axis counts as out of domain.
func (g *SurfaceGrid) ValueAtIndex(t int, lat, lon float64) (u, v float64, err error) {
	if t < 0 || t >= len(g.coords.Times) {
		return math.NaN(), math.NaN(), fmt.Errorf("%w: time index %d outside axis of length %d",
			ErrOutOfDomain, t, len(g.coords.Times))
	}
	i, err := nearestIndex(g.coords.Lats, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	j, err := nearestIndex(g.coords.Lons, lon)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return g.u.At(t, i, j), g.v.At(t, i, j), nil
}

// InvalidMask computes the invalid-cell mask over the grid's own U/V fields.
func (g *SurfaceGrid) InvalidMask() *Mask {
	m, _ := Invalid(g.u, g.v)
	return m
}
