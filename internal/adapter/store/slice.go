package store

import (
	"fmt"
	"sort"
	"time"

	"go.ngs.io/currents-api/internal/adapter/interp"
	"go.ngs.io/currents-api/internal/domain"
)

// Slice crops a dataset to the smallest sub-grid enclosing the given time,
// latitude, and longitude ranges. Source datasets can be huge; cropping
// before further processing keeps memory bounded. The crop is inclusive: the
// returned grid extends one coordinate beyond each range bound where the
// source axis allows, so the result still encloses the requested ranges.
func Slice(ds *domain.Dataset, timeRange [2]time.Time, latRange, lonRange [2]float64) (*domain.Dataset, error) {
	t0, t1, err := timeIntervalIndices(ds.Coords.Times, timeRange[0], timeRange[1])
	if err != nil {
		return nil, fmt.Errorf("time axis: %w", err)
	}
	y0, y1, err := interp.IntervalIndices(ds.Coords.Lats, latRange[0], latRange[1], true)
	if err != nil {
		return nil, fmt.Errorf("latitude axis: %w", err)
	}
	x0, x1, err := interp.IntervalIndices(ds.Coords.Lons, lonRange[0], lonRange[1], true)
	if err != nil {
		return nil, fmt.Errorf("longitude axis: %w", err)
	}

	coords := domain.Coordinates{
		Times: ds.Coords.Times[t0:t1],
		Lats:  ds.Coords.Lats[y0:y1],
		Lons:  ds.Coords.Lons[x0:x1],
	}

	u, err := cropField(ds.U, t0, t1, y0, y1, x0, x1)
	if err != nil {
		return nil, fmt.Errorf("crop U: %w", err)
	}
	v, err := cropField(ds.V, t0, t1, y0, y1, x0, x1)
	if err != nil {
		return nil, fmt.Errorf("crop V: %w", err)
	}

	// Cropping drops the extra-variable envelope: sliced datasets feed the
	// interpolation step as references and never round-trip to disk.
	return &domain.Dataset{
		Coords: coords,
		U:      u,
		V:      v,
		Attrs:  ds.Attrs,
		UAttrs: ds.UAttrs,
		VAttrs: ds.VAttrs,
	}, nil
}

func cropField(f *domain.Field3D, t0, t1, y0, y1, x0, x1 int) (*domain.Field3D, error) {
	nt, ny, nx := f.Dims()
	if t1 > nt || y1 > ny || x1 > nx {
		return nil, fmt.Errorf("crop bounds exceed field dimensions %dx%dx%d", nt, ny, nx)
	}
	out := domain.NewField3D(t1-t0, y1-y0, x1-x0)
	for t := t0; t < t1; t++ {
		for i := y0; i < y1; i++ {
			for j := x0; j < x1; j++ {
				out.Set(t-t0, i-y0, j-x0, f.At(t, i, j))
			}
		}
	}
	return out, nil
}

// timeIntervalIndices is the inclusive interval crop over the time axis.
func timeIntervalIndices(times []time.Time, min, max time.Time) (lo, hi int, err error) {
	if min.After(max) {
		return 0, 0, fmt.Errorf("invalid interval: %s > %s", min.Format(time.RFC3339), max.Format(time.RFC3339))
	}
	lo = sort.Search(len(times), func(i int) bool { return !times[i].Before(min) })
	hi = sort.Search(len(times), func(i int) bool { return times[i].After(max) })
	if lo >= hi {
		return 0, 0, fmt.Errorf("interval [%s, %s] does not intersect time axis",
			min.Format(time.RFC3339), max.Format(time.RFC3339))
	}
	if lo > 0 && times[lo].After(min) {
		lo--
	}
	if hi < len(times) && times[hi-1].Before(max) {
		hi++
	}
	return lo, hi, nil
}
