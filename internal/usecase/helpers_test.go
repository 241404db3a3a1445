package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"go.ngs.io/currents-api/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hours(n int) []time.Time {
	return hoursStep(n, time.Hour)
}

func hoursStep(n int, step time.Duration) []time.Time {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * step)
	}
	return times
}

// uniformDataset builds a dataset with constant U/V everywhere.
func uniformDataset(times []time.Time, lats, lons []float64, uVal, vVal float64) *domain.Dataset {
	nt, ny, nx := len(times), len(lats), len(lons)
	u := domain.NewField3D(nt, ny, nx)
	v := domain.NewField3D(nt, ny, nx)
	for t := 0; t < nt; t++ {
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				u.Set(t, i, j, uVal)
				v.Set(t, i, j, vVal)
			}
		}
	}
	return &domain.Dataset{
		Coords: domain.Coordinates{Times: times, Lats: lats, Lons: lons},
		U:      u,
		V:      v,
	}
}

// gappyTarget builds the 2x2x2 target from the worked example: per time
// step, U = [[NaN, 0.01], [0, 0]] and V likewise.
func gappyTarget() *domain.Dataset {
	ds := uniformDataset(hours(2), []float64{32.0, 32.1}, []float64{-117.2, -117.1}, 0, 0)
	for t := 0; t < 2; t++ {
		ds.U.Set(t, 0, 0, math.NaN())
		ds.V.Set(t, 0, 0, math.NaN())
		ds.U.Set(t, 0, 1, 0.01)
		ds.V.Set(t, 0, 1, 0.01)
	}
	return ds
}

func mustGrid(t *testing.T, ds *domain.Dataset) *domain.SurfaceGrid {
	t.Helper()
	grid, err := domain.NewSurfaceGrid(ds)
	if err != nil {
		t.Fatalf("NewSurfaceGrid: %v", err)
	}
	return grid
}

// fakeLoader serves datasets from memory by locator.
type fakeLoader struct {
	datasets map[string]*domain.Dataset
}

func (l *fakeLoader) Load(_ context.Context, locator string) (*domain.Dataset, error) {
	ds, ok := l.datasets[locator]
	if !ok {
		return nil, fmt.Errorf("no dataset for locator %q", locator)
	}
	return ds, nil
}

// fakeSmoother returns constant slabs, or a fixed error.
type fakeSmoother struct {
	fill  float64
	err   error
	calls int
}

func (f *fakeSmoother) Smooth(_ context.Context, u, _ [][]float64, _ bool) ([][]float64, [][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	su := make([][]float64, len(u))
	sv := make([][]float64, len(u))
	for i := range u {
		su[i] = make([]float64, len(u[i]))
		sv[i] = make([]float64, len(u[i]))
		for j := range u[i] {
			su[i][j] = f.fill
			sv[i][j] = f.fill
		}
	}
	return su, sv, nil
}

func (f *fakeSmoother) Close() error { return nil }
