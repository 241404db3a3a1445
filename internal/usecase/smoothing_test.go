package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.ngs.io/currents-api/internal/domain"
)

func TestSmoothingReplacesSlabs(t *testing.T) {
	target := gappyTarget()
	sm := &fakeSmoother{fill: 0.5}

	step := NewSmoothingStep(sm, nil, true, nil, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if sm.calls != 2 {
		t.Errorf("engine calls = %d, want one per time step", sm.calls)
	}
	for tt := 0; tt < 2; tt++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				if u.At(tt, i, j) != 0.5 || v.At(tt, i, j) != 0.5 {
					t.Fatalf("cell (%d,%d,%d) = (%v,%v), want (0.5,0.5)",
						tt, i, j, u.At(tt, i, j), v.At(tt, i, j))
				}
			}
		}
	}
	// Inputs were not overwritten in place.
	if !math.IsNaN(target.U.At(0, 0, 0)) {
		t.Error("target mutated")
	}
}

func TestSmoothingMaskForcesNoDataCells(t *testing.T) {
	target := gappyTarget()

	// Mask with the target's lat/lon axes; cell (1,1) carries no data.
	mask := uniformDataset(hours(1), []float64{32.0, 32.1}, []float64{-117.2, -117.1}, 0.1, 0.1)
	mask.U.Set(0, 1, 1, math.NaN())
	mask.V.Set(0, 1, 1, math.NaN())

	step := NewSmoothingStep(&fakeSmoother{fill: 0.5}, ResolvedReference{Grid: mustGrid(t, mask)}, true, nil, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for tt := 0; tt < 2; tt++ {
		if !math.IsNaN(u.At(tt, 1, 1)) || !math.IsNaN(v.At(tt, 1, 1)) {
			t.Errorf("masked cell (%d,1,1) = (%v,%v), want NaN", tt, u.At(tt, 1, 1), v.At(tt, 1, 1))
		}
		if got := u.At(tt, 0, 0); got != 0.5 {
			t.Errorf("unmasked cell (%d,0,0) = %v, want 0.5", tt, got)
		}
	}
}

func TestSmoothingRejectsMismatchedMask(t *testing.T) {
	target := gappyTarget()

	tests := []struct {
		name string
		lats []float64
		lons []float64
	}{
		{"different resolution", []float64{32.0, 32.05, 32.1}, []float64{-117.2, -117.1}},
		{"shifted bounds", []float64{32.1, 32.2}, []float64{-117.2, -117.1}},
	}
	for _, tt := range tests {
		mask := uniformDataset(hours(1), tt.lats, tt.lons, 0.1, 0.1)
		step := NewSmoothingStep(&fakeSmoother{fill: 0.5}, ResolvedReference{Grid: mustGrid(t, mask)}, true, nil, quietLogger())
		_, _, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
		if !errors.Is(err, domain.ErrIncompatibleMaskShape) {
			t.Errorf("%s: err = %v, want ErrIncompatibleMaskShape", tt.name, err)
		}
	}
}

func TestSmoothingMaskResolutionFailureIsFatal(t *testing.T) {
	target := gappyTarget()
	loader := &fakeLoader{datasets: map[string]*domain.Dataset{}}

	step := NewSmoothingStep(&fakeSmoother{fill: 0.5}, LocatorReference{Locator: "mask.nc"}, true, loader, quietLogger())
	if _, _, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target); err == nil {
		t.Fatal("expected error when the mask cannot be loaded")
	}
}

func TestSmoothingEngineFailureIsFatal(t *testing.T) {
	target := gappyTarget()
	engineErr := errors.New("engine crashed")

	step := NewSmoothingStep(&fakeSmoother{err: engineErr}, nil, true, nil, quietLogger())
	_, _, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if !errors.Is(err, engineErr) {
		t.Fatalf("err = %v, want wrapped engine error", err)
	}
}

type robustRecordingSmoother struct {
	fakeSmoother
	robust []bool
}

func (r *robustRecordingSmoother) Smooth(ctx context.Context, u, v [][]float64, robust bool) ([][]float64, [][]float64, error) {
	r.robust = append(r.robust, robust)
	return r.fakeSmoother.Smooth(ctx, u, v, robust)
}

func TestSmoothingRobustFlag(t *testing.T) {
	target := gappyTarget()

	for _, robust := range []bool{true, false} {
		sm := &robustRecordingSmoother{fakeSmoother: fakeSmoother{fill: 0.5}}
		step := NewSmoothingStep(sm, nil, robust, nil, quietLogger())
		if _, _, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target); err != nil {
			t.Fatalf("Process: %v", err)
		}
		for _, got := range sm.robust {
			if got != robust {
				t.Errorf("engine received robust=%v, want %v", got, robust)
			}
		}
	}
}

func TestSmoothingArgs(t *testing.T) {
	deps := StepDeps{Smoother: &fakeSmoother{}, Logger: quietLogger()}

	step, err := newSmoothingStepFromArgs(nil, deps)
	if err != nil {
		t.Fatalf("nil args: %v", err)
	}
	if !step.(*SmoothingStep).robust {
		t.Error("robust should default to true")
	}

	step, err = newSmoothingStepFromArgs(map[string]any{"robust": false}, deps)
	if err != nil {
		t.Fatalf("robust=false: %v", err)
	}
	if step.(*SmoothingStep).robust {
		t.Error("robust=false not honored")
	}

	if _, err := newSmoothingStepFromArgs(map[string]any{"robust": "yes"}, deps); err == nil {
		t.Error("expected error for non-boolean robust")
	}

	if _, err := newSmoothingStepFromArgs(map[string]any{"mask": "mask.nc"}, deps); err == nil {
		t.Error("expected error for locator mask without a loader")
	}
}
