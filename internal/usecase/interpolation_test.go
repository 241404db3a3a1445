package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"go.ngs.io/currents-api/internal/domain"
)

// TestInterpolationFillsFromCoveringReference is the worked example: a 2x2x2
// target with one NaN cell and two zero-magnitude cells per time step, and a
// single fully-covering uniform reference.
func TestInterpolationFillsFromCoveringReference(t *testing.T) {
	target := gappyTarget()
	ref := uniformDataset(hours(2), []float64{31.9, 32.2}, []float64{-117.3, -117.0}, 0.2, 0.1)

	step := NewInterpolationStep([]Reference{ResolvedReference{Grid: mustGrid(t, ref)}}, nil, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for tt := 0; tt < 2; tt++ {
		// Originally-invalid cells take the reference value.
		for _, cell := range []domain.CellIndex{{T: tt, Y: 0, X: 0}, {T: tt, Y: 1, X: 0}, {T: tt, Y: 1, X: 1}} {
			if got := u.At(cell.T, cell.Y, cell.X); got != 0.2 {
				t.Errorf("U%v = %v, want 0.2", cell, got)
			}
			if got := v.At(cell.T, cell.Y, cell.X); got != 0.1 {
				t.Errorf("V%v = %v, want 0.1", cell, got)
			}
		}
		// The already-valid cell is untouched.
		if got := u.At(tt, 0, 1); got != 0.01 {
			t.Errorf("valid cell U(%d,0,1) = %v, want 0.01", tt, got)
		}
	}

	m, _ := domain.Invalid(u, v)
	if m.Count() != 0 {
		t.Errorf("invalid count after fill = %d, want 0", m.Count())
	}
}

// TestInterpolationRejectsPartialCoverage is the second worked example: a
// reference covering only half the target's longitude range is skipped in
// full, leaving the invalid mask unchanged.
func TestInterpolationRejectsPartialCoverage(t *testing.T) {
	target := gappyTarget()
	ref := uniformDataset(hours(2), []float64{31.9, 32.2}, []float64{-117.3, -117.15}, 0.2, 0.1)

	before, _ := domain.Invalid(target.U, target.V)

	step := NewInterpolationStep([]Reference{ResolvedReference{Grid: mustGrid(t, ref)}}, nil, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	after, _ := domain.Invalid(u, v)
	if after.Count() != before.Count() {
		t.Errorf("invalid count changed by rejected reference: %d -> %d", before.Count(), after.Count())
	}
	// No cell was filled from the rejected reference.
	for tt := 0; tt < 2; tt++ {
		if got := u.At(tt, 1, 0); got != 0 {
			t.Errorf("U(%d,1,0) = %v, want untouched 0", tt, got)
		}
	}
}

// TestInterpolationMonotonicConvergence cascades two references: the first
// covers the domain but has gaps of its own, the second fills the rest. The
// invalid count never increases.
func TestInterpolationMonotonicConvergence(t *testing.T) {
	target := gappyTarget()

	// First reference: covering, but itself NaN at the target's NaN cell.
	ref1 := uniformDataset(hours(2), []float64{32.0, 32.1}, []float64{-117.2, -117.1}, 0.3, 0.2)
	for tt := 0; tt < 2; tt++ {
		ref1.U.Set(tt, 0, 0, math.NaN())
		ref1.V.Set(tt, 0, 0, math.NaN())
	}
	ref2 := uniformDataset(hours(2), []float64{31.9, 32.2}, []float64{-117.3, -117.0}, 0.5, 0.4)

	step := NewInterpolationStep([]Reference{
		ResolvedReference{Grid: mustGrid(t, ref1)},
		ResolvedReference{Grid: mustGrid(t, ref2)},
	}, nil, quietLogger())

	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Zero-magnitude cells were valid donors in ref1.
	for tt := 0; tt < 2; tt++ {
		if got := u.At(tt, 1, 0); got != 0.3 {
			t.Errorf("U(%d,1,0) = %v, want 0.3 from first reference", tt, got)
		}
		// The NaN cell fell through to ref2.
		if got := u.At(tt, 0, 0); got != 0.5 {
			t.Errorf("U(%d,0,0) = %v, want 0.5 from second reference", tt, got)
		}
		// Cells filled by ref1 are never revisited by ref2.
		if got := v.At(tt, 1, 1); got != 0.2 {
			t.Errorf("V(%d,1,1) = %v, want 0.2 from first reference", tt, got)
		}
	}

	m, _ := domain.Invalid(u, v)
	if m.Count() != 0 {
		t.Errorf("invalid count = %d, want 0", m.Count())
	}
}

// TestInterpolationRejectsInvalidDonor: a covering reference whose own value
// is invalid at a gap leaves that cell NaN rather than propagating the gap.
func TestInterpolationRejectsInvalidDonor(t *testing.T) {
	target := gappyTarget()
	ref := uniformDataset(hours(2), []float64{32.0, 32.1}, []float64{-117.2, -117.1}, 0, 0)

	step := NewInterpolationStep([]Reference{ResolvedReference{Grid: mustGrid(t, ref)}}, nil, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Every previously-invalid cell is now NaN: the zero-magnitude donor
	// was rejected, and rejected fills are written as NaN.
	for tt := 0; tt < 2; tt++ {
		for _, cell := range []domain.CellIndex{{T: tt, Y: 0, X: 0}, {T: tt, Y: 1, X: 0}, {T: tt, Y: 1, X: 1}} {
			if !math.IsNaN(u.At(cell.T, cell.Y, cell.X)) || !math.IsNaN(v.At(cell.T, cell.Y, cell.X)) {
				t.Errorf("cell %v not NaN after rejected donor", cell)
			}
		}
		if got := u.At(tt, 0, 1); got != 0.01 {
			t.Errorf("valid cell modified: %v", got)
		}
	}
}

// TestInterpolationCoarserReferenceTimeMapping: a reference with a 2h step
// against a 1h target maps target index t to reference index t/2.
func TestInterpolationCoarserReferenceTimeMapping(t *testing.T) {
	target := gappyTarget() // 2 time steps, 1h apart.
	ref := uniformDataset(hoursStep(2, 2*time.Hour), []float64{31.9, 32.2}, []float64{-117.3, -117.0}, 0, 0)
	// Distinct values per reference time step.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			ref.U.Set(0, i, j, 0.11)
			ref.V.Set(0, i, j, 0.11)
			ref.U.Set(1, i, j, 0.99)
			ref.V.Set(1, i, j, 0.99)
		}
	}

	step := NewInterpolationStep([]Reference{ResolvedReference{Grid: mustGrid(t, ref)}}, nil, quietLogger())
	u, _, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Both target time indices 0 and 1 map to reference index 0.
	if got := u.At(0, 0, 0); got != 0.11 {
		t.Errorf("U(0,0,0) = %v, want 0.11 from reference step 0", got)
	}
	if got := u.At(1, 0, 0); got != 0.11 {
		t.Errorf("U(1,0,0) = %v, want 0.11 from reference step 0", got)
	}
}

// TestInterpolationLocatorReference loads and crops a reference through the
// DatasetLoader collaborator.
func TestInterpolationLocatorReference(t *testing.T) {
	target := gappyTarget()
	// Bigger than the target on every axis; the resolver crops it first.
	big := uniformDataset(hours(6), []float64{31.8, 31.9, 32.0, 32.1, 32.2, 32.3},
		[]float64{-117.4, -117.3, -117.2, -117.1, -117.0, -116.9}, 0.2, 0.1)
	loader := &fakeLoader{datasets: map[string]*domain.Dataset{"hfrnet/2km.nc": big}}

	step := NewInterpolationStep([]Reference{LocatorReference{Locator: "hfrnet/2km.nc"}}, loader, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	m, _ := domain.Invalid(u, v)
	if m.Count() != 0 {
		t.Errorf("invalid count = %d, want 0", m.Count())
	}
	if got := u.At(0, 0, 0); got != 0.2 {
		t.Errorf("U(0,0,0) = %v, want 0.2", got)
	}
}

// TestInterpolationMissingLocatorSkips: a loader failure skips the reference
// and the step still succeeds.
func TestInterpolationMissingLocatorSkips(t *testing.T) {
	target := gappyTarget()
	loader := &fakeLoader{datasets: map[string]*domain.Dataset{}}

	step := NewInterpolationStep([]Reference{LocatorReference{Locator: "missing.nc"}}, loader, quietLogger())
	u, v, err := step.Process(context.Background(), target.U.Clone(), target.V.Clone(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	before, _ := domain.Invalid(target.U, target.V)
	after, _ := domain.Invalid(u, v)
	if after.Count() != before.Count() {
		t.Errorf("invalid count changed: %d -> %d", before.Count(), after.Count())
	}
}

func TestMapTimeIndex(t *testing.T) {
	tests := []struct {
		name       string
		t          int
		targetStep time.Duration
		refStep    time.Duration
		refLen     int
		want       int
		wantOK     bool
	}{
		{"matching resolution", 3, time.Hour, time.Hour, 4, 3, true},
		{"coarser reference", 3, time.Hour, 2 * time.Hour, 4, 1, true},
		{"finer reference", 1, 2 * time.Hour, time.Hour, 4, 2, true},
		{"single-sample reference", 0, time.Hour, 0, 1, 0, true},
		{"past reference axis", 5, time.Hour, time.Hour, 4, 0, false},
		{"finer mapping past axis", 3, 2 * time.Hour, time.Hour, 4, 0, false},
	}

	for _, tt := range tests {
		got, ok := mapTimeIndex(tt.t, tt.targetStep, tt.refStep, tt.refLen)
		if ok != tt.wantOK {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("%s: index = %d, want %d", tt.name, got, tt.want)
		}
	}
}
