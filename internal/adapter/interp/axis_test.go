package interp

import "testing"

func TestValidateAxis(t *testing.T) {
	tests := []struct {
		name    string
		axis    []float64
		wantErr bool
	}{
		{"valid", []float64{0, 1, 2}, false},
		{"single point", []float64{5}, false},
		{"empty", nil, true},
		{"duplicate", []float64{0, 1, 1}, true},
		{"descending", []float64{2, 1, 0}, true},
	}

	for _, tt := range tests {
		err := ValidateAxis(tt.axis)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateAxis error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestIntervalIndices(t *testing.T) {
	axis := []float64{0, 1, 2, 3, 4}

	tests := []struct {
		name      string
		min, max  float64
		inclusive bool
		wantLo    int
		wantHi    int
		wantErr   bool
	}{
		{"exact endpoints", 1, 3, false, 1, 4, false},
		{"interior points", 0.5, 3.5, false, 1, 4, false},
		{"inclusive widens", 0.5, 3.5, true, 0, 5, false},
		{"inclusive at exact endpoints", 1, 3, true, 1, 4, false},
		{"inclusive clamped at bounds", -0.5, 4.5, true, 0, 5, false},
		{"no overlap", 5, 6, false, 0, 0, true},
		{"inverted", 3, 1, false, 0, 0, true},
	}

	for _, tt := range tests {
		lo, hi, err := IntervalIndices(axis, tt.min, tt.max, tt.inclusive)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: IntervalIndices error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil {
			continue
		}
		if lo != tt.wantLo || hi != tt.wantHi {
			t.Errorf("%s: IntervalIndices = [%d, %d), want [%d, %d)", tt.name, lo, hi, tt.wantLo, tt.wantHi)
		}
	}
}
