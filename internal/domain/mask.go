package domain

import (
	"fmt"
	"math"
)

// CellIndex addresses a single grid cell by (time, lat, lon) index.
type CellIndex struct {
	T, Y, X int
}

// Mask is a boolean array congruent to a Field3D; true marks a cell whose
// value is treated as missing.
type Mask struct {
	data       []bool
	nt, ny, nx int
}

// IsInvalidSample reports whether a single current vector counts as missing:
// either component is NaN, or the vector magnitude is exactly zero. A
// near-zero current is treated as "no data" rather than calm water; this
// conflation is a deliberate approximation kept for compatibility with the
// upstream fill behavior.
func IsInvalidSample(u, v float64) bool {
	return math.IsNaN(u) || math.IsNaN(v) || math.Abs(u)+math.Abs(v) == 0
}

// Invalid computes the invalid-cell mask over a U/V field pair.
func Invalid(u, v *Field3D) (*Mask, error) {
	if !u.SameShape(v) {
		ut, uy, ux := u.Dims()
		vt, vy, vx := v.Dims()
		return nil, fmt.Errorf("U shape %dx%dx%d does not match V shape %dx%dx%d", ut, uy, ux, vt, vy, vx)
	}
	nt, ny, nx := u.Dims()
	m := &Mask{data: make([]bool, nt*ny*nx), nt: nt, ny: ny, nx: nx}
	for t := 0; t < nt; t++ {
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				if IsInvalidSample(u.At(t, i, j), v.At(t, i, j)) {
					m.data[(t*ny+i)*nx+j] = true
				}
			}
		}
	}
	return m, nil
}

// Dims returns the (time, lat, lon) dimensions.
func (m *Mask) Dims() (nt, ny, nx int) {
	return m.nt, m.ny, m.nx
}

// At reports whether the cell at (t, i, j) is marked.
func (m *Mask) At(t, i, j int) bool {
	return m.data[(t*m.ny+i)*m.nx+j]
}

// Count returns the number of marked cells.
func (m *Mask) Count() int {
	n := 0
	for _, marked := range m.data {
		if marked {
			n++
		}
	}
	return n
}

// Positions returns the indices of all marked cells in scan order.
func (m *Mask) Positions() []CellIndex {
	cells := make([]CellIndex, 0, m.Count())
	for t := 0; t < m.nt; t++ {
		for i := 0; i < m.ny; i++ {
			for j := 0; j < m.nx; j++ {
				if m.data[(t*m.ny+i)*m.nx+j] {
					cells = append(cells, CellIndex{T: t, Y: i, X: j})
				}
			}
		}
	}
	return cells
}
