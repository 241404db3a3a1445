package domain

import "fmt"

// Field3D is a dense array of samples indexed by (time, lat, lon).
// Values are stored row-major with longitude varying fastest.
type Field3D struct {
	data       []float64
	nt, ny, nx int
}

// NewField3D allocates a zero-filled field with the given dimensions.
func NewField3D(nt, ny, nx int) *Field3D {
	return &Field3D{
		data: make([]float64, nt*ny*nx),
		nt:   nt,
		ny:   ny,
		nx:   nx,
	}
}

// NewField3DFrom wraps an existing flat value slice as a field.
func NewField3DFrom(data []float64, nt, ny, nx int) (*Field3D, error) {
	if len(data) != nt*ny*nx {
		return nil, fmt.Errorf("field data length %d does not match dimensions %dx%dx%d", len(data), nt, ny, nx)
	}
	return &Field3D{data: data, nt: nt, ny: ny, nx: nx}, nil
}

// Dims returns the (time, lat, lon) dimensions.
func (f *Field3D) Dims() (nt, ny, nx int) {
	return f.nt, f.ny, f.nx
}

// SameShape reports whether two fields have identical dimensions.
func (f *Field3D) SameShape(other *Field3D) bool {
	return f.nt == other.nt && f.ny == other.ny && f.nx == other.nx
}

// At returns the value at time index t, lat index i, lon index j.
func (f *Field3D) At(t, i, j int) float64 {
	return f.data[(t*f.ny+i)*f.nx+j]
}

// Set assigns the value at time index t, lat index i, lon index j.
func (f *Field3D) Set(t, i, j int, v float64) {
	f.data[(t*f.ny+i)*f.nx+j] = v
}

// Clone returns a deep copy of the field.
func (f *Field3D) Clone() *Field3D {
	data := make([]float64, len(f.data))
	copy(data, f.data)
	return &Field3D{data: data, nt: f.nt, ny: f.ny, nx: f.nx}
}

// Slab returns a copy of the 2-D lat/lon slice at time index t.
func (f *Field3D) Slab(t int) [][]float64 {
	slab := make([][]float64, f.ny)
	for i := 0; i < f.ny; i++ {
		row := make([]float64, f.nx)
		copy(row, f.data[(t*f.ny+i)*f.nx:(t*f.ny+i+1)*f.nx])
		slab[i] = row
	}
	return slab
}

// SetSlab replaces the 2-D lat/lon slice at time index t.
func (f *Field3D) SetSlab(t int, slab [][]float64) error {
	if len(slab) != f.ny {
		return fmt.Errorf("slab has %d rows, expected %d", len(slab), f.ny)
	}
	for i, row := range slab {
		if len(row) != f.nx {
			return fmt.Errorf("slab row %d has %d values, expected %d", i, len(row), f.nx)
		}
		copy(f.data[(t*f.ny+i)*f.nx:(t*f.ny+i+1)*f.nx], row)
	}
	return nil
}

// Values returns the underlying flat value slice. The slice is shared with
// the field; callers must not modify it.
func (f *Field3D) Values() []float64 {
	return f.data
}
