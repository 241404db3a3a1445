package domain

import "fmt"

// Variable is a non-current dataset variable carried through the pipeline
// unchanged.
type Variable struct {
	Name   string
	Dims   []string
	Values []float64
	Attrs  map[string]string
}

// Dataset is an in-memory gridded surface current dataset: coordinate axes,
// U/V current fields, and an arbitrary metadata envelope that gapfilling
// must preserve.
type Dataset struct {
	Coords Coordinates
	U, V   *Field3D

	// Pass-through envelope.
	Extra  []Variable        // Variables other than U and V.
	Attrs  map[string]string // Global attributes.
	UAttrs map[string]string // Attributes of the U variable.
	VAttrs map[string]string // Attributes of the V variable.
}

// WithCurrents returns a new dataset carrying the original coordinate and
// metadata envelope with only the U/V fields replaced. The replacement
// fields must match the coordinate shape.
func (d *Dataset) WithCurrents(u, v *Field3D) (*Dataset, error) {
	nt, ny, nx := d.Coords.Shape()
	for name, f := range map[string]*Field3D{"U": u, "V": v} {
		ft, fy, fx := f.Dims()
		if ft != nt || fy != ny || fx != nx {
			return nil, fmt.Errorf("replacement %s shape %dx%dx%d does not match coordinates %dx%dx%d",
				name, ft, fy, fx, nt, ny, nx)
		}
	}
	return &Dataset{
		Coords: d.Coords,
		U:      u,
		V:      v,
		Extra:  d.Extra,
		Attrs:  d.Attrs,
		UAttrs: d.UAttrs,
		VAttrs: d.VAttrs,
	}, nil
}
