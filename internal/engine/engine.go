// Package engine defines the external numerical smoothing engine contract.
//
// The engine is an opaque black box: it receives a 2-D U/V slab pair per
// time step and returns a smoothed pair of identical shape. The pipeline
// depends only on this shape/NaN contract, never on the smoothing algorithm.
package engine

import "context"

// Smoother applies one smoothing pass to a 2-D U/V slab pair.
type Smoother interface {
	// Smooth returns smoothed slabs with the same shape as the inputs.
	// robust selects the engine's outlier-resistant mode.
	Smooth(ctx context.Context, u, v [][]float64, robust bool) ([][]float64, [][]float64, error)

	// Close shuts the engine down and releases its resources.
	Close() error
}
