// Package interp provides index math over regular coordinate axes.
package interp

import (
	"fmt"
	"sort"
)

// ValidateAxis checks that an axis is non-empty, sorted, and unique.
func ValidateAxis(axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("axis must have at least 1 coordinate")
	}
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return fmt.Errorf("axis coordinates must be strictly increasing")
		}
	}
	return nil
}

// IntervalIndices returns the half-open index range [lo, hi) of axis
// coordinates falling inside [min, max]. With inclusive set, the range is
// widened by one coordinate on each side where possible, so that the cropped
// axis still encloses [min, max] rather than merely intersecting it.
func IntervalIndices(axis []float64, min, max float64, inclusive bool) (lo, hi int, err error) {
	if min > max {
		return 0, 0, fmt.Errorf("invalid interval: min %.6f > max %.6f", min, max)
	}
	lo = sort.SearchFloat64s(axis, min)
	hi = sort.Search(len(axis), func(i int) bool { return axis[i] > max })
	if lo >= hi {
		return 0, 0, fmt.Errorf("interval [%.6f, %.6f] does not intersect axis range [%.6f, %.6f]",
			min, max, axis[0], axis[len(axis)-1])
	}
	if inclusive {
		if lo > 0 && axis[lo] > min {
			lo--
		}
		if hi < len(axis) && axis[hi-1] < max {
			hi++
		}
	}
	return lo, hi, nil
}
