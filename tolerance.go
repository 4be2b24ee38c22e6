// Package fixexp tolerance-based comparison for error-sweep verification
package fixexp

import (
	"math"
)

// ToleranceConfig defines tolerance parameters for real-number comparison
type ToleranceConfig struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float64

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float64
}

// DefaultTolerance returns the tolerance used for double-precision
// bookkeeping checks (round trips, decoded constants)
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol: 1e-12,
		RelTol: 1e-9,
	}
}

// NearEqual checks if two float64 values are equal within tolerance
func NearEqual(a, b float64, tol ToleranceConfig) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if diff <= tol.AbsTol {
		return true
	}
	larger := math.Max(math.Abs(a), math.Abs(b))
	return diff <= larger*tol.RelTol
}

// RelativeError returns |approx - ref| / |ref|, falling back to the
// absolute error when the reference is too close to zero for the ratio
// to mean anything.
func RelativeError(approx, ref float64) float64 {
	diff := math.Abs(approx - ref)
	if math.Abs(ref) < RefEpsilon {
		return diff
	}
	return diff / math.Abs(ref)
}
