// Package fixexp configuration constants and format presets
package fixexp

// Numerical constants
const (
	// RefEpsilon is the reference magnitude below which relative error
	// falls back to absolute error
	RefEpsilon = 1e-12

	// DefaultRawStep samples every representable raw value in a sweep
	DefaultRawStep = 1
)

// Format presets. Each returns a fresh value so callers can attach
// policy and diagnostics without affecting other users.

// FormatQ1_8 is the 1 integer / 8 fraction bit format of the original
// exponential unit's testbench: 10-bit words covering [-2, 2) with
// resolution 1/256.
func FormatQ1_8() Format {
	return Format{TotalBits: 10, FracBits: 8}
}

// FormatQ3_4 is an 8-bit word with 4 fraction bits: [-8, 8) with
// resolution 1/16.
func FormatQ3_4() Format {
	return Format{TotalBits: 8, FracBits: 4}
}

// FormatQ7_8 is a 16-bit word with 8 fraction bits: [-128, 128) with
// resolution 1/256.
func FormatQ7_8() Format {
	return Format{TotalBits: 16, FracBits: 8}
}
