package fixexp

import (
	"fmt"
	"math"
	"sync/atomic"
)

// OverflowPolicy selects what happens when a result does not fit the format.
type OverflowPolicy int

const (
	// OverflowError surfaces a Range error to the caller
	OverflowError OverflowPolicy = iota
	// OverflowSaturate clamps the result to the nearest representable value
	OverflowSaturate
)

// Format limits
const (
	// MaxTotalBits keeps the full-width raw product of a multiply exact
	// in an int64 (2*TotalBits + 1 carry bits must fit in 63)
	MaxTotalBits = 31
)

// PrecisionStats counts rounding/truncation events during arithmetic.
// The counters are diagnostic only; precision loss never fails an operation.
// Safe for concurrent use.
type PrecisionStats struct {
	MulTruncations   atomic.Int64
	ShiftTruncations atomic.Int64
}

// Total returns the total number of precision-loss events observed
func (s *PrecisionStats) Total() int64 {
	return s.MulTruncations.Load() + s.ShiftTruncations.Load()
}

// Format describes a signed two's-complement fixed-point encoding:
// TotalBits is the word width including the sign bit, FracBits the number
// of bits right of the binary point. The represented value of a raw word r
// is r / 2^FracBits, so the format covers
// [-2^(TotalBits-FracBits-1), 2^(TotalBits-FracBits-1)) with resolution
// 2^-FracBits.
type Format struct {
	TotalBits uint
	FracBits  uint
	Policy    OverflowPolicy
	// RoundMul selects round-to-nearest instead of truncation when the
	// raw product of a multiply is renormalized down to FracBits
	RoundMul bool
	// Stats, if non-nil, receives precision-loss counts from Mul and Shr
	Stats *PrecisionStats
}

// NewFormat validates and returns a Format with the default policy
// (OverflowError, truncating multiply).
func NewFormat(totalBits, fracBits uint) (Format, error) {
	if totalBits == 0 || totalBits > MaxTotalBits {
		return Format{}, NewInvalidArgError("NewFormat",
			fmt.Sprintf("totalBits must be in [1,%d], got %d", MaxTotalBits, totalBits))
	}
	if fracBits >= totalBits {
		return Format{}, NewInvalidArgError("NewFormat",
			fmt.Sprintf("fracBits must be less than totalBits, got %d.%d", totalBits, fracBits))
	}
	return Format{TotalBits: totalBits, FracBits: fracBits}, nil
}

// WithPolicy returns a copy of the format with the given overflow policy
func (f Format) WithPolicy(p OverflowPolicy) Format {
	f.Policy = p
	return f
}

// WithRoundMul returns a copy of the format with round-to-nearest multiplies
func (f Format) WithRoundMul(round bool) Format {
	f.RoundMul = round
	return f
}

// WithStats returns a copy of the format that reports precision loss to s
func (f Format) WithStats(s *PrecisionStats) Format {
	f.Stats = s
	return f
}

// IntegerBits returns the number of bits left of the binary point,
// excluding the sign bit
func (f Format) IntegerBits() uint {
	return f.TotalBits - f.FracBits - 1
}

// MaxRaw returns the largest representable raw word
func (f Format) MaxRaw() int64 {
	return int64(1)<<(f.TotalBits-1) - 1
}

// MinRaw returns the smallest (most negative) representable raw word
func (f Format) MinRaw() int64 {
	return -(int64(1) << (f.TotalBits - 1))
}

// MaxFloat returns the largest representable real value
func (f Format) MaxFloat() float64 {
	return float64(f.MaxRaw()) / float64(int64(1)<<f.FracBits)
}

// MinFloat returns the smallest representable real value
func (f Format) MinFloat() float64 {
	return float64(f.MinRaw()) / float64(int64(1)<<f.FracBits)
}

// Resolution returns the value of one least-significant bit, 2^-FracBits
func (f Format) Resolution() float64 {
	return 1.0 / float64(int64(1)<<f.FracBits)
}

// String renders the format as Q<integer>.<fraction> plus policy
func (f Format) String() string {
	return fmt.Sprintf("Q%d.%d", f.IntegerBits(), f.FracBits)
}

// sameShape reports whether two formats have identical bit layout.
// Policy and diagnostics do not affect arithmetic compatibility.
func (f Format) sameShape(g Format) bool {
	return f.TotalBits == g.TotalBits && f.FracBits == g.FracBits
}

// wrap folds a raw result into the format per the overflow policy
func (f Format) wrap(op string, raw int64) (Fixed, error) {
	if raw > f.MaxRaw() {
		if f.Policy == OverflowSaturate {
			return Fixed{raw: f.MaxRaw(), format: f}, nil
		}
		return Fixed{}, NewRangeError(op,
			fmt.Sprintf("raw result %d exceeds %s max %d", raw, f, f.MaxRaw()), raw)
	}
	if raw < f.MinRaw() {
		if f.Policy == OverflowSaturate {
			return Fixed{raw: f.MinRaw(), format: f}, nil
		}
		return Fixed{}, NewRangeError(op,
			fmt.Sprintf("raw result %d below %s min %d", raw, f, f.MinRaw()), raw)
	}
	return Fixed{raw: raw, format: f}, nil
}

// FromFloat64 quantizes x to the nearest representable value
// (round half away from zero). Out-of-range inputs follow the overflow
// policy: RangeError or saturation.
func (f Format) FromFloat64(x float64) (Fixed, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Fixed{}, NewInvalidArgError("FromFloat64", "input must be finite")
	}
	scaled := math.Round(x * float64(int64(1)<<f.FracBits))
	// Range-check in float space: converting an out-of-range float64 to
	// int64 is not well defined
	if scaled > float64(f.MaxRaw()) || scaled < float64(f.MinRaw()) {
		if f.Policy == OverflowSaturate {
			if scaled > 0 {
				return Fixed{raw: f.MaxRaw(), format: f}, nil
			}
			return Fixed{raw: f.MinRaw(), format: f}, nil
		}
		return Fixed{}, NewRangeError("FromFloat64",
			fmt.Sprintf("value %g outside %s range [%g, %g]", x, f, f.MinFloat(), f.MaxFloat()), x)
	}
	return f.wrap("FromFloat64", int64(scaled))
}

// FromRaw reinterprets a raw two's-complement word as a fixed-point value.
// The word must fit the format; reinterpretation never saturates.
func (f Format) FromRaw(raw int64) (Fixed, error) {
	if raw > f.MaxRaw() || raw < f.MinRaw() {
		return Fixed{}, NewRangeError("FromRaw",
			fmt.Sprintf("raw word %d does not fit %s", raw, f), raw)
	}
	return Fixed{raw: raw, format: f}, nil
}

// One returns the fixed-point encoding of 1.0, raw 1<<FracBits.
// Formats with no integer bits cannot represent it.
func (f Format) One() (Fixed, error) {
	return f.FromRaw(int64(1) << f.FracBits)
}

// Fixed is an immutable signed fixed-point value: a raw two's-complement
// word interpreted against a Format. Arithmetic returns new values and
// never mutates the receiver.
type Fixed struct {
	raw    int64
	format Format
}

// Raw returns the underlying two's-complement word
func (x Fixed) Raw() int64 {
	return x.raw
}

// Format returns the value's format
func (x Fixed) Format() Format {
	return x.format
}

// Float64 converts exactly to a real value, raw / 2^FracBits
func (x Fixed) Float64() float64 {
	return float64(x.raw) / float64(int64(1)<<x.format.FracBits)
}

// String renders the value with its raw word and format
func (x Fixed) String() string {
	return fmt.Sprintf("%g (raw %d, %s)", x.Float64(), x.raw, x.format)
}

// Eq reports structural equality on (raw, FracBits). Values with differing
// fraction widths are never equal; align them with Convert first.
func (x Fixed) Eq(y Fixed) bool {
	return x.raw == y.raw && x.format.FracBits == y.format.FracBits
}

// Cmp compares two values of the same shape: -1 if x < y, 0 if equal,
// +1 if x > y. Operands with differing formats must be normalized with
// Convert before comparison.
func (x Fixed) Cmp(y Fixed) (int, error) {
	if !x.format.sameShape(y.format) {
		return 0, NewFormatError("Cmp",
			fmt.Sprintf("cannot compare %s against %s", x.format, y.format), y.format)
	}
	switch {
	case x.raw < y.raw:
		return -1, nil
	case x.raw > y.raw:
		return 1, nil
	}
	return 0, nil
}

// Add returns x + y. Operands must share a format shape.
func (x Fixed) Add(y Fixed) (Fixed, error) {
	if !x.format.sameShape(y.format) {
		return Fixed{}, NewFormatError("Add",
			fmt.Sprintf("operand formats differ: %s vs %s", x.format, y.format), y.format)
	}
	return x.format.wrap("Add", x.raw+y.raw)
}

// Sub returns x - y. Operands must share a format shape.
func (x Fixed) Sub(y Fixed) (Fixed, error) {
	if !x.format.sameShape(y.format) {
		return Fixed{}, NewFormatError("Sub",
			fmt.Sprintf("operand formats differ: %s vs %s", x.format, y.format), y.format)
	}
	return x.format.wrap("Sub", x.raw-y.raw)
}

// Mul returns x * y. The raw product carries 2*FracBits fraction bits and
// is renormalized back to FracBits by an arithmetic right shift, matching
// the (x*y)>>f datapath of the hardware multiplier. With RoundMul set the
// renormalization rounds to nearest instead of truncating toward -inf.
func (x Fixed) Mul(y Fixed) (Fixed, error) {
	if !x.format.sameShape(y.format) {
		return Fixed{}, NewFormatError("Mul",
			fmt.Sprintf("operand formats differ: %s vs %s", x.format, y.format), y.format)
	}
	product := x.raw * y.raw // exact: 2*TotalBits <= 63
	frac := x.format.FracBits
	if frac > 0 && product&(int64(1)<<frac-1) != 0 {
		if x.format.Stats != nil {
			x.format.Stats.MulTruncations.Add(1)
		}
	}
	if x.format.RoundMul && frac > 0 {
		product += int64(1) << (frac - 1)
	}
	return x.format.wrap("Mul", product>>frac)
}

// Shr returns x >> n (arithmetic shift, an exact division by 2^n when the
// discarded bits are zero, otherwise a truncation toward -inf).
func (x Fixed) Shr(n uint) (Fixed, error) {
	if n >= x.format.TotalBits {
		return Fixed{}, NewInvalidArgError("Shr",
			fmt.Sprintf("shift count %d exceeds word width %d", n, x.format.TotalBits))
	}
	if n > 0 && x.raw&(int64(1)<<n-1) != 0 {
		if x.format.Stats != nil {
			x.format.Stats.ShiftTruncations.Add(1)
		}
	}
	// Shrinking the magnitude cannot overflow
	return Fixed{raw: x.raw >> n, format: x.format}, nil
}

// Convert re-quantizes x into another format. Widening the fraction is
// exact when the value still fits; narrowing truncates toward -inf.
func (x Fixed) Convert(to Format) (Fixed, error) {
	if to.FracBits >= x.format.FracBits {
		shift := to.FracBits - x.format.FracBits
		// Guard the widening shift itself before range-checking
		if shift > 0 && (x.raw > to.MaxRaw()>>shift || x.raw < to.MinRaw()>>shift) {
			if to.Policy == OverflowSaturate {
				if x.raw > 0 {
					return Fixed{raw: to.MaxRaw(), format: to}, nil
				}
				return Fixed{raw: to.MinRaw(), format: to}, nil
			}
			return Fixed{}, NewRangeError("Convert",
				fmt.Sprintf("%s does not fit %s", x, to), x)
		}
		return to.wrap("Convert", x.raw<<shift)
	}
	shift := x.format.FracBits - to.FracBits
	if x.raw&(int64(1)<<shift-1) != 0 {
		if to.Stats != nil {
			to.Stats.ShiftTruncations.Add(1)
		}
	}
	return to.wrap("Convert", x.raw>>shift)
}
