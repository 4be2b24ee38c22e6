package fixexp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	tests := []struct {
		name      string
		totalBits uint
		fracBits  uint
		wantErr   bool
	}{
		{"Q3.4", 8, 4, false},
		{"Q1.8", 10, 8, false},
		{"NoFraction", 8, 0, false},
		{"MaxWidth", 31, 16, false},
		{"ZeroWidth", 0, 0, true},
		{"TooWide", 32, 8, true},
		{"FracEqualsTotal", 8, 8, true},
		{"FracExceedsTotal", 8, 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormat(tt.totalBits, tt.fracBits)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, IsInvalidArgError(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFormatDerived(t *testing.T) {
	f := FormatQ3_4()
	require.Equal(t, uint(3), f.IntegerBits())
	require.Equal(t, int64(127), f.MaxRaw())
	require.Equal(t, int64(-128), f.MinRaw())
	require.Equal(t, 7.9375, f.MaxFloat())
	require.Equal(t, -8.0, f.MinFloat())
	require.Equal(t, 0.0625, f.Resolution())
	require.Equal(t, "Q3.4", f.String())

	one, err := f.One()
	require.NoError(t, err)
	require.Equal(t, int64(16), one.Raw())
	require.Equal(t, 1.0, one.Float64())
}

// Round-trip law: quantization recovers the input within one LSB,
// checked at every representable value plus off-grid points.
func TestFromFloat64RoundTrip(t *testing.T) {
	f := FormatQ3_4()
	for raw := f.MinRaw(); raw <= f.MaxRaw(); raw++ {
		x := float64(raw) * f.Resolution()
		v, err := f.FromFloat64(x)
		require.NoError(t, err)
		require.Equal(t, raw, v.Raw(), "representable value must round-trip exactly")
		require.Equal(t, x, v.Float64())
	}

	// Off-grid inputs land within half a resolution step
	for _, x := range []float64{0.03, -0.03, 1.284, -7.97, 3.14159} {
		v, err := f.FromFloat64(x)
		require.NoError(t, err)
		require.InDelta(t, x, v.Float64(), f.Resolution()/2+1e-12)
	}
}

func TestFromFloat64Range(t *testing.T) {
	f := FormatQ3_4() // default policy: OverflowError

	_, err := f.FromFloat64(8.0)
	require.True(t, IsRangeError(err), "above max must be a range error, got %v", err)
	_, err = f.FromFloat64(-8.1)
	require.True(t, IsRangeError(err))

	_, err = f.FromFloat64(math.NaN())
	require.True(t, IsInvalidArgError(err))
	_, err = f.FromFloat64(math.Inf(1))
	require.True(t, IsInvalidArgError(err))

	sat := f.WithPolicy(OverflowSaturate)
	v, err := sat.FromFloat64(100.0)
	require.NoError(t, err)
	require.Equal(t, sat.MaxRaw(), v.Raw())
	v, err = sat.FromFloat64(-100.0)
	require.NoError(t, err)
	require.Equal(t, sat.MinRaw(), v.Raw())
}

func TestFromRaw(t *testing.T) {
	f := FormatQ3_4()

	v, err := f.FromRaw(-128)
	require.NoError(t, err)
	require.Equal(t, -8.0, v.Float64())

	_, err = f.FromRaw(128)
	require.True(t, IsRangeError(err))

	// Reinterpretation never saturates, even with the clamping policy
	_, err = f.WithPolicy(OverflowSaturate).FromRaw(128)
	require.True(t, IsRangeError(err))
}

func TestAddSub(t *testing.T) {
	f := FormatQ3_4()
	a, _ := f.FromFloat64(1.5)
	b, _ := f.FromFloat64(2.25)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, 3.75, sum.Float64())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.Equal(t, -0.75, diff.Float64())

	// Overflow follows the policy
	big, _ := f.FromFloat64(7.0)
	_, err = big.Add(big)
	require.True(t, IsRangeError(err))

	sat := f.WithPolicy(OverflowSaturate)
	bigSat, _ := sat.FromFloat64(7.0)
	clamped, err := bigSat.Add(bigSat)
	require.NoError(t, err)
	require.Equal(t, sat.MaxRaw(), clamped.Raw())

	// Mismatched formats are rejected, not coerced
	other, _ := FormatQ1_8().FromFloat64(1.0)
	_, err = a.Add(other)
	require.True(t, IsFormatError(err))
	_, err = a.Sub(other)
	require.True(t, IsFormatError(err))
}

func TestMulRenormalization(t *testing.T) {
	f := FormatQ3_4()
	tests := []struct {
		name    string
		a, b    float64
		want    float64 // after truncating renormalization
		wantErr bool
	}{
		{"ExactProduct", 1.5, 1.5, 2.25, false},
		{"ExactSmall", 0.25, 0.25, 0.0625, false},
		{"TruncatedProduct", 0.25, 0.125, 0.0, false}, // 1/32 rounds down to 0
		{"NegativeExact", -1.5, 1.5, -2.25, false},
		{"NegativeTruncates", -0.25, 0.125, -0.0625, false}, // toward -inf
		{"Overflow", 4.0, 4.0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := f.FromFloat64(tt.a)
			require.NoError(t, err)
			b, err := f.FromFloat64(tt.b)
			require.NoError(t, err)
			got, err := a.Mul(b)
			if tt.wantErr {
				require.True(t, IsRangeError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Float64())
		})
	}

	// Round-to-nearest renormalization picks the closer value
	rf := f.WithRoundMul(true)
	a, _ := rf.FromFloat64(0.25)
	b, _ := rf.FromFloat64(0.125)
	got, err := a.Mul(b)
	require.NoError(t, err)
	require.Equal(t, 0.0625, got.Float64(), "1/32 rounds up to one LSB")
}

// Commutativity over the entire Q3.4 domain: the raw product is symmetric,
// so renormalization must be too.
func TestMulCommutative(t *testing.T) {
	f := FormatQ3_4().WithPolicy(OverflowSaturate)
	for ra := f.MinRaw(); ra <= f.MaxRaw(); ra++ {
		a, err := f.FromRaw(ra)
		require.NoError(t, err)
		for rb := ra; rb <= f.MaxRaw(); rb++ {
			b, err := f.FromRaw(rb)
			require.NoError(t, err)
			ab, err1 := a.Mul(b)
			ba, err2 := b.Mul(a)
			require.NoError(t, err1)
			require.NoError(t, err2)
			if !ab.Eq(ba) {
				t.Fatalf("Mul not commutative at raw (%d, %d): %v vs %v", ra, rb, ab, ba)
			}
		}
	}
}

func TestShr(t *testing.T) {
	f := FormatQ3_4()

	v, _ := f.FromFloat64(2.5)
	half, err := v.Shr(1)
	require.NoError(t, err)
	require.Equal(t, 1.25, half.Float64())

	// Arithmetic shift truncates toward -inf
	neg, _ := f.FromRaw(-3)
	shifted, err := neg.Shr(1)
	require.NoError(t, err)
	require.Equal(t, int64(-2), shifted.Raw())

	_, err = v.Shr(8)
	require.True(t, IsInvalidArgError(err))
}

func TestPrecisionStats(t *testing.T) {
	stats := &PrecisionStats{}
	f := FormatQ3_4().WithStats(stats)

	a, _ := f.FromFloat64(0.25)
	b, _ := f.FromFloat64(0.125)

	_, err := a.Mul(b) // discards nonzero low product bits
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.MulTruncations.Load())

	exact, _ := f.FromFloat64(2.0)
	_, err = exact.Mul(exact) // raw 32*32 has clean low bits
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.MulTruncations.Load())

	odd, _ := f.FromRaw(3)
	_, err = odd.Shr(1)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.ShiftTruncations.Load())
	require.Equal(t, int64(2), stats.Total())
}

func TestEqCmp(t *testing.T) {
	q34 := FormatQ3_4()
	q18 := FormatQ1_8()

	a, _ := q34.FromFloat64(1.5)
	b, _ := q34.FromFloat64(1.5)
	c, _ := q34.FromFloat64(2.0)
	require.True(t, a.Eq(b))
	require.False(t, a.Eq(c))

	// Same real value, different fraction widths: structurally unequal
	// until normalized
	w, _ := q18.FromFloat64(1.5)
	require.False(t, a.Eq(w))
	wAligned, err := w.Convert(q34)
	require.NoError(t, err)
	require.True(t, a.Eq(wAligned))

	cmp, err := a.Cmp(c)
	require.NoError(t, err)
	require.Equal(t, -1, cmp)
	cmp, err = c.Cmp(a)
	require.NoError(t, err)
	require.Equal(t, 1, cmp)
	cmp, err = a.Cmp(b)
	require.NoError(t, err)
	require.Equal(t, 0, cmp)

	_, err = a.Cmp(w)
	require.True(t, IsFormatError(err))
}

func TestConvert(t *testing.T) {
	q34 := FormatQ3_4()
	q18 := FormatQ1_8()

	// Widening the fraction is exact while the value fits
	v, _ := q34.FromFloat64(1.5)
	wide, err := v.Convert(q18)
	require.NoError(t, err)
	require.Equal(t, 1.5, wide.Float64())
	require.Equal(t, int64(384), wide.Raw())

	// Q3.4 holds values Q1.8 cannot
	big, _ := q34.FromFloat64(4.0)
	_, err = big.Convert(q18)
	require.True(t, IsRangeError(err))

	clamped, err := big.Convert(q18.WithPolicy(OverflowSaturate))
	require.NoError(t, err)
	require.Equal(t, q18.MaxRaw(), clamped.Raw())

	// Narrowing truncates
	fine, _ := q18.FromRaw(3) // 3/256, below Q3.4 resolution
	coarse, err := fine.Convert(q34)
	require.NoError(t, err)
	require.Equal(t, int64(0), coarse.Raw())
}
