// Package fixexp reference implementations for verification
package fixexp

import (
	"math"
)

// Reference contains simple, correct real-valued implementations used for
// testing and verification of the fixed-point core. They are deliberately
// naive; nothing here is meant to be fast.
type Reference struct{}

// Exp returns the double-precision exponential, the gold value every
// fixed-point approximation is judged against.
func (r Reference) Exp(x float64) float64 {
	return math.Exp(x)
}

// TaylorExp returns the truncated Taylor series of e^x around zero in
// double precision, without any fixed-point quantization. Comparing this
// against Exp isolates truncation error; comparing the fixed-point core
// against this isolates quantization error.
func (r Reference) TaylorExp(x float64, order int) float64 {
	sum := 1 + x + x*x/2
	if order >= OrderCubic {
		sum += x * x * x / 6
	}
	return sum
}

// TruncationBound returns an upper bound on the absolute truncation error
// of the order-truncated series at |x| <= a: the Lagrange remainder
// e^a * a^(order+1) / (order+1)!.
func (r Reference) TruncationBound(a float64, order int) float64 {
	fact := 1.0
	for k := 2; k <= order+1; k++ {
		fact *= float64(k)
	}
	return math.Exp(a) * math.Pow(a, float64(order+1)) / fact
}
