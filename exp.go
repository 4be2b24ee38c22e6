package fixexp

import (
	"fmt"
)

// Taylor orders supported by the exponential core
const (
	// OrderQuadratic truncates the series after the x²/2 term
	OrderQuadratic = 2
	// OrderCubic carries the x³/6 term as well
	OrderCubic = 3

	// DefaultOrder is the quadratic truncation
	DefaultOrder = OrderQuadratic

	// sixth is the real coefficient of the cubic term
	sixth = 1.0 / 6
)

// ExpOption configures the exponential core
type ExpOption func(*expConfig) error

type expConfig struct {
	order int
}

// WithOrder selects the Taylor truncation order: OrderQuadratic (default)
// or OrderCubic.
func WithOrder(order int) ExpOption {
	return func(c *expConfig) error {
		if order != OrderQuadratic && order != OrderCubic {
			return NewInvalidArgError("WithOrder",
				fmt.Sprintf("order must be %d or %d, got %d", OrderQuadratic, OrderCubic, order))
		}
		c.order = order
		return nil
	}
}

func newExpConfig(opts []ExpOption) (expConfig, error) {
	cfg := expConfig{order: DefaultOrder}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return expConfig{}, err
		}
	}
	return cfg, nil
}

// Exp computes the Taylor-truncated exponential of x entirely in
// fixed-point arithmetic:
//
//	exp(x) ≈ 1 + x + (x² >> 1)            (OrderQuadratic)
//	exp(x) ≈ 1 + x + (x² >> 1) + x³·⌊1/6⌋  (OrderCubic)
//
// Exp is a pure function: it holds no state and identical inputs always
// produce identical outputs. Inputs near the top of the representable
// domain can push the Taylor sum out of range; under OverflowError that
// surfaces as a RangeError naming the failing step, under
// OverflowSaturate the result clamps to the format maximum. The result is
// never a silently wrapped small number.
func Exp(x Fixed, opts ...ExpOption) (Fixed, error) {
	cfg, err := newExpConfig(opts)
	if err != nil {
		return Fixed{}, err
	}
	format := x.Format()

	one, err := format.One()
	if err != nil {
		return Fixed{}, NewRangeError("Exp",
			fmt.Sprintf("format %s cannot represent 1.0", format), format)
	}

	x2, err := x.Mul(x)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "x*x", err)
	}
	halfX2, err := x2.Shr(1)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "x2>>1", err)
	}

	sum, err := one.Add(x)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "1+x", err)
	}
	sum, err = sum.Add(halfX2)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "sum+x2/2", err)
	}

	if cfg.order == OrderCubic {
		term, err := cubicTerm(x, x2)
		if err != nil {
			return Fixed{}, err
		}
		sum, err = sum.Add(term)
		if err != nil {
			return Fixed{}, wrapRangeError("Exp", "sum+x3/6", err)
		}
	}
	return sum, nil
}

// cubicTerm computes x³·fixed(1/6) via the quantized sixth constant,
// the same constant-multiplier datapath the cubic hardware stage uses.
func cubicTerm(x, x2 Fixed) (Fixed, error) {
	format := x.Format()
	coeff, err := format.FromFloat64(sixth)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "fixed(1/6)", err)
	}
	x3, err := x2.Mul(x)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "x2*x", err)
	}
	term, err := x3.Mul(coeff)
	if err != nil {
		return Fixed{}, wrapRangeError("Exp", "x3*sixth", err)
	}
	return term, nil
}
