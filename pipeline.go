package fixexp

import (
	"fmt"
)

// stageReg is one pipeline register: the values latched at a clock edge,
// plus a valid flag (false = bubble). A stage whose arithmetic overflowed
// becomes a poisoned slot that carries its error to retirement so the
// failure stays associated with the input that caused it.
type stageReg struct {
	valid bool
	err   error
	x     Fixed // original input, carried through every stage
	x2    Fixed
	half  Fixed
	term  Fixed
	acc   Fixed
}

// poison marks the slot failed, tagging the error with the input that
// entered the pipeline
func (r *stageReg) poison(step string, err error) {
	r.err = &Error{
		Kind:    KindRange,
		Op:      "Pipeline",
		Message: fmt.Sprintf("step %q exceeds representable range", step),
		Err:     err,
		Context: r.x,
	}
}

// Pipeline is the clocked form of Exp: the same arithmetic split into
// stages with registered intermediates, advancing in lock step on every
// Advance call. It is fully pipelined - a new input may be accepted each
// cycle and one result retires per cycle once the pipeline has filled.
// Pipelining changes only latency and throughput, never the numeric
// result: every retired value equals Exp of the corresponding input,
// bit for bit.
//
// Stage plan:
//
//	OrderQuadratic (depth 3): square | halve | accumulate
//	OrderCubic     (depth 4): square | cube | scale | accumulate
type Pipeline struct {
	format Format
	order  int
	depth  int
	one    Fixed // constant 1.0, latched at configuration time
	coeff  Fixed // constant fixed(1/6), cubic order only
	regs   []stageReg
}

// PipelineOption configures a Pipeline
type PipelineOption = ExpOption

// NewPipeline creates a pipeline computing the Taylor exponential in the
// given format. The stage registers are allocated once here and
// overwritten every cycle; the depth is fixed for the pipeline's lifetime.
func NewPipeline(format Format, opts ...PipelineOption) (*Pipeline, error) {
	cfg, err := newExpConfig(opts)
	if err != nil {
		return nil, err
	}
	one, err := format.One()
	if err != nil {
		return nil, NewRangeError("NewPipeline",
			fmt.Sprintf("format %s cannot represent 1.0", format), format)
	}
	p := &Pipeline{
		format: format,
		order:  cfg.order,
		depth:  3,
		one:    one,
	}
	if cfg.order == OrderCubic {
		p.depth = 4
		// Quantizing 1/6 cannot overflow; it may round to zero in very
		// coarse formats, matching the combinational constant exactly.
		p.coeff, err = format.FromFloat64(sixth)
		if err != nil {
			return nil, wrapRangeError("NewPipeline", "fixed(1/6)", err)
		}
	}
	p.regs = make([]stageReg, p.depth)
	return p, nil
}

// Format returns the pipeline's fixed-point format
func (p *Pipeline) Format() Format {
	return p.format
}

// Order returns the configured Taylor truncation order
func (p *Pipeline) Order() int {
	return p.order
}

// Latency returns the fixed pipeline depth: an input accepted on cycle n
// retires on cycle n + Latency().
func (p *Pipeline) Latency() int {
	return p.depth
}

// Reset clears every stage register to a bubble (the hardware reset line)
func (p *Pipeline) Reset() {
	for i := range p.regs {
		p.regs[i] = stageReg{}
	}
}

// Advance applies one clock edge: every stage latches the previous stage's
// result, stage 0 latches in (nil = bubble), and the value leaving the
// final stage this cycle is returned. The returned value is nil while the
// pipeline is still filling or when a bubble retires. If the retiring
// slot overflowed in some stage, Advance returns the RangeError recorded
// for it; the pipeline keeps running.
func (p *Pipeline) Advance(in *Fixed) (*Fixed, error) {
	if in != nil && !in.Format().sameShape(p.format) {
		return nil, NewFormatError("Advance",
			fmt.Sprintf("input format %s does not match pipeline %s", in.Format(), p.format),
			in.Format())
	}

	retired := p.regs[p.depth-1]

	for i := p.depth - 1; i >= 1; i-- {
		p.regs[i] = p.exec(i, p.regs[i-1])
	}
	if in == nil {
		p.regs[0] = stageReg{}
	} else {
		p.regs[0] = p.exec(0, stageReg{valid: true, x: *in})
	}

	if !retired.valid {
		return nil, nil
	}
	if retired.err != nil {
		return nil, retired.err
	}
	out := retired.acc
	return &out, nil
}

// Flush drains the pipeline by clocking bubbles through it, returning the
// values that retire in order. If a poisoned slot retires during the
// drain, its error is returned alongside the values collected so far and
// the drain continues.
func (p *Pipeline) Flush() ([]Fixed, error) {
	var out []Fixed
	var firstErr error
	for i := 0; i < p.depth; i++ {
		v, err := p.Advance(nil)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, firstErr
}

// exec runs stage i's combinational logic on the register contents
// arriving from stage i-1. Bubbles and poisoned slots pass through
// unchanged so spacing and error association are preserved.
func (p *Pipeline) exec(i int, prev stageReg) stageReg {
	if !prev.valid || prev.err != nil {
		return prev
	}
	if p.order == OrderCubic {
		switch i {
		case 0:
			return p.stageSquare(prev)
		case 1:
			return p.stageCube(prev)
		case 2:
			return p.stageScale(prev)
		default:
			return p.stageAccumulate(prev)
		}
	}
	switch i {
	case 0:
		return p.stageSquare(prev)
	case 1:
		return p.stageHalve(prev)
	default:
		return p.stageAccumulate(prev)
	}
}

// stageSquare: x2 = x*x
func (p *Pipeline) stageSquare(r stageReg) stageReg {
	x2, err := r.x.Mul(r.x)
	if err != nil {
		r.poison("x*x", err)
		return r
	}
	r.x2 = x2
	return r
}

// stageHalve: half = x2 >> 1 (quadratic order)
func (p *Pipeline) stageHalve(r stageReg) stageReg {
	half, err := r.x2.Shr(1)
	if err != nil {
		r.poison("x2>>1", err)
		return r
	}
	r.half = half
	return r
}

// stageCube: term = x2*x, held in term until the scale stage
func (p *Pipeline) stageCube(r stageReg) stageReg {
	x3, err := r.x2.Mul(r.x)
	if err != nil {
		r.poison("x2*x", err)
		return r
	}
	r.term = x3
	return r
}

// stageScale: term = x3*fixed(1/6) and half = x2 >> 1 (cubic order)
func (p *Pipeline) stageScale(r stageReg) stageReg {
	term, err := r.term.Mul(p.coeff)
	if err != nil {
		r.poison("x3*sixth", err)
		return r
	}
	half, err := r.x2.Shr(1)
	if err != nil {
		r.poison("x2>>1", err)
		return r
	}
	r.term = term
	r.half = half
	return r
}

// stageAccumulate: acc = 1 + x + half (+ term), in the same summation
// order as Exp so overflow behavior is identical
func (p *Pipeline) stageAccumulate(r stageReg) stageReg {
	sum, err := p.one.Add(r.x)
	if err != nil {
		r.poison("1+x", err)
		return r
	}
	sum, err = sum.Add(r.half)
	if err != nil {
		r.poison("sum+x2/2", err)
		return r
	}
	if p.order == OrderCubic {
		sum, err = sum.Add(r.term)
		if err != nil {
			r.poison("sum+x3/6", err)
			return r
		}
	}
	r.acc = sum
	return r
}
