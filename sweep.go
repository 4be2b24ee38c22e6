// Package fixexp error-analysis harness: domain sweeps against math.Exp
package fixexp

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SampleStatus classifies the outcome of one swept input
type SampleStatus int

const (
	// StatusOK: in-range result, pipeline (if checked) matched exactly
	StatusOK SampleStatus = iota
	// StatusOutOfRange: the Taylor sum left the representable range
	StatusOutOfRange
	// StatusDivergent: pipelined output differed from combinational -
	// a design defect, never expected in correct operation
	StatusDivergent
)

// String returns the status as a short tag
func (s SampleStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusOutOfRange:
		return "OUT_OF_RANGE"
	case StatusDivergent:
		return "DIVERGENT"
	default:
		return "UNKNOWN"
	}
}

// Sample pairs one swept input with its approximated output, the
// double-precision reference, and the resulting relative error.
// Approx and RelErr are NaN for non-OK samples.
type Sample struct {
	Raw       int64
	Input     float64
	Approx    float64
	Reference float64
	RelErr    float64
	Status    SampleStatus
	Err       error // detail for non-OK samples
}

// SweepConfig configures an error-analysis run
type SweepConfig struct {
	// Format is the fixed-point format under test
	Format Format

	// Order is the Taylor truncation order; zero means DefaultOrder
	Order int

	// Step is the raw-word stride between samples; zero means
	// DefaultRawStep (every representable value)
	Step int64

	// Parallelism bounds the number of concurrent workers; zero means
	// GOMAXPROCS. Samples are independent, so scheduling never affects
	// the report.
	Parallelism int

	// CheckPipeline additionally runs every in-range sample through a
	// cycle-accurate Pipeline and flags any divergence from Exp
	CheckPipeline bool

	// Logger, if non-nil, receives diagnostics: divergent samples at
	// error level, precision-loss counts at debug level
	Logger *zerolog.Logger
}

// SweepReport is the aggregated result of one sweep, with samples in
// ascending input order. Out-of-range and divergent samples are counted
// distinctly and excluded from the error statistics rather than masked
// as zero error.
type SweepReport struct {
	Format Format
	Order  int

	Samples []Sample

	MaxRelErr  float64
	MeanRelErr float64

	NumOK         int
	NumOutOfRange int
	NumDivergent  int

	// PrecisionLoss is the number of truncation events observed across
	// all multiplies and shifts in the run; diagnostic only
	PrecisionLoss int64
}

// RunSweep evaluates the fixed-point exponential across the representable
// input domain and measures its error against the double-precision
// reference. Per-sample evaluation is scattered across workers and
// gathered back in ascending order.
func RunSweep(ctx context.Context, cfg SweepConfig) (*SweepReport, error) {
	format, err := NewFormat(cfg.Format.TotalBits, cfg.Format.FracBits)
	if err != nil {
		return nil, err
	}
	format.Policy = cfg.Format.Policy
	format.RoundMul = cfg.Format.RoundMul

	order := cfg.Order
	if order == 0 {
		order = DefaultOrder
	}
	step := cfg.Step
	if step == 0 {
		step = DefaultRawStep
	}
	if step < 0 {
		return nil, NewInvalidArgError("RunSweep", fmt.Sprintf("step must be positive, got %d", step))
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	stats := &PrecisionStats{}
	format = format.WithStats(stats)

	// Validate order and constants once up front so workers cannot hit
	// configuration errors mid-run.
	if _, err := newExpConfig([]ExpOption{WithOrder(order)}); err != nil {
		return nil, err
	}
	if _, err := format.One(); err != nil {
		return nil, NewRangeError("RunSweep",
			fmt.Sprintf("format %s cannot represent 1.0", format), format)
	}

	raws := sweepRaws(format, step)
	samples := make([]Sample, len(raws))

	chunk := (len(raws) + parallelism - 1) / parallelism
	g, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(raws); lo += chunk {
		lo := lo
		hi := min(lo+chunk, len(raws))
		g.Go(func() error {
			return sweepChunk(ctx, format, order, cfg.CheckPipeline, raws[lo:hi], samples[lo:hi])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &SweepReport{
		Format:        format,
		Order:         order,
		Samples:       samples,
		PrecisionLoss: stats.Total(),
	}
	var sum float64
	for i := range samples {
		s := &samples[i]
		switch s.Status {
		case StatusOK:
			report.NumOK++
			sum += s.RelErr
			if s.RelErr > report.MaxRelErr {
				report.MaxRelErr = s.RelErr
			}
		case StatusOutOfRange:
			report.NumOutOfRange++
		case StatusDivergent:
			report.NumDivergent++
			if cfg.Logger != nil {
				cfg.Logger.Error().
					Int64("raw", s.Raw).
					Float64("input", s.Input).
					Err(s.Err).
					Msg("pipeline diverged from combinational")
			}
		}
	}
	if report.NumOK > 0 {
		report.MeanRelErr = sum / float64(report.NumOK)
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug().
			Int64("precision_loss_events", report.PrecisionLoss).
			Msg("sweep arithmetic truncation count")
		cfg.Logger.Info().
			Stringer("format", format).
			Int("order", order).
			Int("ok", report.NumOK).
			Int("out_of_range", report.NumOutOfRange).
			Int("divergent", report.NumDivergent).
			Float64("max_rel_err", report.MaxRelErr).
			Float64("mean_rel_err", report.MeanRelErr).
			Msg("sweep complete")
	}
	return report, nil
}

// sweepRaws lists the raw words to sample, ascending across the full
// representable domain
func sweepRaws(format Format, step int64) []int64 {
	raws := make([]int64, 0, (format.MaxRaw()-format.MinRaw())/step+1)
	for raw := format.MinRaw(); raw <= format.MaxRaw(); raw += step {
		raws = append(raws, raw)
	}
	return raws
}

// pipeOutcome is the retired result for one pipelined input
type pipeOutcome struct {
	val *Fixed
	err error
}

// sweepChunk evaluates one contiguous slice of the domain. When the
// pipeline check is on, the whole chunk is streamed through a single
// pipeline at full throughput (one input per cycle) so the check is
// cycle-accurate rather than per-sample.
func sweepChunk(ctx context.Context, format Format, order int, checkPipeline bool, raws []int64, out []Sample) error {
	var outcomes []pipeOutcome
	if checkPipeline {
		var err error
		outcomes, err = streamPipeline(format, order, raws)
		if err != nil {
			return err
		}
	}

	ref := Reference{}
	for i, raw := range raws {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x, err := format.FromRaw(raw)
		if err != nil {
			return err // unreachable: sweepRaws stays in range
		}
		s := Sample{
			Raw:       raw,
			Input:     x.Float64(),
			Reference: ref.Exp(x.Float64()),
			Approx:    math.NaN(),
			RelErr:    math.NaN(),
		}

		approx, combErr := Exp(x, WithOrder(order))
		switch {
		case combErr != nil:
			s.Status = StatusOutOfRange
			s.Err = combErr
		default:
			s.Status = StatusOK
			s.Approx = approx.Float64()
			s.RelErr = RelativeError(s.Approx, s.Reference)
		}

		if checkPipeline {
			if div := diverged(approx, combErr, outcomes[i]); div != nil {
				s.Status = StatusDivergent
				s.Err = div
				s.Approx = math.NaN()
				s.RelErr = math.NaN()
			}
		}
		out[i] = s
	}
	return nil
}

// streamPipeline feeds every raw word through a pipeline, one per cycle,
// and collects the retired outcome for each in order
func streamPipeline(format Format, order int, raws []int64) ([]pipeOutcome, error) {
	p, err := NewPipeline(format, WithOrder(order))
	if err != nil {
		return nil, err
	}
	outcomes := make([]pipeOutcome, 0, len(raws))
	collect := func(v *Fixed, err error) {
		if v != nil || err != nil {
			outcomes = append(outcomes, pipeOutcome{val: v, err: err})
		}
	}
	for _, raw := range raws {
		x, err := format.FromRaw(raw)
		if err != nil {
			return nil, err
		}
		collect(p.Advance(&x))
	}
	// Drain the fill latency; every slot is occupied, so exactly
	// Latency() more outcomes retire.
	for i := 0; i < p.Latency(); i++ {
		collect(p.Advance(nil))
	}
	if len(outcomes) != len(raws) {
		return nil, NewEquivalenceError("RunSweep",
			fmt.Sprintf("pipeline retired %d results for %d inputs", len(outcomes), len(raws)), nil)
	}
	return outcomes, nil
}

// diverged compares the combinational outcome against the pipelined one
// for the same input; nil means they agree (both failed or bit-identical)
func diverged(comb Fixed, combErr error, po pipeOutcome) error {
	if combErr != nil && po.err != nil {
		return nil // both out of range, consistently
	}
	if combErr == nil && po.val != nil && po.val.Raw() == comb.Raw() {
		return nil
	}
	return NewEquivalenceError("RunSweep",
		fmt.Sprintf("combinational (%v, err %v) vs pipelined (%v, err %v)",
			comb, combErr, po.val, po.err), nil)
}

// CheckBound gates a report for regression testing: it fails when any
// sample diverged or when the measured maximum relative error exceeds the
// previously established bound.
func (r *SweepReport) CheckBound(maxRelErr float64) error {
	if r.NumDivergent > 0 {
		return NewEquivalenceError("CheckBound",
			fmt.Sprintf("%d samples diverged between pipeline and combinational", r.NumDivergent), r)
	}
	if r.MaxRelErr > maxRelErr {
		return fmt.Errorf("max relative error %g exceeds bound %g for %s order %d",
			r.MaxRelErr, maxRelErr, r.Format, r.Order)
	}
	return nil
}

// String formats the sweep summary for display
func (r *SweepReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s order-%d exp sweep: %d samples\n", r.Format, r.Order, len(r.Samples))
	fmt.Fprintf(&b, "  ok:           %d (max rel err %.6g, mean rel err %.6g)\n",
		r.NumOK, r.MaxRelErr, r.MeanRelErr)
	fmt.Fprintf(&b, "  out of range: %d\n", r.NumOutOfRange)
	fmt.Fprintf(&b, "  divergent:    %d", r.NumDivergent)
	if r.PrecisionLoss > 0 {
		fmt.Fprintf(&b, "\n  truncation events: %d", r.PrecisionLoss)
	}
	return b.String()
}
