// Copyright ©2026 The fixexp Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command expsweep sweeps the fixed-point exponential across its input
// domain, measures relative error against math.Exp, and optionally checks
// the pipelined implementation against the combinational one.
//
// Usage:
//
//	expsweep -total 10 -frac 8 -order 3 -pipeline
//	expsweep -total 8 -frac 4 -saturate -print
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fixnum/fixexp"
)

func main() {
	var (
		totalBits = flag.Uint("total", 10, "fixed-point word width including sign bit")
		fracBits  = flag.Uint("frac", 8, "bits right of the binary point")
		order     = flag.Int("order", fixexp.DefaultOrder, "Taylor truncation order (2 or 3)")
		step      = flag.Int64("step", fixexp.DefaultRawStep, "raw-word stride between samples")
		parallel  = flag.Int("parallel", 0, "worker count (0 = GOMAXPROCS)")
		pipeline  = flag.Bool("pipeline", false, "check pipelined output against combinational")
		saturate  = flag.Bool("saturate", false, "clamp overflow instead of reporting it")
		roundMul  = flag.Bool("round-mul", false, "round-to-nearest multiply renormalization")
		printAll  = flag.Bool("print", false, "print every sample, not just the summary")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	format, err := fixexp.NewFormat(*totalBits, *fracBits)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid format")
	}
	if *saturate {
		format = format.WithPolicy(fixexp.OverflowSaturate)
	}
	format = format.WithRoundMul(*roundMul)

	report, err := fixexp.RunSweep(context.Background(), fixexp.SweepConfig{
		Format:        format,
		Order:         *order,
		Step:          *step,
		Parallelism:   *parallel,
		CheckPipeline: *pipeline,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep failed")
	}

	if *printAll {
		printSamples(report)
	}
	fmt.Println(report)

	if report.NumDivergent > 0 {
		os.Exit(1)
	}
}

func printSamples(report *fixexp.SweepReport) {
	fmt.Printf("%12s %12s %12s %12s %12s  %s\n",
		"raw", "x", "approx", "exp(x)", "rel err", "status")
	for _, s := range report.Samples {
		switch s.Status {
		case fixexp.StatusOK:
			fmt.Printf("%12d %12.6f %12.6f %12.6f %12.6g  %s\n",
				s.Raw, s.Input, s.Approx, s.Reference, s.RelErr, s.Status)
		default:
			fmt.Printf("%12d %12.6f %12s %12.6f %12s  %s\n",
				s.Raw, s.Input, "-", s.Reference, "-", s.Status)
		}
	}
}
