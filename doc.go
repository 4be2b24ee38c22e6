// Copyright ©2026 The fixexp Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fixexp models a fixed-point exponential unit the way it would be
// built in digital logic, and measures how well that unit approximates the
// real exponential function.
//
// The package has three layers:
//
//   - Fixed/Format: a signed, bounded-width two's-complement fixed-point
//     value type with explicit overflow policy (error out or saturate) and
//     hardware-faithful multiply renormalization.
//   - Exp and Pipeline: a combinational Taylor approximation of e^x
//     (1 + x + x²/2, optionally + x³/6) built entirely from Fixed
//     operations, and a clocked pipeline that computes the identical
//     bit-for-bit result after a fixed latency.
//   - RunSweep: a verification harness that sweeps the representable input
//     domain, compares against math.Exp, checks pipeline/combinational
//     equivalence, and reports per-sample relative error plus summary
//     statistics.
//
// The combinational and pipelined definitions are kept as pure
// function/state-machine semantics so that translation into a synthesizable
// hardware description is mechanical; nothing in this package performs I/O
// or depends on wall-clock time.
package fixexp
