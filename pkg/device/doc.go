// SPDX-License-Identifier: BSD-3-Clause

// Package device implements the Governor's uniform driver layer over a
// heterogeneous set of positioners. A Device is a tagged variant of three
// kinds: Motor (one continuous coordinate with a readback tolerance),
// Valve (binary Open/Closed with a status word), and Dummy (succeeds
// instantly, useful for staging and tests).
//
// Each device owns one polling goroutine (Run) that maintains a snapshot
// of connection state, readback, and motion. All other methods are
// non-blocking reads of that snapshot, so the transition executor and the
// binding layer can interrogate devices at any rate without touching the
// underlying protocol.
//
// Motor motion is inferred from consecutive readback samples rather than
// trusted from the controller, which makes the executor's idle-timer
// discipline work even against firmware that reports stale motion flags.
//
// The raw process-variable protocol lives behind the narrow MotorBackend
// and ValveBackend interfaces. The package ships simulated backends
// (SimMotor, SimValve) with configurable travel rates and fault injection;
// the production backend speaking the actual wire protocol is provided by
// the embedding environment.
package device
