// SPDX-License-Identifier: BSD-3-Clause

// Package machine implements one compiled state machine: the controller
// owning the status word and the serialized command intake, and the
// transition executor that drives staged, partially parallel device
// moves.
//
// The controller is a single goroutine (Run) that linearizes commands:
// Go and Abort arriving in rapid succession are applied in arrival
// order. While a transition runs, the executor lives in its own
// goroutine so Abort stays responsive; stage barriers, per-device idle
// timers, and the fault fallback all live in the executor.
//
// Status follows the fixed alphabet {Idle, Busy, Disabled, FAULT}. While
// Idle, a periodic held-state check verifies every device bound by the
// current state is connected, homed, and inside its window; any
// violation drops the machine into FAULT and the initial state without
// motion. Every externally visible change is pushed through the
// Publisher immediately after it becomes visible to reads.
package machine
