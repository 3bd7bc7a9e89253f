// SPDX-License-Identifier: BSD-3-Clause

// Package governor implements the supervisor service: it compiles the
// loaded configurations into machines, wires the shared target store and
// the channel gateway, and runs everything under one supervision tree
// together with the embedded bus.
//
// The supervisor enforces the process-wide invariants: at most one
// machine is active at any time (the rest are Disabled), switching the
// active machine is rejected while any machine is busy, deactivation
// disables every machine, and Kill performs an orderly shutdown of all
// motion, the binding layer, and the bus.
package governor
