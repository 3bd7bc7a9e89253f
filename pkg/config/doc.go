// SPDX-License-Identifier: BSD-3-Clause

// Package config defines the YAML configuration schema of a Governor
// state machine and the sync map, plus the compile-time validation that
// turns a malformed file into an enumerated, actionable error list
// instead of a runtime surprise.
//
// One file describes one machine: its devices, its named states with
// per-device target bindings and windows, and the staged transitions
// connecting them. Validation enforces every structural invariant the
// runtime relies on, so the executor never has to re-check that a staged
// device exists or that a window is ordered.
package config
