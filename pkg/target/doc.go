// SPDX-License-Identifier: BSD-3-Clause

// Package target implements the Governor's target store: the per-machine,
// per-device named setpoint cells, and their synchronization across
// machines.
//
// All mutation flows through one serializing updater goroutine (Run), so
// simultaneous writes from the bus and from post-transition updates can
// never interleave. When a written cell's (device key, target name) pair
// appears in the sync map, the updater fans the value out to the matching
// cell of every other registered machine in the same request, before the
// next write is taken. Fan-out writes are flagged so they are never
// re-fanned, which keeps a write storm impossible even with symmetric
// sync maps.
//
// Subscribers observe every applied write, including fan-outs, after the
// value is visible; the binding layer uses this to republish setpoint
// channels eagerly.
package target
