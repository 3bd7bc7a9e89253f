// SPDX-License-Identifier: BSD-3-Clause

// Package state compiles a validated machine configuration into an
// executable state graph. Each named state carries its per-device target
// bindings; each transition carries its ordered stage list. The graph
// itself is driven by a stateless.StateMachine underneath, with one
// trigger per destination state and a fallback trigger that every state
// permits into the initial state, mirroring the fault and abort paths.
//
// The graph only does bookkeeping: which state is current, which
// destinations are permitted, what a transition's stages are. Actually
// moving devices is the transition executor's job; it consults the graph
// before motion and commits the state change after.
package state
