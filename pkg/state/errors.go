// SPDX-License-Identifier: BSD-3-Clause

package state

import "errors"

var (
	// ErrUnknownState indicates a state key the graph does not define.
	ErrUnknownState = errors.New("unknown state")
	// ErrNoTransition indicates a (from, to) pair without a defined transition.
	ErrNoTransition = errors.New("no such transition")
	// ErrCompile indicates the configuration could not be compiled.
	ErrCompile = errors.New("failed to compile state graph")
)
