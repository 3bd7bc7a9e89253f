// SPDX-License-Identifier: BSD-3-Clause

package machine

import "errors"

var (
	// ErrInvalidConfig indicates an incomplete machine wiring.
	ErrInvalidConfig = errors.New("invalid machine configuration")
	// ErrNotRunning indicates a command sent before Run started.
	ErrNotRunning = errors.New("machine not running")
)
