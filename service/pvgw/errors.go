// SPDX-License-Identifier: BSD-3-Clause

package pvgw

import "errors"

var (
	// ErrInvalidConfig indicates incomplete gateway wiring.
	ErrInvalidConfig = errors.New("invalid gateway configuration")
	// ErrReadOnly indicates a write to a channel that is not writable.
	ErrReadOnly = errors.New("channel is read-only")
	// ErrBadValue indicates a write payload that does not decode for the channel.
	ErrBadValue = errors.New("invalid value for channel")
)
