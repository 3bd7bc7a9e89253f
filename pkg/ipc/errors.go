// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

var (
	// ErrInvalidRequest indicates a request that could not be decoded.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInternalError indicates an unexpected server-side failure.
	ErrInternalError = errors.New("internal error")
	// ErrInvalidChannel indicates a channel name that does not follow the naming schema.
	ErrInvalidChannel = errors.New("invalid channel name")
	// ErrInvalidKey indicates an entity key that cannot appear in a channel name.
	ErrInvalidKey = errors.New("invalid entity key")
	// ErrUnknownChannel indicates a channel that is not part of the published set.
	ErrUnknownChannel = errors.New("unknown channel")
)
