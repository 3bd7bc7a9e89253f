// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

var (
	// ErrInvalidConfiguration indicates an invalid bus configuration.
	ErrInvalidConfiguration = errors.New("invalid IPC configuration")
	// ErrServerCreationFailed indicates the embedded server could not be created.
	ErrServerCreationFailed = errors.New("failed to create NATS server")
	// ErrServerTimeout indicates the server did not become ready in time.
	ErrServerTimeout = errors.New("NATS server startup timeout")
	// ErrExternalConn indicates an external bus connection was provided to the bus service itself.
	ErrExternalConn = errors.New("IPC service cannot consume an external connection")
	// ErrConnectionNotAvailable indicates the server is not running.
	ErrConnectionNotAvailable = errors.New("IPC connection not available")
	// ErrServerNotReady indicates the server did not accept connections.
	ErrServerNotReady = errors.New("IPC server not ready")
	// ErrInProcessConnFailed indicates the in-process connection could not be created.
	ErrInProcessConnFailed = errors.New("failed to create in-process connection")
)
