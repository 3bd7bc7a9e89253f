// SPDX-License-Identifier: BSD-3-Clause

package device

import "errors"

var (
	// ErrInvalidConfig indicates an invalid device configuration.
	ErrInvalidConfig = errors.New("invalid device configuration")
	// ErrNoBackend indicates a motor or valve without a backend.
	ErrNoBackend = errors.New("device has no backend")
	// ErrUnknownTarget indicates a target name the device does not define.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrImmutableTarget indicates a write to a valve's implicit targets.
	ErrImmutableTarget = errors.New("target setpoint is not writable")
	// ErrDisconnected indicates the underlying channels are not live.
	ErrDisconnected = errors.New("device disconnected")
	// ErrNotHomed indicates a motor whose controller reports it unhomed.
	ErrNotHomed = errors.New("motor not homed")
	// ErrOutOfLimits indicates a setpoint outside the motor's travel limits.
	ErrOutOfLimits = errors.New("setpoint outside motor limits")
	// ErrBackendWrite indicates a failed write to the underlying channels.
	ErrBackendWrite = errors.New("backend write failed")
)
