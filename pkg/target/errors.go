// SPDX-License-Identifier: BSD-3-Clause

package target

import "errors"

var (
	// ErrUnknownMachine indicates a write addressed to an unregistered machine.
	ErrUnknownMachine = errors.New("unknown machine")
	// ErrUnknownDevice indicates a write addressed to a device the machine does not have.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrStoreClosed indicates a write after the updater has stopped.
	ErrStoreClosed = errors.New("target store closed")
)
