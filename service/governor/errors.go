// SPDX-License-Identifier: BSD-3-Clause

package governor

import "errors"

var (
	// ErrNoConfigs indicates the supervisor was started without machine configurations.
	ErrNoConfigs = errors.New("no machine configurations")
	// ErrUnknownMachine indicates a Config-Sel value naming no loaded machine.
	ErrUnknownMachine = errors.New("unknown machine")
	// ErrMachineBusy indicates a configuration switch while a transition runs.
	ErrMachineBusy = errors.New("machine busy")
	// ErrIPCNil indicates neither a bus service nor an external connection was provided.
	ErrIPCNil = errors.New("no IPC service or connection provided")
	// ErrAddProcess indicates a child could not be added to the supervision tree.
	ErrAddProcess = errors.New("failed to add process")
	// ErrPanicked indicates the supervisor recovered a panic.
	ErrPanicked = errors.New("panicked")
)
