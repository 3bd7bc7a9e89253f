// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"

	"github.com/nats-io/nats.go"
)

// Stub is a no-op bus service used when the Governor is handed an
// external connection provider and does not run its own embedded bus.
type Stub struct{}

// Name returns the identifier name for the stub bus service.
func (s *Stub) Name() string {
	return "ipc-stub"
}

// Run returns immediately without error.
func (s *Stub) Run(_ context.Context, _ nats.InProcessConnProvider) error {
	return nil
}

// NewStub creates a new stub bus service.
func NewStub() *Stub {
	return &Stub{}
}
