// SPDX-License-Identifier: BSD-3-Clause

package service

import (
	"context"

	"github.com/nats-io/nats.go"
)

// Service is an interface for the Governor's long running processes.
// A service might be restarted by the supervision tree if it returns an
// error; returning nil marks it done (a oneshot service). Names must be
// unique per process.
type Service interface {
	// Name returns the unique name of the service.
	Name() string

	// Run starts the service with the provided context and bus
	// connection provider. It returns an error if the service needs to
	// be restarted.
	Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error
}
