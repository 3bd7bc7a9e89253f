// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Defaults for the embedded bus.
const (
	DefaultServiceName     = "ipc"
	DefaultServerName      = "governor-ipc"
	DefaultStartupTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMaxPayload      = 1 << 20
)

type config struct {
	serviceName     string
	serverName      string
	dontListen      bool
	maxPayload      int32
	startupTimeout  time.Duration
	shutdownTimeout time.Duration
}

// Option configures the bus service.
type Option interface {
	apply(*config)
}

type serviceNameOption string

func (o serviceNameOption) apply(c *config) { c.serviceName = string(o) }

// WithServiceName sets the service name used in supervision and logging.
func WithServiceName(name string) Option { return serviceNameOption(name) }

type serverNameOption string

func (o serverNameOption) apply(c *config) { c.serverName = string(o) }

// WithServerName sets the embedded server's name.
func WithServerName(name string) Option { return serverNameOption(name) }

type listenOption bool

func (o listenOption) apply(c *config) { c.dontListen = !bool(o) }

// WithListen enables the network listener. Off by default; the bus is
// in-process only unless a deployment needs external clients.
func WithListen(enable bool) Option { return listenOption(enable) }

type startupTimeoutOption time.Duration

func (o startupTimeoutOption) apply(c *config) { c.startupTimeout = time.Duration(o) }

// WithStartupTimeout bounds how long to wait for the server to accept
// connections.
func WithStartupTimeout(d time.Duration) Option { return startupTimeoutOption(d) }

type shutdownTimeoutOption time.Duration

func (o shutdownTimeoutOption) apply(c *config) { c.shutdownTimeout = time.Duration(o) }

// WithShutdownTimeout bounds the graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option { return shutdownTimeoutOption(d) }

func (c *config) validate() error {
	if c.serviceName == "" || c.serverName == "" {
		return ErrInvalidConfiguration
	}
	if c.startupTimeout <= 0 || c.shutdownTimeout <= 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

func (c *config) toServerOptions() *server.Options {
	return &server.Options{
		ServerName: c.serverName,
		DontListen: c.dontListen,
		MaxPayload: c.maxPayload,
		NoSigs:     true,
	}
}
