// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Usernamejwle/governor/pkg/log"
	"github.com/Usernamejwle/governor/service"
)

// Compile-time assertion that IPC implements service.Service.
var _ service.Service = (*IPC)(nil)

// IPC runs the embedded NATS server acting as the Governor's channel
// bus. All other services obtain in-process connections through
// GetConnProvider.
type IPC struct {
	config *config
	server *server.Server
	logger *slog.Logger
}

// New creates the bus service with the provided options.
func New(opts ...Option) *IPC {
	cfg := &config{
		serviceName:     DefaultServiceName,
		serverName:      DefaultServerName,
		dontListen:      true,
		maxPayload:      DefaultMaxPayload,
		startupTimeout:  DefaultStartupTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &IPC{
		config: cfg,
	}
}

// Name returns the service name.
func (s *IPC) Name() string {
	return s.config.serviceName
}

// Run starts the embedded server and blocks until the context is
// canceled, then shuts the server down gracefully. The ipcConn parameter
// must be nil: this service provides the bus, it does not consume one.
func (s *IPC) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.logger = log.GetGlobalLogger().With("service", s.config.serviceName)

	if ipcConn != nil {
		return ErrExternalConn
	}

	if err := s.config.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	ns, err := server.NewServer(s.config.toServerOptions())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerCreationFailed, err)
	}
	s.server = ns
	s.server.SetLoggerV2(log.NewNATSLogger(s.logger), false, false, false)

	s.logger.InfoContext(ctx, "Starting bus server", "server_name", s.config.serverName)
	s.server.Start()

	if !s.server.ReadyForConnections(s.config.startupTimeout) {
		s.server.Shutdown()
		return fmt.Errorf("%w: not ready within %v", ErrServerTimeout, s.config.startupTimeout)
	}

	s.logger.InfoContext(ctx, "Bus server started",
		"server_name", s.config.serverName,
		"server_id", s.server.ID())

	<-ctx.Done()

	return s.shutdown(ctx)
}

// GetConnProvider returns a provider handing out in-process connections.
// May be called before the server finished starting; it polls briefly for
// the server instance to appear.
func (s *IPC) GetConnProvider() *ConnProvider {
	timeout := time.Now().Add(s.config.startupTimeout)
	for s.server == nil && time.Now().Before(timeout) {
		time.Sleep(time.Millisecond)
	}

	return &ConnProvider{
		server: s.server,
	}
}

func (s *IPC) shutdown(ctx context.Context) error {
	err := ctx.Err()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(shutdownCtx, "Shutting down bus server")

	if s.server != nil {
		s.server.LameDuckShutdown()

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.server.Shutdown()
		}()

		select {
		case <-done:
			s.logger.InfoContext(shutdownCtx, "Bus server shutdown completed")
		case <-shutdownCtx.Done():
			s.logger.WarnContext(shutdownCtx, "Bus server shutdown timed out")
		}
	}

	return err
}
