// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ConnProvider provides in-process connections to the embedded NATS
// server. It waits for the server to accept connections, so callers may
// obtain a provider before startup has finished.
type ConnProvider struct {
	server *server.Server
}

// InProcessConn creates a new in-process connection to the NATS server.
func (p *ConnProvider) InProcessConn() (net.Conn, error) {
	if p.server == nil {
		return nil, ErrConnectionNotAvailable
	}

	if !p.server.ReadyForConnections(time.Minute) {
		return nil, ErrServerNotReady
	}

	conn, err := p.server.InProcessConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInProcessConnFailed, err)
	}

	return conn, nil
}
