// SPDX-License-Identifier: BSD-3-Clause

package ipc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipcsvc "github.com/Usernamejwle/governor/service/ipc"
)

func TestBusRoundTrip(t *testing.T) {
	svc := ipcsvc.New(ipcsvc.WithServerName("ipc-test"))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- svc.Run(ctx, nil) }()

	nc, err := nats.Connect("", nats.InProcessServer(svc.GetConnProvider()))
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	sub, err := nc.SubscribeSync("pv.update.test")
	require.NoError(t, err)
	require.NoError(t, nc.Publish("pv.update.test", []byte("42")))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "42", string(msg.Data))

	cancel()
	select {
	case err := <-runErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("bus did not shut down")
	}
}

func TestBusRejectsExternalConn(t *testing.T) {
	svc := ipcsvc.New()
	err := svc.Run(context.Background(), &stubProvider{})
	require.ErrorIs(t, err, ipcsvc.ErrExternalConn)
}

type stubProvider struct{}

func (s *stubProvider) InProcessConn() (conn net.Conn, err error) {
	return nil, nil
}
