// SPDX-License-Identifier: BSD-3-Clause

package governor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usernamejwle/governor/pkg/config"
	"github.com/Usernamejwle/governor/pkg/ipc"
	"github.com/Usernamejwle/governor/service/governor"
	ipcsvc "github.com/Usernamejwle/governor/service/ipc"
)

const (
	eventually = 10 * time.Second
	tick       = 25 * time.Millisecond
)

// testConfig builds a dummy-only machine so transitions complete
// instantly.
func testConfig(name string) *config.Machine {
	return &config.Machine{
		Name: name,
		Devices: map[string]config.Device{
			"dc": {Type: config.TypeDummy, Name: "Detector Cover", Positions: map[string]float64{"In": 0, "Out": 100}},
		},
		InitState: "M",
		States: map[string]config.State{
			"M": {Name: "Maintenance"},
			"SE": {Name: "Sample Exchange", Targets: map[string]config.Target{
				"dc": {Target: "Out"},
			}},
		},
		Transitions: map[string]map[string]config.StageList{
			"M": {"SE": {{"dc"}}},
		},
	}
}

type bus struct {
	t  *testing.T
	nc *nats.Conn
}

func (b *bus) get(c ipc.Channel) string {
	msg, err := b.nc.Request(ipc.GetSubject("", c), nil, time.Second)
	if err != nil {
		return ""
	}
	return string(msg.Data)
}

func (b *bus) put(c ipc.Channel, value string) {
	_, err := b.nc.Request(ipc.PutSubject("", c), []byte(value), time.Second)
	require.NoError(b.t, err)
}

func TestGovernorEndToEnd(t *testing.T) {
	ipcSvc := ipcsvc.New(ipcsvc.WithServerName("governor-test-ipc"))
	gov := governor.New(
		governor.WithVersion("test"),
		governor.WithConfigs(testConfig("Human"), testConfig("Robot")),
		governor.WithSyncMap(config.Sync{"dc": {"Out"}}),
		governor.WithIPC(ipcSvc),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	runErr := make(chan error, 1)
	go func() { runErr <- gov.Run(ctx, nil) }()

	nc, err := nats.Connect("", nats.InProcessServer(ipcSvc.GetConnProvider()))
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	b := &bus{t: t, nc: nc}

	humanStatus := ipc.Machine("Human", ipc.FieldStatusSts)
	robotStatus := ipc.Machine("Robot", ipc.FieldStatusSts)

	// The first configured machine is selected and active, the other
	// disabled.
	require.Eventually(t, func() bool { return b.get(humanStatus) == "Idle" }, eventually, tick)
	require.Eventually(t, func() bool { return b.get(robotStatus) == "Disabled" }, eventually, tick)
	assert.Equal(t, "test", b.get(ipc.Global(ipc.FieldVerInfo)))
	assert.Equal(t, `["Human","Robot"]`, b.get(ipc.Global(ipc.FieldConfigs)))
	assert.Equal(t, "Human", b.get(ipc.Global(ipc.FieldConfigSel)))
	assert.Equal(t, "Active", b.get(ipc.Global(ipc.FieldActiveSel)))
	assert.NotEmpty(t, b.get(ipc.Global(ipc.FieldIDInfo)))

	// Drive a transition over the bus.
	b.put(ipc.Machine("Human", ipc.FieldGoCmd), "SE")
	require.Eventually(t, func() bool {
		return b.get(ipc.Machine("Human", ipc.FieldStateInfo)) == "SE"
	}, eventually, tick)

	// Commands on the disabled machine are rejected but consumed.
	b.put(ipc.Machine("Robot", ipc.FieldGoCmd), "SE")
	require.Eventually(t, func() bool {
		return strings.Contains(b.get(ipc.Machine("Robot", ipc.FieldMsgInfo)), "disabled")
	}, eventually, tick)
	assert.Equal(t, "M", b.get(ipc.Machine("Robot", ipc.FieldStateInfo)))

	// Device channels are live.
	assert.Equal(t, "1", b.get(ipc.Device("Human", "dc", ipc.FieldConnSts)))

	// Target writes go through the store and fan out per the sync map.
	b.put(ipc.Device("Human", "dc", ipc.TargetPosField("Out")), "55")
	require.Eventually(t, func() bool {
		return b.get(ipc.Device("Robot", "dc", ipc.TargetPosField("Out"))) == "55"
	}, eventually, tick)

	// Switch the active machine.
	b.put(ipc.Global(ipc.FieldConfigSel), "Robot")
	require.Eventually(t, func() bool {
		return b.get(humanStatus) == "Disabled" && b.get(robotStatus) == "Idle"
	}, eventually, tick)

	// Deactivate everything, then reactivate.
	b.put(ipc.Global(ipc.FieldActiveSel), "Inactive")
	require.Eventually(t, func() bool {
		return b.get(humanStatus) == "Disabled" && b.get(robotStatus) == "Disabled"
	}, eventually, tick)

	b.put(ipc.Global(ipc.FieldActiveSel), "Active")
	require.Eventually(t, func() bool { return b.get(robotStatus) == "Idle" }, eventually, tick)

	// Orderly shutdown: Kill exits Run cleanly.
	_ = nc.Publish(ipc.PutSubject("", ipc.Global(ipc.FieldKillCmd)), []byte("1"))
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(eventually):
		t.Fatal("governor did not shut down after Kill")
	}
}

func TestGovernorRejectsUnknownMachine(t *testing.T) {
	// Config-Sel naming no loaded machine is rejected.
	gov := governor.New(governor.WithConfigs(testConfig("Human")))
	require.ErrorIs(t, gov.SelectMachine("Ghost"), governor.ErrUnknownMachine)
}

func TestGovernorRequiresConfigs(t *testing.T) {
	gov := governor.New(governor.WithIPC(ipcsvc.New()))
	err := gov.Run(context.Background(), nil)
	require.ErrorIs(t, err, governor.ErrNoConfigs)
}

func TestGovernorRequiresBus(t *testing.T) {
	gov := governor.New(governor.WithConfigs(testConfig("Human")))
	err := gov.Run(context.Background(), nil)
	require.ErrorIs(t, err, governor.ErrIPCNil)
}
