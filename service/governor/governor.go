// SPDX-License-Identifier: BSD-3-Clause

package governor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"github.com/nats-io/nats.go"

	cfgpkg "github.com/Usernamejwle/governor/pkg/config"
	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/id"
	"github.com/Usernamejwle/governor/pkg/ipc"
	"github.com/Usernamejwle/governor/pkg/log"
	"github.com/Usernamejwle/governor/pkg/process"
	"github.com/Usernamejwle/governor/pkg/state"
	"github.com/Usernamejwle/governor/pkg/target"
	"github.com/Usernamejwle/governor/service"
	"github.com/Usernamejwle/governor/service/machine"
	"github.com/Usernamejwle/governor/service/pvgw"
)

// Compile-time assertions for the supervisor's two roles.
var (
	_ service.Service   = (*Governor)(nil)
	_ pvgw.Supervisor   = (*Governor)(nil)
	_ machine.Publisher = (*Governor)(nil)
)

// Governor is the supervisor: it owns the loaded machines, the shared
// target store, and the single-active invariant.
type Governor struct {
	cfg    config
	logger *slog.Logger

	mu       sync.RWMutex
	machines map[string]*machine.Machine
	order    []string
	selected string
	active   bool
	store    *target.Store
	gw       *pvgw.Gateway

	cancel context.CancelFunc
	killed atomic.Bool
}

// New creates the supervisor with the provided options.
func New(opts ...Option) *Governor {
	cfg := config{
		serviceName: DefaultServiceName,
		version:     DefaultVersion,
		factory:     NewSimBackendFactory(),
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return &Governor{
		cfg:      cfg,
		machines: make(map[string]*machine.Machine),
		active:   true,
	}
}

// Name returns the supervisor's service name.
func (g *Governor) Name() string {
	return g.cfg.serviceName
}

// Publish implements machine.Publisher by forwarding to the gateway.
// Publications before the gateway exists are dropped; runCore creates the
// gateway before it publishes the global channels and starts the
// machines, each of which publishes its full channel set when it runs.
func (g *Governor) Publish(c ipc.Channel, value string) {
	g.mu.RLock()
	gw := g.gw
	g.mu.RUnlock()
	if gw != nil {
		gw.Publish(c, value)
	}
}

// Run starts the supervision tree: the embedded bus (unless an external
// connection is provided), the target store updater, every device poll
// task, every machine controller, and the channel gateway. Run returns
// nil after an orderly Kill.
func (g *Governor) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %w: %v", g.Name(), ErrPanicked, r)
		}
	}()

	g.logger = log.GetGlobalLogger().With("service", g.cfg.serviceName)

	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	defer cancel()

	if err := g.build(); err != nil {
		return err
	}

	tree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(log.NewOversightLogger(g.logger)),
	)

	if g.cfg.ipc == nil && ipcConn == nil {
		return ErrIPCNil
	}

	var conn nats.InProcessConnProvider
	if ipcConn != nil {
		conn = ipcConn
		if err := tree.Add(
			process.New(ipc.NewStub(), nil),
			oversight.Transient(),
			oversight.Timeout(g.cfg.timeout),
			"ipc-stub",
		); err != nil {
			return fmt.Errorf("%w %s to tree: %w", ErrAddProcess, "ipc-stub", err)
		}
	} else {
		if err := tree.Add(
			process.New(g.cfg.ipc, nil),
			oversight.Transient(),
			oversight.Timeout(g.cfg.timeout),
			g.cfg.ipc.Name(),
		); err != nil {
			return fmt.Errorf("%w %s to tree: %w", ErrAddProcess, g.cfg.ipc.Name(), err)
		}
		conn = g.cfg.ipc.GetConnProvider()
	}

	supervise := func(ctx context.Context, c chan error) {
		c <- tree.Start(ctx)
	}
	runCore := func(ctx context.Context, c chan error) {
		c <- g.runCore(ctx, conn)
	}

	g.logger.InfoContext(ctx, "Starting supervisor",
		"machines", len(g.cfg.configs),
		"prefix", g.cfg.prefix,
		"version", g.cfg.version)

	err = nursery.RunConcurrentlyWithContext(ctx, supervise, runCore)
	if g.killed.Load() {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// build compiles the configurations into machines, devices, and the
// target store. All validation failures surface here, before anything
// touches the bus.
func (g *Governor) build() error {
	if len(g.cfg.configs) == 0 {
		return ErrNoConfigs
	}
	if g.cfg.syncMap != nil {
		if err := cfgpkg.ValidateSync(g.cfg.syncMap, g.cfg.configs); err != nil {
			return err
		}
	}

	store := target.New(target.WithSyncMap(g.cfg.syncMap))

	machines := make(map[string]*machine.Machine, len(g.cfg.configs))
	var order []string

	for i, cfg := range g.cfg.configs {
		if _, ok := machines[cfg.Name]; ok {
			return fmt.Errorf("%w: duplicate machine name %q", cfgpkg.ErrConfigInvalid, cfg.Name)
		}
		graph, err := state.Compile(cfg)
		if err != nil {
			return fmt.Errorf("machine %s: %w", cfg.Name, err)
		}

		devices, err := g.buildDevices(cfg)
		if err != nil {
			return fmt.Errorf("machine %s: %w", cfg.Name, err)
		}
		store.Register(cfg.Name, devices)

		m, err := machine.New(
			machine.WithName(cfg.Name),
			machine.WithGraph(graph),
			machine.WithDevices(devices),
			machine.WithStore(store),
			machine.WithPublisher(g),
			machine.WithEnabled(i == 0),
		)
		if err != nil {
			return fmt.Errorf("machine %s: %w", cfg.Name, err)
		}

		machines[cfg.Name] = m
		order = append(order, cfg.Name)
	}

	g.mu.Lock()
	g.machines = machines
	g.order = order
	g.selected = order[0]
	g.store = store
	g.mu.Unlock()
	return nil
}

func (g *Governor) buildDevices(cfg *cfgpkg.Machine) (map[string]*device.Device, error) {
	devices := make(map[string]*device.Device, len(cfg.Devices))
	for key, dcfg := range cfg.Devices {
		opts := []device.Option{
			device.WithKey(key),
			device.WithName(dcfg.Name),
			device.WithPV(dcfg.PV),
			device.WithTimeout(dcfg.MoveTimeout()),
		}

		switch dcfg.Type {
		case cfgpkg.TypeMotor:
			backend, err := g.cfg.factory.Motor(cfg.Name, key, dcfg)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", key, err)
			}
			opts = append(opts,
				device.WithKind(device.KindMotor),
				device.WithTolerance(dcfg.Tolerance),
				device.WithPositions(dcfg.Positions),
				device.WithMotorBackend(backend),
			)
		case cfgpkg.TypeValve:
			backend, err := g.cfg.factory.Valve(cfg.Name, key, dcfg)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", key, err)
			}
			opts = append(opts,
				device.WithKind(device.KindValve),
				device.WithValveBackend(backend),
			)
		default:
			opts = append(opts,
				device.WithKind(device.KindDummy),
				device.WithPositions(dcfg.Positions),
			)
		}

		d, err := device.New(opts...)
		if err != nil {
			return nil, err
		}
		devices[key] = d
	}
	return devices, nil
}

// runCore connects to the bus, builds the gateway, and runs every
// long-lived task of the core under one structured-concurrency scope.
func (g *Governor) runCore(ctx context.Context, conn nats.InProcessConnProvider) error {
	nc, err := nats.Connect("", nats.InProcessServer(conn))
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer nc.Drain() //nolint:errcheck

	g.mu.RLock()
	machines := g.machines
	store := g.store
	g.mu.RUnlock()

	gw, err := pvgw.New(
		pvgw.WithConn(nc),
		pvgw.WithPrefix(g.cfg.prefix),
		pvgw.WithSupervisor(g),
		pvgw.WithMachines(machines),
		pvgw.WithStore(store),
	)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.gw = gw
	g.mu.Unlock()

	g.publishGlobals()

	var jobs []nursery.ConcurrentJob
	run := func(name string, fn func(context.Context) error) nursery.ConcurrentJob {
		return func(ctx context.Context, c chan error) {
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c <- fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	jobs = append(jobs, run("target-store", store.Run))
	jobs = append(jobs, run("pvgw", gw.Run))
	for _, name := range g.order {
		m := machines[name]
		jobs = append(jobs, run("machine "+name, m.Run))
		for key, d := range m.Devices() {
			jobs = append(jobs, run("device "+name+"/"+key, d.Run))
		}
	}

	return nursery.RunConcurrentlyWithContext(ctx, jobs...)
}

// publishGlobals pushes the {Gov} scope channels.
func (g *Governor) publishGlobals() {
	instanceID := ""
	if g.cfg.idPath != "" {
		if persisted, err := id.GetOrCreatePersistentID("id", g.cfg.idPath); err == nil {
			instanceID = persisted
		} else {
			g.logger.Warn("Failed to load persistent id, using ephemeral id", "error", err)
		}
	}
	if instanceID == "" {
		instanceID = id.NewID()
	}

	g.mu.RLock()
	names := append([]string(nil), g.order...)
	selected := g.selected
	active := g.active
	g.mu.RUnlock()

	b, _ := json.Marshal(names)

	g.Publish(ipc.Global(ipc.FieldVerInfo), g.cfg.version)
	g.Publish(ipc.Global(ipc.FieldIDInfo), instanceID)
	g.Publish(ipc.Global(ipc.FieldConfigs), string(b))
	g.Publish(ipc.Global(ipc.FieldConfigSel), selected)
	if active {
		g.Publish(ipc.Global(ipc.FieldActiveSel), ipc.ActiveSelActive)
	} else {
		g.Publish(ipc.Global(ipc.FieldActiveSel), ipc.ActiveSelInactive)
	}
}

// SetActive implements the Active-Sel enumeration. Inactive disables all
// machines; Active re-enables the selected one.
func (g *Governor) SetActive(active bool) error {
	g.mu.Lock()
	if g.active == active {
		g.mu.Unlock()
		return nil
	}
	g.active = active
	selected := g.selected
	machines := g.machines
	g.mu.Unlock()

	for name, m := range machines {
		m.SetEnabled(active && name == selected)
	}

	if active {
		g.Publish(ipc.Global(ipc.FieldActiveSel), ipc.ActiveSelActive)
	} else {
		g.Publish(ipc.Global(ipc.FieldActiveSel), ipc.ActiveSelInactive)
	}
	g.logger.Info("Active selection changed", "active", active)
	return nil
}

// SelectMachine switches the active machine. Rejected while any machine
// is busy.
func (g *Governor) SelectMachine(name string) error {
	g.mu.RLock()
	machines := g.machines
	g.mu.RUnlock()

	if _, ok := machines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMachine, name)
	}
	for n, m := range machines {
		if m.Status() == machine.StatusBusy {
			return fmt.Errorf("%w: %s", ErrMachineBusy, n)
		}
	}

	g.mu.Lock()
	g.selected = name
	active := g.active
	g.mu.Unlock()

	for n, m := range machines {
		m.SetEnabled(active && n == name)
	}

	g.Publish(ipc.Global(ipc.FieldConfigSel), name)
	g.logger.Info("Configuration selected", "machine", name)
	return nil
}

// AbortActive forwards the global abort to the selected machine.
func (g *Governor) AbortActive() {
	g.mu.RLock()
	m := g.machines[g.selected]
	g.mu.RUnlock()
	if m != nil {
		m.Abort()
	}
}

// Kill aborts all machines and shuts the process down. Run returns nil
// afterwards so the process exits cleanly.
func (g *Governor) Kill() {
	g.logger.Info("Kill requested, shutting down")
	g.killed.Store(true)

	g.mu.RLock()
	machines := g.machines
	cancel := g.cancel
	g.mu.RUnlock()

	for _, m := range machines {
		m.Abort()
	}
	if cancel != nil {
		cancel()
	}
}

// Machines returns the loaded machines keyed by name.
func (g *Governor) Machines() map[string]*machine.Machine {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.machines
}

// Store returns the shared target store.
func (g *Governor) Store() *target.Store {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.store
}
