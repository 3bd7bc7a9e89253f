// SPDX-License-Identifier: BSD-3-Clause

package pvgw

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go/micro"

	"github.com/Usernamejwle/governor/pkg/ipc"
	"github.com/Usernamejwle/governor/pkg/log"
	"github.com/Usernamejwle/governor/pkg/target"
	"github.com/Usernamejwle/governor/pkg/telemetry"
	"github.com/Usernamejwle/governor/service/machine"
)

// Compile-time assertion that the gateway can publish for machines.
var _ machine.Publisher = (*Gateway)(nil)

// Gateway binds the internal object graph to the published channel
// namespace.
type Gateway struct {
	cfg    config
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]string

	microService micro.Service
}

// New creates a gateway from the provided options.
func New(opts ...Option) (*Gateway, error) {
	cfg := config{
		serviceName:     DefaultServiceName,
		refreshInterval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:    cfg,
		values: make(map[string]string),
		logger: log.GetGlobalLogger().With("service", cfg.serviceName),
	}

	// Target writes are observed through the store so sync fan-outs
	// republish on every affected machine.
	cfg.store.Subscribe(func(u target.Update) {
		g.Publish(ipc.Device(u.Machine, u.Device, ipc.TargetPosField(u.Target)), formatFloat(u.Value))
	})

	return g, nil
}

// Publish records a channel value and, when it changed, pushes it on the
// channel's update subject. Safe for concurrent use.
func (g *Gateway) Publish(c ipc.Channel, value string) {
	name := c.Name(g.cfg.prefix)

	g.mu.Lock()
	prev, seen := g.values[name]
	if seen && prev == value {
		g.mu.Unlock()
		return
	}
	g.values[name] = value
	g.mu.Unlock()

	if err := g.cfg.nc.Publish(ipc.UpdateSubject(g.cfg.prefix, c), []byte(value)); err != nil {
		g.logger.Warn("Failed to publish channel update", "channel", name, "error", err)
	}
}

// Value returns the last published value of a channel.
func (g *Gateway) Value(c ipc.Channel) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[c.Name(g.cfg.prefix)]
	return v, ok
}

// Run registers the put/get endpoints and keeps the device channels
// fresh until the context is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	var err error
	g.microService, err = micro.AddService(g.cfg.nc, micro.Config{
		Name:        g.cfg.serviceName,
		Description: "Governor channel binding layer",
		Version:     "1.0.0",
	})
	if err != nil {
		return fmt.Errorf("failed to create micro service: %w", err)
	}
	defer g.microService.Stop() //nolint:errcheck

	if err := g.microService.AddEndpoint("put",
		micro.HandlerFunc(g.handlePut),
		micro.WithEndpointSubject(ipc.SubjectPutWildcard)); err != nil {
		return fmt.Errorf("failed to register put endpoint: %w", err)
	}
	if err := g.microService.AddEndpoint("get",
		micro.HandlerFunc(g.handleGet),
		micro.WithEndpointSubject("pv.get.>")); err != nil {
		return fmt.Errorf("failed to register get endpoint: %w", err)
	}

	g.publishTargets()
	g.refreshDevices()

	ticker := time.NewTicker(g.cfg.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.refreshDevices()
		}
	}
}

// publishTargets pushes every target setpoint cell once at startup.
func (g *Gateway) publishTargets() {
	for name, m := range g.cfg.machines {
		for key, d := range m.Devices() {
			g.Publish(ipc.Device(name, key, ipc.FieldConnSts), boolSts(d.Connected()))
			g.Publish(ipc.Device(name, key, ipc.FieldPosInfo), d.ReadbackString())
			for _, t := range d.Targets() {
				if v, ok := d.Target(t); ok {
					g.Publish(ipc.Device(name, key, ipc.TargetPosField(t)), formatFloat(v))
				}
			}
		}
	}
}

// refreshDevices republishes connection state and readbacks; Publish
// dedups, so only changes hit the bus.
func (g *Gateway) refreshDevices() {
	names := make([]string, 0, len(g.cfg.machines))
	for name := range g.cfg.machines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := g.cfg.machines[name]
		for key, d := range m.Devices() {
			g.Publish(ipc.Device(name, key, ipc.FieldConnSts), boolSts(d.Connected()))
			g.Publish(ipc.Device(name, key, ipc.FieldPosInfo), d.ReadbackString())
		}
	}
}

// handlePut decodes a channel write into a command or a target setpoint
// update. Commands are fire-and-forget: they are acknowledged on
// acceptance into the intake queue, rejections surface on Msg-I.
func (g *Gateway) handlePut(req micro.Request) {
	ctx := telemetry.GetCtxFromReq(req)

	ch, err := ipc.ChannelFromPutSubject(g.cfg.prefix, req.Subject())
	if err != nil {
		ipc.RespondWithError(ctx, req, ipc.ErrInvalidChannel, req.Subject())
		return
	}
	value := string(req.Data())

	switch ch.Scope {
	case ipc.ScopeGlobal:
		g.handleGlobalPut(ctx, req, ch, value)
	case ipc.ScopeMachine:
		g.handleMachinePut(ctx, req, ch, value)
	case ipc.ScopeDevice:
		g.handleDevicePut(ctx, req, ch, value)
	default:
		ipc.RespondWithError(ctx, req, ErrReadOnly, ch.Name(g.cfg.prefix))
	}
}

func (g *Gateway) handleGlobalPut(ctx context.Context, req micro.Request, ch ipc.Channel, value string) {
	switch ch.Field {
	case ipc.FieldActiveSel:
		var active bool
		switch value {
		case ipc.ActiveSelActive:
			active = true
		case ipc.ActiveSelInactive:
			active = false
		default:
			ipc.RespondWithError(ctx, req, ErrBadValue, value)
			return
		}
		if err := g.cfg.sup.SetActive(active); err != nil {
			ipc.RespondWithError(ctx, req, err, "Active-Sel")
			return
		}
	case ipc.FieldConfigSel:
		if err := g.cfg.sup.SelectMachine(value); err != nil {
			ipc.RespondWithError(ctx, req, err, "Config-Sel")
			return
		}
	case ipc.FieldKillCmd:
		g.cfg.sup.Kill()
	case ipc.FieldAbortCmd:
		g.cfg.sup.AbortActive()
	default:
		ipc.RespondWithError(ctx, req, ErrReadOnly, ch.Name(g.cfg.prefix))
		return
	}
	g.respondOK(ctx, req)
}

func (g *Gateway) handleMachinePut(ctx context.Context, req micro.Request, ch ipc.Channel, value string) {
	m, ok := g.cfg.machines[ch.Machine]
	if !ok {
		ipc.RespondWithError(ctx, req, ipc.ErrUnknownChannel, ch.Name(g.cfg.prefix))
		return
	}

	switch ch.Field {
	case ipc.FieldGoCmd:
		m.Go(value)
	case ipc.FieldAbortCmd:
		m.Abort()
	default:
		ipc.RespondWithError(ctx, req, ErrReadOnly, ch.Name(g.cfg.prefix))
		return
	}
	g.respondOK(ctx, req)
}

func (g *Gateway) handleDevicePut(ctx context.Context, req micro.Request, ch ipc.Channel, value string) {
	targetName, ok := ipc.TargetFromPosField(ch.Field)
	if !ok {
		ipc.RespondWithError(ctx, req, ErrReadOnly, ch.Name(g.cfg.prefix))
		return
	}
	if _, ok := g.cfg.machines[ch.Machine]; !ok {
		ipc.RespondWithError(ctx, req, ipc.ErrUnknownChannel, ch.Name(g.cfg.prefix))
		return
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		ipc.RespondWithError(ctx, req, ErrBadValue, value)
		return
	}
	if err := g.cfg.store.Set(ctx, ch.Machine, ch.Device, targetName, v); err != nil {
		ipc.RespondWithError(ctx, req, err, ch.Name(g.cfg.prefix))
		return
	}
	g.respondOK(ctx, req)
}

// handleGet serves a channel read from the last published value.
func (g *Gateway) handleGet(req micro.Request) {
	ctx := telemetry.GetCtxFromReq(req)

	const root = "pv.get."
	subject := req.Subject()
	if len(subject) <= len(root) {
		ipc.RespondWithError(ctx, req, ipc.ErrInvalidChannel, subject)
		return
	}
	name := subject[len(root):]

	g.mu.RLock()
	value, ok := g.values[name]
	g.mu.RUnlock()
	if !ok {
		ipc.RespondWithError(ctx, req, ipc.ErrUnknownChannel, name)
		return
	}
	if err := req.Respond([]byte(value)); err != nil {
		g.logger.Warn("Failed to respond to channel read", "channel", name, "error", err)
	}
}

func (g *Gateway) respondOK(_ context.Context, req micro.Request) {
	if err := req.Respond([]byte("OK")); err != nil {
		g.logger.Warn("Failed to acknowledge channel write", "subject", req.Subject(), "error", err)
	}
}

func boolSts(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
