// SPDX-License-Identifier: BSD-3-Clause

package pvgw

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Usernamejwle/governor/pkg/target"
	"github.com/Usernamejwle/governor/service/machine"
)

// Defaults for the gateway.
const (
	DefaultServiceName     = "pvgw"
	DefaultRefreshInterval = 100 * time.Millisecond
)

// Supervisor is the surface the gateway needs from the Governor's
// supervisor for the global channels.
type Supervisor interface {
	// SetActive applies the Active-Sel enumeration.
	SetActive(active bool) error
	// SelectMachine applies Config-Sel; rejected while any machine is busy.
	SelectMachine(name string) error
	// AbortActive forwards the global abort to the active machine.
	AbortActive()
	// Kill initiates orderly process shutdown.
	Kill()
}

type config struct {
	serviceName     string
	prefix          string
	nc              *nats.Conn
	sup             Supervisor
	machines        map[string]*machine.Machine
	store           *target.Store
	refreshInterval time.Duration
}

// Option configures a Gateway.
type Option interface {
	apply(*config)
}

type serviceNameOption string

func (o serviceNameOption) apply(c *config) { c.serviceName = string(o) }

// WithServiceName sets the gateway's service name.
func WithServiceName(name string) Option { return serviceNameOption(name) }

type prefixOption string

func (o prefixOption) apply(c *config) { c.prefix = string(o) }

// WithPrefix sets the string prepended to every published channel name.
func WithPrefix(prefix string) Option { return prefixOption(prefix) }

type connOption struct{ nc *nats.Conn }

func (o connOption) apply(c *config) { c.nc = o.nc }

// WithConn sets the bus connection.
func WithConn(nc *nats.Conn) Option { return connOption{nc} }

type supervisorOption struct{ s Supervisor }

func (o supervisorOption) apply(c *config) { c.sup = o.s }

// WithSupervisor sets the global command sink.
func WithSupervisor(s Supervisor) Option { return supervisorOption{s} }

type machinesOption map[string]*machine.Machine

func (o machinesOption) apply(c *config) { c.machines = o }

// WithMachines sets the loaded machines keyed by configuration name.
func WithMachines(machines map[string]*machine.Machine) Option { return machinesOption(machines) }

type storeOption struct{ s *target.Store }

func (o storeOption) apply(c *config) { c.store = o.s }

// WithStore sets the shared target store.
func WithStore(s *target.Store) Option { return storeOption{s} }

type refreshIntervalOption time.Duration

func (o refreshIntervalOption) apply(c *config) { c.refreshInterval = time.Duration(o) }

// WithRefreshInterval overrides the device channel refresh interval.
func WithRefreshInterval(d time.Duration) Option { return refreshIntervalOption(d) }

func (c *config) validate() error {
	if c.serviceName == "" || c.nc == nil || c.sup == nil || c.machines == nil || c.store == nil {
		return ErrInvalidConfig
	}
	if c.refreshInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
