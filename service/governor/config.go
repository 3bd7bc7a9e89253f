// SPDX-License-Identifier: BSD-3-Clause

package governor

import (
	"time"

	cfgpkg "github.com/Usernamejwle/governor/pkg/config"
	ipcsvc "github.com/Usernamejwle/governor/service/ipc"
)

// Defaults for the supervisor.
const (
	DefaultServiceName = "governor"
	DefaultVersion     = "dev"
	DefaultTimeout     = 10 * time.Second
)

type config struct {
	serviceName string
	prefix      string
	version     string
	idPath      string
	configs     []*cfgpkg.Machine
	syncMap     cfgpkg.Sync
	ipc         *ipcsvc.IPC
	factory     BackendFactory
	timeout     time.Duration
}

// Option configures the supervisor.
type Option interface {
	apply(*config)
}

type serviceNameOption string

func (o serviceNameOption) apply(c *config) { c.serviceName = string(o) }

// WithServiceName sets the supervisor's service name.
func WithServiceName(name string) Option { return serviceNameOption(name) }

type prefixOption string

func (o prefixOption) apply(c *config) { c.prefix = string(o) }

// WithPrefix sets the string prepended to every published channel.
func WithPrefix(prefix string) Option { return prefixOption(prefix) }

type versionOption string

func (o versionOption) apply(c *config) { c.version = string(o) }

// WithVersion sets the value published on {Gov}Sts:Ver-I.
func WithVersion(v string) Option { return versionOption(v) }

type idPathOption string

func (o idPathOption) apply(c *config) { c.idPath = string(o) }

// WithIDPath persists the instance id under the given directory. Without
// it the id is ephemeral.
func WithIDPath(path string) Option { return idPathOption(path) }

type configsOption []*cfgpkg.Machine

func (o configsOption) apply(c *config) { c.configs = o }

// WithConfigs sets the loaded machine configurations, in selection order.
func WithConfigs(configs ...*cfgpkg.Machine) Option { return configsOption(configs) }

type syncMapOption cfgpkg.Sync

func (o syncMapOption) apply(c *config) { c.syncMap = cfgpkg.Sync(o) }

// WithSyncMap sets the cross-machine target synchronization map.
func WithSyncMap(s cfgpkg.Sync) Option { return syncMapOption(s) }

type ipcOption struct{ svc *ipcsvc.IPC }

func (o ipcOption) apply(c *config) { c.ipc = o.svc }

// WithIPC sets the embedded bus service the supervisor runs. Ignored
// when Run receives an external connection provider.
func WithIPC(svc *ipcsvc.IPC) Option { return ipcOption{svc} }

type factoryOption struct{ f BackendFactory }

func (o factoryOption) apply(c *config) { c.factory = o.f }

// WithBackendFactory sets the device backend factory.
func WithBackendFactory(f BackendFactory) Option { return factoryOption{f} }

type timeoutOption time.Duration

func (o timeoutOption) apply(c *config) { c.timeout = time.Duration(o) }

// WithTimeout sets the supervision tree child timeout.
func WithTimeout(d time.Duration) Option { return timeoutOption(d) }
