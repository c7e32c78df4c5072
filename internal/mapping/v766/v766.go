// Package v766 adapts the engine to protocol 766 hosts (game versions
// 1.20.5 and 1.20.6).
package v766

import (
	"sync"

	"github.com/vovakirdan/authgate/internal/auth"
	"github.com/vovakirdan/authgate/internal/core"
	"github.com/vovakirdan/authgate/internal/mapping"
)

const vendor = "https://github.com/vovakirdan/authgate"

// Adapter splices the interceptor into a protocol-766 host pipeline.
type Adapter struct {
	deps mapping.Deps

	mu          sync.Mutex
	interceptor *core.Interceptor
	finalizer   *core.Finalizer
	started     bool
	closed      bool
}

// New builds the candidate. When premium authentication is enforced the host
// is switched to authenticated handshakes up front, before any login traffic,
// so session verification carries the client address.
func New(deps mapping.Deps) mapping.Mapping {
	if deps.Config != nil && deps.Config.PremiumAuthentication.Enabled && deps.Host != nil {
		deps.Host.SetAuthenticated(true)
	}
	return &Adapter{deps: deps}
}

func (a *Adapter) Name() string    { return "1.20.5/6" }
func (a *Adapter) Vendor() string  { return vendor }
func (a *Adapter) Version() string { return "1.0.0" }

func (a *Adapter) Platforms() []string {
	return []string{"java"}
}

func (a *Adapter) CompatibleProtocols() []int {
	return []int{766}
}

// Compatible matches the live host against the supported platform and
// protocol ids.
func (a *Adapter) Compatible() bool {
	platform := a.deps.Host.Platform()
	matched := false
	for _, p := range a.Platforms() {
		if p == platform {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	proto := a.deps.Host.ProtocolVersion()
	for _, id := range a.CompatibleProtocols() {
		if id == proto {
			return true
		}
	}
	return false
}

// Start wires the authentication engine and installs the interceptor on the
// host pipeline.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}

	engine := auth.NewEngine(a.deps.Host.KeyPair(), a.deps.Host.ServerID(), a.deps.Sessions, a.deps.Log)
	a.finalizer = core.NewFinalizer(0, a.deps.Reporter, a.deps.Log)
	a.interceptor = core.NewInterceptor(a.deps.Host, a.deps.Config, engine, a.deps.Accounts, a.finalizer, a.deps.Reporter, a.deps.Log)

	inj, err := a.deps.Host.Install(a.interceptor)
	if err != nil {
		a.finalizer.Close()
		a.finalizer = nil
		a.interceptor = nil
		return err
	}
	a.interceptor.SetInjection(inj)

	a.started = true
	return nil
}

// Connections exposes the live-attempt registry, nil before Start.
func (a *Adapter) Connections() *core.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.interceptor == nil {
		return nil
	}
	return a.interceptor.Connections()
}

// Close removes the interception from every channel and drains the
// completion pool. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	if a.interceptor != nil {
		if inj := a.interceptor.Injection(); inj != nil {
			err = inj.Flush()
		}
	}
	if a.finalizer != nil {
		a.finalizer.Close()
	}
	return err
}
