// Package mapping defines the per-server-version adapters that splice the
// engine into a host's packet pipeline, and the loader that selects the one
// compatible with the running host.
package mapping

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/config"
	"github.com/vovakirdan/authgate/internal/host"
	"github.com/vovakirdan/authgate/internal/report"
	"github.com/vovakirdan/authgate/internal/session"
)

// Mapping is one version adapter. Constructed once at load time; at most one
// mapping is active per process.
type Mapping interface {
	Name() string
	Vendor() string
	Version() string

	// Platforms lists the host platform identifiers this adapter supports.
	Platforms() []string
	// CompatibleProtocols lists the exact numeric protocol ids supported.
	CompatibleProtocols() []int

	// Compatible checks the adapter against the live host. A panic during
	// the check counts as "not compatible", never as a load failure.
	Compatible() bool

	// Start installs interception on the host's connection-accept pipeline.
	Start() error
	// Close removes the interception entirely. Idempotent.
	Close() error
}

// Deps is everything a mapping constructor receives.
type Deps struct {
	Host     host.Host
	Config   *config.Config
	Accounts *account.Store
	Sessions session.Verifier
	Reporter *report.Reporter
	Log      *zerolog.Logger
}

// Constructor builds one mapping candidate. Candidates are registered in a
// fixed discovery order with the loader.
type Constructor func(deps Deps) Mapping
