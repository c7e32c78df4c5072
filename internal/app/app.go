// Package app wires the engine together: persistence, session authority,
// failure reporting, and the mapping loader on top of a host.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/account/sqlite"
	"github.com/vovakirdan/authgate/internal/config"
	"github.com/vovakirdan/authgate/internal/host"
	"github.com/vovakirdan/authgate/internal/mapping"
	"github.com/vovakirdan/authgate/internal/mapping/v766"
	"github.com/vovakirdan/authgate/internal/report"
	"github.com/vovakirdan/authgate/internal/session"
)

// App owns the engine's long-lived collaborators.
type App struct {
	cfg      *config.Config
	host     host.Host
	db       *sqlite.Store
	accounts *account.Store
	sessions session.Verifier
	reporter *report.Reporter
	loader   *mapping.Loader
	log      *zerolog.Logger
}

// New constructs the application: opens the account database, seeds the
// in-memory store, and prepares the mapping loader. Nothing is installed on
// the host until Run.
func New(ctx context.Context, cfg *config.Config, h host.Host, logger *zerolog.Logger) (*App, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("init account database: %w", err)
	}
	logger.Info().Str("db_path", cfg.Database.Path).Msg("account database initialized")

	persisted, err := db.LoadAccounts(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	accounts := account.NewStore(cfg.Accounts.CaseSensitiveNicknames, db, logger)
	accounts.Load(persisted)
	logger.Info().Int("accounts", len(persisted)).Msg("account store seeded")

	sessions := session.NewClient(cfg.Session.URL, cfg.Session.Timeout, logger)

	return &App{
		cfg:      cfg,
		host:     h,
		db:       db,
		accounts: accounts,
		sessions: sessions,
		reporter: report.New(cfg.Reports.Dir, logger),
		loader:   mapping.NewLoader(logger, v766.New),
		log:      logger,
	}, nil
}

// Accounts exposes the live account store.
func (a *App) Accounts() *account.Store {
	return a.accounts
}

// Run activates the compatible mapping and blocks until context cancellation.
// A host nothing maps to is not fatal: the process stays up with interception
// disabled, like any other plain server.
func (a *App) Run(ctx context.Context) error {
	deps := mapping.Deps{
		Host:     a.host,
		Config:   a.cfg,
		Accounts: a.accounts,
		Sessions: a.sessions,
		Reporter: a.reporter,
		Log:      a.log,
	}

	if _, err := a.loader.Load(deps); err != nil {
		if !errors.Is(err, mapping.ErrNoCompatibleMapping) {
			a.cleanup()
			return err
		}
		a.log.Warn().
			Str("platform", a.host.Platform()).
			Int("protocol", a.host.ProtocolVersion()).
			Msg("running without login interception")
	}

	<-ctx.Done()
	a.log.Info().Msg("shutting down")
	a.cleanup()
	return nil
}

// cleanup removes the interception and closes resources in dependency order.
func (a *App) cleanup() {
	if err := a.loader.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close mapping")
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close account database")
	} else {
		a.log.Info().Msg("account database closed")
	}
}
