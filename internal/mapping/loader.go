package mapping

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoCompatibleMapping means no candidate matched the running host; the
// engine runs with interception disabled.
var ErrNoCompatibleMapping = errors.New("no compatible mapping available")

// Loader constructs the registered candidates and activates the first
// compatible one. Candidate order is fixed and significant: first success
// wins, later candidates are never started.
type Loader struct {
	log   *zerolog.Logger
	ctors []Constructor

	mu     sync.Mutex
	active Mapping
	closed bool
}

func NewLoader(logger *zerolog.Logger, ctors ...Constructor) *Loader {
	return &Loader{log: logger, ctors: ctors}
}

// Load selects and starts the mapping for the current host. A candidate whose
// compatibility check panics is skipped; a candidate whose Start fails is
// closed, discarded, and the loop continues. Neither is fatal to the process.
func (l *Loader) Load(deps Deps) (Mapping, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return l.active, nil
	}

	for _, ctor := range l.ctors {
		m := ctor(deps)
		if !compatible(m) {
			continue
		}

		if err := m.Start(); err != nil {
			// A partially-started mapping must not be left active.
			_ = m.Close()
			l.log.Error().Err(err).Str("mapping", m.Name()).Msg("cannot start mapping")
			continue
		}

		l.active = m
		l.log.Info().Str("mapping", m.Name()).Msg("successfully loaded mapping")
		return m, nil
	}

	l.log.Error().Msg("there's no mapping available")
	return nil, ErrNoCompatibleMapping
}

// Active returns the running mapping, or ErrNoCompatibleMapping when
// interception is disabled.
func (l *Loader) Active() (Mapping, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return nil, ErrNoCompatibleMapping
	}
	return l.active, nil
}

// Close tears down the active mapping. Idempotent; called once during orderly
// shutdown.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.active == nil {
		return nil
	}
	err := l.active.Close()
	l.active = nil
	return err
}

func compatible(m Mapping) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return m.Compatible()
}
