package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrAccountExists is returned by Create when the unique id or the
	// nickname already resolves to an account.
	ErrAccountExists = errors.New("account already exists")
	// ErrIdentityConflict is returned by GetOrCreate when the unique id and
	// the nickname resolve to two different accounts.
	ErrIdentityConflict = errors.New("unique id and nickname resolve to different accounts")
)

// Persister saves account snapshots outside the store. Implementations must
// tolerate repeated saves of the same account.
type Persister interface {
	SaveAccount(ctx context.Context, a *Account) error
}

// Store is the registry of resolved accounts, keyed by unique id. All
// operations are serialized by one lock; the store is small and contention is
// rare next to network latency. The lock is never held across network calls.
type Store struct {
	mu            sync.Mutex
	byID          map[uuid.UUID]*Account
	caseSensitive bool
	persist       Persister
	log           *zerolog.Logger
}

// NewStore builds an empty store. persist may be nil, in which case accounts
// live in memory only.
func NewStore(caseSensitive bool, persist Persister, logger *zerolog.Logger) *Store {
	return &Store{
		byID:          make(map[uuid.UUID]*Account),
		caseSensitive: caseSensitive,
		persist:       persist,
		log:           logger,
	}
}

// Load seeds the store from persisted accounts. Intended for startup, before
// any connection traffic.
func (s *Store) Load(accounts []*Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.byID[a.UniqueID()] = a
	}
}

// Get returns the account with the given unique id, if any.
func (s *Store) Get(id uuid.UUID) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return a, ok
}

// GetByName returns the account holding the nickname. The comparison is exact
// when case-sensitive nicknames are configured, case-insensitive otherwise.
func (s *Store) GetByName(name string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupName(name)
}

// GetByNameFold returns the account holding the nickname under
// case-insensitive comparison regardless of the configured mode. Used by the
// case-sensitivity admission check.
func (s *Store) GetByNameFold(name string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if strings.EqualFold(a.Name(), name) {
			return a, true
		}
	}
	return nil, false
}

func (s *Store) lookupName(name string) (*Account, bool) {
	for _, a := range s.byID {
		if s.caseSensitive {
			if a.Name() == name {
				return a, true
			}
		} else if strings.EqualFold(a.Name(), name) {
			return a, true
		}
	}
	return nil, false
}

// Create registers a new account. Fails with ErrAccountExists if either the
// unique id or the nickname already resolves.
func (s *Store) Create(id uuid.UUID, name string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(id, name)
}

func (s *Store) create(id uuid.UUID, name string) (*Account, error) {
	if _, ok := s.byID[id]; ok {
		return nil, fmt.Errorf("%w: unique id %s", ErrAccountExists, id)
	}
	if _, ok := s.lookupName(name); ok {
		return nil, fmt.Errorf("%w: nickname %q", ErrAccountExists, name)
	}

	a := &Account{id: id, name: name}
	s.byID[id] = a
	return a, nil
}

// GetOrCreate returns the existing account for the identity or creates a new
// one, under a single critical section. If the unique id and the nickname
// resolve to different accounts the call fails with ErrIdentityConflict; that
// indicates corrupted state and must be surfaced, not swallowed.
func (s *Store) GetOrCreate(id uuid.UUID, name string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, okID := s.byID[id]
	byName, okName := s.lookupName(name)

	switch {
	case okID && okName && byID != byName:
		return nil, fmt.Errorf("%w: id %s, nickname %q", ErrIdentityConflict, id, name)
	case okID:
		return byID, nil
	case okName:
		return byName, nil
	default:
		return s.create(id, name)
	}
}

// All returns a snapshot of every live account.
func (s *Store) All() []*Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	return out
}

// Sync pushes an account to the persistence collaborator, best effort. Called
// after the login flow stamps the account; failures are logged, never fatal.
func (s *Store) Sync(ctx context.Context, a *Account) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveAccount(ctx, a); err != nil && s.log != nil {
		s.log.Warn().Err(err).Str("nickname", a.Name()).Msg("failed to persist account")
	}
}
