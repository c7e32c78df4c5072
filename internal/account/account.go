// Package account holds the durable identity records the engine resolves
// during login, plus the concurrent store that guarantees at most one account
// per identity.
package account

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type tells how an account's identity was established.
type Type int8

const (
	// TypeUnknown means the identity has not been classified yet.
	TypeUnknown Type = iota
	// TypePremium means the identity was verified against the session authority.
	TypePremium
	// TypeCracked means the identity is self-asserted and locally derived.
	TypeCracked
)

func (t Type) String() string {
	switch t {
	case TypePremium:
		return "premium"
	case TypeCracked:
		return "cracked"
	default:
		return "unknown"
	}
}

// Account is one resolved identity. Created exactly once per unique id by the
// store and mutated afterwards through the setters; never deleted by the
// engine.
type Account struct {
	mu sync.Mutex

	id            uuid.UUID
	name          string
	typ           Type
	authenticated bool
	lastSeen      time.Time
	playtime      time.Duration
}

// Restore rebuilds an account from persisted state. Used by the persistence
// collaborator when seeding the store.
func Restore(id uuid.UUID, name string, typ Type, authenticated bool, lastSeen time.Time, playtime time.Duration) *Account {
	return &Account{
		id:            id,
		name:          name,
		typ:           typ,
		authenticated: authenticated,
		lastSeen:      lastSeen,
		playtime:      playtime,
	}
}

func (a *Account) UniqueID() uuid.UUID {
	return a.id
}

func (a *Account) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// SetName records a nickname change, e.g. a reconnect with different casing.
func (a *Account) SetName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
}

func (a *Account) Type() Type {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.typ
}

func (a *Account) SetType(t Type) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.typ = t
}

func (a *Account) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

func (a *Account) SetAuthenticated(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authenticated = v
}

// LastSeen is the last successful login; the zero time means never.
func (a *Account) LastSeen() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeen
}

func (a *Account) SetLastSeen(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeen = t
}

func (a *Account) Playtime() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playtime
}

func (a *Account) AddPlaytime(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playtime += d
}
