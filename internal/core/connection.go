// Package core drives the login interception: the per-attempt connection
// state machine, the registry of live attempts, and the packet interceptor
// that the active mapping installs into the host pipeline.
package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/pipeline"
	"github.com/vovakirdan/authgate/internal/protocol"
)

// State is the phase of a login attempt. States only advance.
type State int8

const (
	StateHandshake State = iota
	StateLogin
	StateEncrypting
	StateEncrypted
	StateCompression
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateLogin:
		return "login"
	case StateEncrypting:
		return "encrypting"
	case StateEncrypted:
		return "encrypted"
	case StateCompression:
		return "compression"
	case StateSuccess:
		return "success"
	default:
		return "invalid"
	}
}

// Reconnection is the token issued when a client is told to reconnect for
// premium verification. It stays bound to the logical attempt across the
// channel swap.
type Reconnection struct {
	Token    uuid.UUID
	IssuedAt time.Time
}

// Connection is one in-flight login attempt. It is created when the login
// name arrives and discarded on success or definitive close. The channel is
// mutable: a reconnection rebinds the same attempt to a new channel.
type Connection struct {
	mu sync.Mutex

	channel pipeline.Channel
	name    string
	version protocol.Version

	uniqueID uuid.UUID
	typ      account.Type
	account  *account.Account

	state        State
	pending      bool
	reconnection *Reconnection

	// challenge is the nonce issued on the current channel. Channel-scoped:
	// cleared on rebind so a stale echo can never validate.
	challenge []byte
}

func NewConnection(ch pipeline.Channel, name string, version protocol.Version) *Connection {
	return &Connection{
		channel: ch,
		name:    name,
		version: version,
		state:   StateHandshake,
	}
}

func (c *Connection) Channel() pipeline.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Connection) Name() string {
	return c.name
}

func (c *Connection) Version() protocol.Version {
	return c.version
}

func (c *Connection) UniqueID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uniqueID
}

func (c *Connection) SetUniqueID(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniqueID = id
}

func (c *Connection) Type() account.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typ
}

func (c *Connection) SetType(t account.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typ = t
}

func (c *Connection) Account() *account.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

func (c *Connection) SetAccount(a *account.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = a
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Advance moves the state machine forward. Transitions backwards are ignored;
// the machine never regresses, even across a reconnection.
func (c *Connection) Advance(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s > c.state {
		c.state = s
	}
}

// Pending is the close-debounce flag: true once a first channel close has
// been observed and tolerated.
func (c *Connection) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Connection) SetPending(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = v
}

// Reconnecting reports whether this attempt was told to reconnect for
// premium verification.
func (c *Connection) Reconnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnection != nil
}

// BeginReconnection issues the reconnection token bound to this attempt.
func (c *Connection) BeginReconnection() *Reconnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnection = &Reconnection{Token: uuid.New(), IssuedAt: time.Now()}
	return c.reconnection
}

// Challenge returns the nonce issued on the current channel, if any.
func (c *Connection) Challenge() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.challenge
}

func (c *Connection) SetChallenge(nonce []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.challenge = nonce
}

// rebind swaps the transport channel under the same logical attempt. The
// close-debounce flag resets so the old channel's close cannot flush the
// attempt, and the issued challenge is invalidated.
func (c *Connection) rebind(ch pipeline.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = ch
	c.pending = false
	c.challenge = nil
}
