package host

import (
	"crypto/rsa"
	"errors"
	"net"
	"sync"

	"github.com/vovakirdan/authgate/internal/packet"
	"github.com/vovakirdan/authgate/internal/pipeline"
)

// ErrNoBackend is returned by login continuation calls when no transport
// backend is attached yet.
var ErrNoBackend = errors.New("no transport backend attached")

// Backend is the transport-owned part of the host: the pieces that touch the
// wire codec and the game side of login.
type Backend interface {
	AcceptKey(ch pipeline.Channel, secret []byte) error
	EnableEncryption(ch pipeline.Channel, secret []byte) error
	CompleteLogin(ch pipeline.Channel, profile packet.GameProfile) error
	ResetThrottle(addr net.Addr)
}

// Local is the in-process Host used when the engine is embedded next to the
// transport. It owns the dispatcher and the roster; the codec-facing calls are
// delegated to the attached Backend.
type Local struct {
	platform string
	protocol int
	key      *rsa.PrivateKey
	serverID string

	mu            sync.RWMutex
	authenticated bool
	players       map[string]Player
	backend       Backend

	dispatcher *pipeline.Dispatcher
}

func NewLocal(platform string, protocol int, key *rsa.PrivateKey) *Local {
	return &Local{
		platform:   platform,
		protocol:   protocol,
		key:        key,
		players:    make(map[string]Player),
		dispatcher: pipeline.NewDispatcher(),
	}
}

// Dispatcher exposes the pipeline entry points the transport feeds.
func (l *Local) Dispatcher() *pipeline.Dispatcher {
	return l.dispatcher
}

// AttachBackend connects the transport glue. Must be called before login
// traffic flows.
func (l *Local) AttachBackend(b Backend) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backend = b
}

func (l *Local) Platform() string {
	return l.platform
}

func (l *Local) ProtocolVersion() int {
	return l.protocol
}

func (l *Local) KeyPair() *rsa.PrivateKey {
	return l.key
}

func (l *Local) ServerID() string {
	return l.serverID
}

func (l *Local) Authenticated() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.authenticated
}

func (l *Local) SetAuthenticated(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authenticated = v
}

func (l *Local) OnlinePlayers() []Player {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Player, 0, len(l.players))
	for _, p := range l.players {
		out = append(out, p)
	}
	return out
}

// PlayerJoined records a fully-connected player on the roster.
func (l *Local) PlayerJoined(p Player) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[p.Name] = p
}

// PlayerLeft removes a player from the roster.
func (l *Local) PlayerLeft(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.players, name)
}

func (l *Local) Install(h pipeline.Hooks) (pipeline.Injection, error) {
	return l.dispatcher.Install(h)
}

func (l *Local) ResetThrottle(addr net.Addr) {
	if b := l.currentBackend(); b != nil {
		b.ResetThrottle(addr)
	}
}

func (l *Local) AcceptKey(ch pipeline.Channel, secret []byte) error {
	b := l.currentBackend()
	if b == nil {
		return ErrNoBackend
	}
	return b.AcceptKey(ch, secret)
}

func (l *Local) EnableEncryption(ch pipeline.Channel, secret []byte) error {
	b := l.currentBackend()
	if b == nil {
		return ErrNoBackend
	}
	return b.EnableEncryption(ch, secret)
}

func (l *Local) CompleteLogin(ch pipeline.Channel, profile packet.GameProfile) error {
	b := l.currentBackend()
	if b == nil {
		return ErrNoBackend
	}
	return b.CompleteLogin(ch, profile)
}

func (l *Local) currentBackend() Backend {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend
}
