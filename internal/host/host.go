// Package host abstracts the running game server the engine is spliced into:
// its identity keys, its connection pipeline, and the vanilla login machinery
// the engine hands control back to.
package host

import (
	"crypto/rsa"
	"net"

	"github.com/vovakirdan/authgate/internal/packet"
	"github.com/vovakirdan/authgate/internal/pipeline"
)

// Player is an already fully-connected player as the host reports it.
type Player struct {
	Name string
	Addr net.Addr
}

// Host is the surface a mapping needs from the process it runs inside.
type Host interface {
	// Platform identifies the host implementation family, e.g. "java".
	Platform() string
	// ProtocolVersion is the live wire-protocol id the host speaks.
	ProtocolVersion() int

	// KeyPair is the host's RSA identity used for the key exchange.
	KeyPair() *rsa.PrivateKey
	// ServerID is the key-exchange server id, normally empty.
	ServerID() string

	// Authenticated reports whether the host verifies sessions itself
	// (online mode).
	Authenticated() bool
	// SetAuthenticated switches the host's online mode.
	SetAuthenticated(v bool)

	// OnlinePlayers lists the players past the login phase.
	OnlinePlayers() []Player

	// Install splices hooks into the connection-accept pipeline.
	Install(h pipeline.Hooks) (pipeline.Injection, error)
	// ResetThrottle clears the host's connection throttle for an address so
	// an instructed reconnect is not rejected.
	ResetThrottle(addr net.Addr)

	// AcceptKey resumes the host's own key handling for a verified premium
	// exchange: encryption setup and the remaining vanilla login steps.
	AcceptKey(ch pipeline.Channel, secret []byte) error
	// EnableEncryption arms the channel's ciphers with the shared secret
	// without running the host's session verification.
	EnableEncryption(ch pipeline.Channel, secret []byte) error
	// CompleteLogin fires the host-side completion for an identity the
	// engine resolved itself.
	CompleteLogin(ch pipeline.Channel, profile packet.GameProfile) error
}
