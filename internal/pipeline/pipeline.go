// Package pipeline is the boundary between the engine and the transport. The
// transport delivers discrete protocol messages per channel, in order, and
// lets installed hooks replace, drop, or inject messages and close channels.
package pipeline

import "net"

// Channel is one live client connection as the transport exposes it. Channel
// values must be comparable; the engine keys per-connection state on them.
type Channel interface {
	// Write queues an outbound message. The message still traverses the
	// outbound hook chain before hitting the wire.
	Write(msg any) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
	// RemoteAddr is the client's source address.
	RemoteAddr() net.Addr
}

// Hooks observes every message on intercepted channels. Read and Write return
// the message to forward; returning nil drops it, returning a different value
// replaces it. A returned error aborts the attempt and is routed to Exception.
type Hooks interface {
	Read(ch Channel, msg any) (any, error)
	Write(ch Channel, msg any) (any, error)
	Closed(ch Channel)
	Exception(ch Channel, cause error)
}

// Injection is the handle to installed interception.
type Injection interface {
	// Eject stops intercepting a single channel once its authentication is
	// resolved. Idempotent.
	Eject(ch Channel)
	// Flush removes the interception entirely. Idempotent.
	Flush() error
}
