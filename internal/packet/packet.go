// Package packet defines the login-phase protocol messages as the engine sees
// them. These are domain models, not wire encodings: the transport codec is
// responsible for turning bytes into these values and back.
package packet

import "github.com/google/uuid"

// Phase is the next-phase selector carried by the handshake intent.
type Phase int

const (
	PhaseStatus Phase = iota + 1
	PhaseLogin
	PhaseTransfer
)

// Intent is the first message on every connection. It declares the claimed
// protocol id, the address the client dialed, and what the connection is for.
type Intent struct {
	Protocol int
	Host     string
	Port     int
	Next     Phase
}

// Hello starts the login phase with the client's claimed player name.
type Hello struct {
	Name string
}

// Key is the client's reply to the encryption request: the shared secret and
// the challenge nonce, both encrypted with the server's public key.
type Key struct {
	SharedSecret []byte
	Challenge    []byte
}

// EncryptionRequest is the server's outbound key-exchange message carrying the
// challenge nonce the client must echo back.
type EncryptionRequest struct {
	ServerID  string
	PublicKey []byte
	Challenge []byte
}

// Compression tells the client to enable packet compression.
type Compression struct {
	Threshold int
}

// GameProfile is the final "logged in as" notice with the resolved identity.
type GameProfile struct {
	ID   uuid.UUID
	Name string
}

// Disconnect carries an abstract reason; formatting to user-facing text is the
// localization collaborator's job.
type Disconnect struct {
	Reason Reason
}
