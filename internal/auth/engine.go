// Package auth implements the stateless authentication procedures the
// interceptor drives: challenge validation, shared-secret recovery, and the
// premium/cracked classification against the session authority.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/session"
)

// ErrChallengeMismatch means the client's echoed challenge does not match the
// nonce issued on this channel. The offending connection must be failed.
var ErrChallengeMismatch = errors.New("challenge nonce mismatch")

// Result is a finished classification.
type Result struct {
	Type     account.Type
	UniqueID uuid.UUID
}

// Engine performs the cryptographic side of login. It holds no per-connection
// state; every method is safe for concurrent use.
type Engine struct {
	key      *rsa.PrivateKey
	serverID string
	verifier session.Verifier
	log      *zerolog.Logger
}

func NewEngine(key *rsa.PrivateKey, serverID string, verifier session.Verifier, logger *zerolog.Logger) *Engine {
	return &Engine{
		key:      key,
		serverID: serverID,
		verifier: verifier,
		log:      logger,
	}
}

// PublicKeyDER returns the server public key in the encoding the hash and the
// outbound key-exchange message use.
func (e *Engine) PublicKeyDER() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&e.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	return der, nil
}

// ValidateChallenge decrypts the client's echoed challenge and compares it to
// the issued nonce.
func (e *Engine) ValidateChallenge(issued, encrypted []byte) error {
	echoed, err := rsa.DecryptPKCS1v15(rand.Reader, e.key, encrypted)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeMismatch, err)
	}
	if subtle.ConstantTimeCompare(issued, echoed) != 1 {
		return ErrChallengeMismatch
	}
	return nil
}

// DecryptSecret recovers the shared secret from the client's key message.
func (e *Engine) DecryptSecret(encrypted []byte) ([]byte, error) {
	secret, err := rsa.DecryptPKCS1v15(rand.Reader, e.key, encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt shared secret: %w", err)
	}
	return secret, nil
}

// Classify decides whether the named client is premium or cracked. ip is the
// client's source address, passed only when the host itself operates in
// authenticated mode. A session.ErrUnavailable from the authority propagates
// unchanged; it must never silently degrade to a cracked classification.
func (e *Engine) Classify(ctx context.Context, name string, secret []byte, ip string) (Result, error) {
	der, err := e.PublicKeyDER()
	if err != nil {
		return Result{}, err
	}
	hash := ServerHash(e.serverID, secret, der)

	profile, err := e.verifier.HasJoined(ctx, name, hash, ip)
	if err != nil {
		return Result{}, err
	}

	if profile != nil {
		if e.log != nil {
			e.log.Debug().Str("nickname", name).Stringer("uuid", profile.ID).Msg("session authority verified premium identity")
		}
		return Result{Type: account.TypePremium, UniqueID: profile.ID}, nil
	}

	return Result{Type: account.TypeCracked, UniqueID: OfflineUUID(name)}, nil
}
