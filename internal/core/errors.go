package core

import "errors"

var (
	// ErrNoConnection means a login-phase message arrived on a channel with
	// no tracked connection attempt.
	ErrNoConnection = errors.New("cannot retrieve client's connection")
	// ErrLoginBeforeHandshake means the client sent its login name without a
	// preceding handshake intent.
	ErrLoginBeforeHandshake = errors.New("login start received before handshake")
	// ErrIdentityNotResolved means the final profile notice was reached
	// without a resolved unique id.
	ErrIdentityNotResolved = errors.New("the user has not been successfully identified")
)
