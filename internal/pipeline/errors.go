package pipeline

import "errors"

// ErrAlreadyInstalled is returned when a second Hooks install is attempted
// while one is active.
var ErrAlreadyInstalled = errors.New("interception already installed")
