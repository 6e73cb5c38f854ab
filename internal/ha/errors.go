package ha

import "errors"

// Connect-phase failures. Each is terminal for the attempt.
var (
	ErrAuthInvalid = errors.New("authentication failed: invalid token")
	ErrTimeout     = errors.New("connection timeout")
	ErrTransport   = errors.New("connection error")
)

// ErrNotOpen is returned by Send on a session that is not open. Callers are
// expected to check Status first; nothing is buffered.
var ErrNotOpen = errors.New("session not open")
