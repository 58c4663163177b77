package roomapi

import (
	"context"
	"errors"
)

// ErrConnectionLost marks transport failures that warrant a fresh session
// rather than a process exit. Read timeouts and peer closes map here; every
// other transport error propagates as-is.
var ErrConnectionLost = errors.New("roomapi: connection lost")

// ErrAuthFailed marks rejected credentials. Fatal; redialing with the same
// configuration cannot succeed.
var ErrAuthFailed = errors.New("roomapi: authentication failed")

// Session is a live connection to a room. Events are delivered on a single
// channel and are meant to be consumed one at a time; Listen blocks until
// the session ends or errors.
type Session interface {
	// Events returns the channel Listen delivers on. The channel is closed
	// when the session ends.
	Events() <-chan Event
	// Listen pumps events until the session ends, the context is cancelled,
	// or the transport fails.
	Listen(ctx context.Context) error
	// Connected reports whether the transport is still up.
	Connected() bool
	// Files returns a snapshot of the room's current file listing.
	Files(ctx context.Context) ([]FileEvent, error)
	// Close tears the session down. Safe to call more than once.
	Close() error
}
