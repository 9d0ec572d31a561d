package sessions

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSessionID is returned when a client-supplied id is not a
	// non-empty run of visible ASCII characters.
	ErrInvalidSessionID = errors.New("sessions: invalid session id")
	// ErrSessionNotFound is returned when an operation targets an unknown id.
	ErrSessionNotFound = errors.New("sessions: session not found")
	// ErrSessionLimit is returned when the table is full and nothing is evictable.
	ErrSessionLimit = errors.New("sessions: session limit reached")
	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("sessions: store closed")
)

// MaxSessionIDLength bounds client-supplied session ids.
const MaxSessionIDLength = 256

// Store maps session ids to sessions. Implementations MUST be safe for
// concurrent use.
type Store interface {
	// Resolve returns the session for id, creating it when id is unknown or
	// empty. created reports whether a new session was made.
	Resolve(ctx context.Context, id string) (sess *Session, created bool, err error)
	// Get returns an existing session without creating one.
	Get(ctx context.Context, id string) (*Session, bool)
	// Delete removes a session and reports whether it existed.
	Delete(ctx context.Context, id string) bool
	// AttachPush resolves the session for id and attaches ch to it. A channel
	// it replaces is closed.
	AttachPush(ctx context.Context, id string, ch PushChannel) (*Session, error)
	// DetachPush removes ch from the session and deletes the session from the
	// table if ch was still attached.
	DetachPush(ctx context.Context, id string, ch PushChannel) bool
	// Count returns the number of live sessions.
	Count() int
	// Close stops background work and drops all sessions.
	Close() error
}

// ValidID reports whether id is acceptable as a client-supplied session id.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
