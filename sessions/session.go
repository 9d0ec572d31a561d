package sessions

import (
	"context"
	"sync"
	"time"
)

// State is the coarse lifecycle state of a session, used for logging.
type State string

const (
	StateNew         State = "new"
	StateInitialized State = "initialized"
	StateStreaming   State = "streaming"
)

// ClientInfo identifies the client connecting to the server.
type ClientInfo struct {
	Name    string
	Version string
}

// PushChannel is a long-lived server-to-client stream. Only the SSE
// strategy attaches one. Implementations MUST be safe for concurrent use.
type PushChannel interface {
	// Push writes one event. It returns an error once the stream is closed.
	Push(ctx context.Context, event string, data []byte) error
	// Done is closed when the underlying connection goes away.
	Done() <-chan struct{}
	// Close ends the stream. It is idempotent.
	Close()
}

// Session is the per-session protocol state. It is safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time

	mu              sync.RWMutex
	lastSeen        time.Time
	initialized     bool
	protocolVersion string
	client          ClientInfo
	push            PushChannel
}

// New returns a fresh, uninitialized session.
func New(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now, lastSeen: now}
}

func (s *Session) SessionID() string    { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastSeen reports when the session last handled a message.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

// MarkInitialized records a completed initialize handshake. Repeating it
// overwrites the recorded client details and is otherwise a no-op.
func (s *Session) MarkInitialized(protocolVersion string, client ClientInfo) {
	s.mu.Lock()
	s.initialized = true
	s.protocolVersion = protocolVersion
	s.client = client
	s.mu.Unlock()
}

func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// ProtocolVersion is the version the client asked for during initialize.
func (s *Session) ProtocolVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

func (s *Session) Client() ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.push != nil:
		return StateStreaming
	case s.initialized:
		return StateInitialized
	default:
		return StateNew
	}
}

// PushChannel returns the attached push channel, if any.
func (s *Session) PushChannel() (PushChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.push, s.push != nil
}

// SetPushChannel attaches ch and returns the channel it replaced, if it was a
// different one. Stores call it; transports should go through
// Store.AttachPush.
func (s *Session) SetPushChannel(ch PushChannel) PushChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.push
	s.push = ch
	if prev == ch {
		return nil
	}
	return prev
}

// ClearPushChannel detaches ch if it is still the attached channel and
// reports whether it was.
func (s *Session) ClearPushChannel(ch PushChannel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.push == nil || s.push != ch {
		return false
	}
	s.push = nil
	return true
}
