package memoryhost

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// DefaultIdleTTL is how long a session without a push channel may stay idle.
const DefaultIdleTTL = 30 * time.Minute

// Store is an in-memory implementation of sessions.Store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessions.Session
	closed   bool

	clock         clockwork.Clock
	idleTTL       time.Duration
	sweepInterval time.Duration
	maxSessions   int
	newID         func() string
	log           *slog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ sessions.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIdleTTL sets the idle timeout. A non-positive value disables the sweep.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Store) { s.idleTTL = ttl }
}

// WithSweepInterval overrides how often the idle sweep runs. It defaults to
// a quarter of the idle TTL.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepInterval = d }
}

// WithMaxSessions caps the table size. When full, the least recently seen
// session without a push channel is evicted to make room.
func WithMaxSessions(n int) Option {
	return func(s *Store) { s.maxSessions = n }
}

// WithClock injects the clock used for timestamps and the sweep ticker.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithIDGenerator overrides how fresh session ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a Store and starts its idle sweep.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*sessions.Session),
		clock:    clockwork.NewRealClock(),
		idleTTL:  DefaultIdleTTL,
		newID:    uuid.NewString,
		log:      slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval <= 0 {
		s.sweepInterval = s.idleTTL / 4
	}

	if s.idleTTL > 0 {
		go s.sweepLoop(s.sweepInterval)
	} else {
		close(s.done)
	}

	return s
}

// Resolve implements sessions.Store.
func (s *Store) Resolve(ctx context.Context, id string) (*sessions.Session, bool, error) {
	if id != "" && !sessions.ValidID(id) {
		return nil, false, sessions.ErrInvalidSessionID
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, sessions.ErrStoreClosed
	}

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.Touch(now)
			return sess, false, nil
		}
	} else {
		id = s.newID()
	}

	if err := s.makeRoomLocked(ctx); err != nil {
		return nil, false, err
	}

	sess := sessions.New(id, now)
	s.sessions[id] = sess
	s.log.DebugContext(ctx, "session.create.ok", slog.String("session_id", id), slog.Int("active", len(s.sessions)))

	return sess, true, nil
}

// Get implements sessions.Store.
func (s *Store) Get(ctx context.Context, id string) (*sessions.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete implements sessions.Store. An attached push channel is closed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	if ch, streaming := sess.PushChannel(); streaming {
		sess.ClearPushChannel(ch)
		ch.Close()
	}
	return true
}

// AttachPush implements sessions.Store.
func (s *Store) AttachPush(ctx context.Context, id string, ch sessions.PushChannel) (*sessions.Session, error) {
	sess, _, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev := sess.SetPushChannel(ch); prev != nil {
		prev.Close()
		s.log.InfoContext(ctx, "session.push.replaced", slog.String("session_id", sess.SessionID()))
	}
	return sess, nil
}

// DetachPush implements sessions.Store. The session is removed from the table
// only when ch was still its attached channel, so a stale stream closing
// after a reconnect does not take the new stream's session with it.
func (s *Store) DetachPush(ctx context.Context, id string, ch sessions.PushChannel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !sess.ClearPushChannel(ch) {
		return false
	}
	delete(s.sessions, id)
	s.log.DebugContext(ctx, "session.evict.detach", slog.String("session_id", id), slog.Int("active", len(s.sessions)))
	return true
}

// Count implements sessions.Store.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL that hold no push
// channel, and returns how many were removed.
func (s *Store) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if _, streaming := sess.PushChannel(); streaming {
			continue
		}
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("session.evict.idle", slog.Int("removed", removed), slog.Int("active", len(s.sessions)))
	}
	return removed
}

// Close implements sessions.Store.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		s.closed = true
		s.sessions = make(map[string]*sessions.Session)
		s.mu.Unlock()
	})
	return nil
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer close(s.done)
	if interval < time.Second {
		interval = time.Second
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// makeRoomLocked evicts the least recently seen evictable session when the
// table is at capacity. s.mu must be held.
func (s *Store) makeRoomLocked(ctx context.Context) error {
	if s.maxSessions <= 0 || len(s.sessions) < s.maxSessions {
		return nil
	}

	var (
		victim   string
		victimTS time.Time
	)
	for id, sess := range s.sessions {
		if _, streaming := sess.PushChannel(); streaming {
			continue
		}
		if seen := sess.LastSeen(); victim == "" || seen.Before(victimTS) {
			victim, victimTS = id, seen
		}
	}
	if victim == "" {
		return sessions.ErrSessionLimit
	}

	delete(s.sessions, victim)
	s.log.InfoContext(ctx, "session.evict.capacity", slog.String("session_id", victim))
	return nil
}
