package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jaminalder/tic-tac-toe-history/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrDuplicateID = errors.New("duplicate session id")
)

// Session is the in-memory state tracked per browser session.
type Session struct {
	ID      string
	Game    domain.Game
	Created time.Time
	Updated time.Time
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers b without blocking; false means the buffer was full.
func (s *subscriber) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- b:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages sessions and their subscribers.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session
	subs     map[string]map[*subscriber]struct{}
	render   func(Session) []byte
	log      *slog.Logger
	newID    IDGenerator
	now      func() time.Time
	ttl      time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the function that encodes broadcast payloads.
func WithRenderer(renderer func(Session) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.log = logger.With("component", "app")
		}
	}
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTL sets how long an untouched session is kept. Zero disables eviction.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]*Session),
		subs:     make(map[string]map[*subscriber]struct{}),
		render:   func(Session) []byte { return nil },
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:    newSessionID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(Session) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(Session) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new session.
func (s *Service) CreateGame() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	if _, taken := s.sessions[id]; taken {
		return nil, ErrDuplicateID
	}
	now := s.now()
	sess := &Session{ID: id, Game: domain.New(), Created: now, Updated: now}
	s.sessions[id] = sess
	s.log.Debug("session created", "id", id)
	cp := *sess
	return &cp, nil
}

// Get returns a copy of the session if present.
func (s *Service) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// Play applies a move to the session's game. A move the rules ignore
// returns the unchanged session and nil.
func (s *Service) Play(id string, cell int) (*Session, error) {
	return s.transition(id, func(g domain.Game) (domain.Game, error) {
		return g.Play(cell)
	})
}

// JumpTo displays an earlier (or later) board of the session's history.
func (s *Service) JumpTo(id string, step int) (*Session, error) {
	return s.transition(id, func(g domain.Game) (domain.Game, error) {
		return g.JumpTo(step)
	})
}

// Restart replaces the session's game with a fresh one.
func (s *Service) Restart(id string) (*Session, error) {
	return s.transition(id, func(domain.Game) (domain.Game, error) {
		return domain.New(), nil
	})
}

// transition swaps in the game returned by fn, updates timestamps and
// broadcasts when the game changed. On error the latest session is returned.
func (s *Service) transition(id string, fn func(domain.Game) (domain.Game, error)) (*Session, error) {
	var payload []byte
	var toDrop []*subscriber

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	next, err := fn(sess.Game)
	if err != nil {
		cp := *sess
		s.mu.Unlock()
		return &cp, err
	}
	sess.Updated = s.now()
	changed := !sameGame(next, sess.Game)
	sess.Game = next

	// Snapshot state and subscribers
	cp := *sess
	if !changed {
		s.mu.Unlock()
		return &cp, nil
	}
	subs := s.copySubsLocked(id)
	payload = s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Debug("dropped slow subscribers", "id", id, "count", len(toDrop))
	}
	return &cp, nil
}

// sameGame tells a no-op from a transition: every transition changes the
// step, the history length or the displayed board.
func sameGame(a, b domain.Game) bool {
	if a.Step() != b.Step() || a.Len() != b.Len() {
		return false
	}
	return a.Current() == b.Current()
}

// Subscribe registers a subscriber for a session. Returns a channel and an
// unsubscribe func. The channel is closed right away for unknown sessions.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	sub := &subscriber{ch: make(chan []byte, 1)}

	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions untouched for longer than the TTL and closes their
// subscribers. It returns the number of evicted sessions.
func (s *Service) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	var closing []*subscriber

	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, sess := range s.sessions {
		if !sess.Updated.Before(cutoff) {
			continue
		}
		delete(s.sessions, id)
		for sub := range s.subs[id] {
			closing = append(closing, sub)
		}
		delete(s.subs, id)
		evicted++
	}
	live := len(s.sessions)
	s.mu.Unlock()

	for _, sub := range closing {
		sub.close()
	}
	if evicted > 0 {
		s.log.Info("evicted idle sessions", "count", evicted, "live", live)
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
