package chathub

import (
	"context"
	"errors"
	"sync"
	"time"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/metrics"

	"go.uber.org/zap"
)

// ErrShuttingDown is returned by Activate once Shutdown has started.
var ErrShuttingDown = errors.New("chathub: server is shutting down")

// State of a realtime connection. Transitions only move forward.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// PresenceStore persists the online flag and last-seen time.
type PresenceStore interface {
	SetPresence(ctx context.Context, userID string, online bool, at time.Time) error
}

// Session tracks one connection through its lifecycle.
type Session struct {
	mu       sync.Mutex
	state    State
	identity *auth.Identity
	client   Client
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity is nil until the handshake succeeds.
func (s *Session) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

type LifecycleOptions struct {
	// CloseSuperseded closes a user's previous connection when a new one activates.
	CloseSuperseded bool
}

// Lifecycle drives sessions from handshake to close and keeps the
// registry and persisted presence in step.
type Lifecycle struct {
	verifier TokenVerifier
	presence PresenceStore
	registry *Registry
	opts     LifecycleOptions
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time

	// registry changes and presence writes for one user happen under its lock
	locks userLocks

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closing  bool
	active   sync.WaitGroup
}

func NewLifecycle(verifier TokenVerifier, presence PresenceStore, registry *Registry, opts LifecycleOptions, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		verifier: verifier,
		presence: presence,
		registry: registry,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    userLocks{m: make(map[string]*userLock)},
		sessions: make(map[*Session]struct{}),
	}
}

func (l *Lifecycle) SetMetrics(m *metrics.Metrics) { l.metrics = m }

// Handshake verifies the token presented when the connection opens.
// On failure the returned session is Closed and the registry is untouched.
func (l *Lifecycle) Handshake(ctx context.Context, token string) (*Session, error) {
	sess := &Session{state: StateConnecting}
	id, err := l.verifier.Verify(ctx, token)
	if err != nil {
		sess.state = StateClosed
		l.metrics.Handshake(string(apperr.KindOf(err)))
		l.log.Info("handshake rejected", zap.String("reason", apperr.MessageOf(err)), zap.Error(err))
		return sess, err
	}
	sess.identity = id
	sess.state = StateAuthenticated
	l.metrics.Handshake("ok")
	return sess, nil
}

// Activate registers the client as the user's current connection and marks
// the user online.
func (l *Lifecycle) Activate(ctx context.Context, sess *Session, client Client) error {
	id := sess.Identity()
	if id == nil {
		return apperr.New(apperr.Unauthorized, "session is "+sess.State().String())
	}
	userID := id.UserID
	unlock := l.locks.lock(userID)
	defer unlock()

	sess.mu.Lock()
	if sess.state != StateAuthenticated {
		state := sess.state
		sess.mu.Unlock()
		return apperr.New(apperr.Unauthorized, "session is "+state.String())
	}
	if !l.track(sess) {
		sess.state = StateClosed
		sess.mu.Unlock()
		return ErrShuttingDown
	}
	sess.client = client
	sess.state = StateActive
	sess.mu.Unlock()

	prev := l.registry.Register(client)
	l.metrics.ConnectionOpened()
	if err := l.presence.SetPresence(ctx, userID, true, l.now()); err != nil {
		l.log.Warn("failed to mark user online", zap.String("user_id", userID), zap.Error(err))
	}
	l.log.Info("connection active", zap.String("user_id", userID), zap.String("conn_id", client.GetConnID()))

	if prev != nil {
		l.log.Info("connection superseded", zap.String("user_id", userID), zap.String("conn_id", prev.GetConnID()))
		if l.opts.CloseSuperseded {
			prev.Close(config.SupersededCode, config.SupersededCause)
		}
	}
	return nil
}

// Deactivate closes the session. Only the connection that is still the
// user's current one marks the user offline. Repeated calls are no-ops.
func (l *Lifecycle) Deactivate(ctx context.Context, sess *Session) {
	sess.mu.Lock()
	prevState := sess.state
	sess.state = StateClosed
	client := sess.client
	sess.mu.Unlock()

	if prevState != StateActive || client == nil {
		return
	}
	defer l.untrack(sess)
	l.metrics.ConnectionClosed()

	userID := client.GetUserID()
	unlock := l.locks.lock(userID)
	defer unlock()

	if !l.registry.Unregister(client) {
		l.log.Debug("stale connection closed", zap.String("user_id", userID), zap.String("conn_id", client.GetConnID()))
		return
	}
	if err := l.presence.SetPresence(ctx, userID, false, l.now()); err != nil {
		l.log.Warn("failed to mark user offline", zap.String("user_id", userID), zap.Error(err))
	}
	l.log.Info("connection closed", zap.String("user_id", userID), zap.String("conn_id", client.GetConnID()))
}

// Shutdown закриває всі активні з'єднання, позначає користувачів офлайн і чекає,
// доки завершаться всі Deactivate (також ті, що запустили read pump'и).
// Після Shutdown нові сесії не активуються.
func (l *Lifecycle) Shutdown(ctx context.Context, code int, reason string) error {
	l.mu.Lock()
	l.closing = true
	sessions := make([]*Session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	// запис офлайн-статусу не переривається дедлайном, обмежене лише очікування
	writeCtx := context.WithoutCancel(ctx)
	for _, s := range sessions {
		s.mu.Lock()
		client := s.client
		s.mu.Unlock()
		if client != nil {
			client.Close(code, reason)
		}
		go l.Deactivate(writeCtx, s)
	}

	done := make(chan struct{})
	go func() {
		l.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lifecycle) track(sess *Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return false
	}
	l.sessions[sess] = struct{}{}
	l.active.Add(1)
	return true
}

func (l *Lifecycle) untrack(sess *Session) {
	l.mu.Lock()
	delete(l.sessions, sess)
	l.mu.Unlock()
	l.active.Done()
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks is a set of per-user mutexes; entries are dropped when unused.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

func (u *userLocks) lock(userID string) func() {
	u.mu.Lock()
	ul, ok := u.m[userID]
	if !ok {
		ul = &userLock{}
		u.m[userID] = ul
	}
	ul.refs++
	u.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		u.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(u.m, userID)
		}
		u.mu.Unlock()
	}
}
