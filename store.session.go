package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStrategyDisabled = errors.New("authentication strategy disabled")

// SessionState is the authentication status of a visitor.
type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionAuthenticated
	SessionAnonymous
)

func (s SessionState) String() string {
	switch s {
	case SessionAuthenticated:
		return "authenticated"
	case SessionAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// SessionSnapshot is a read only copy of the session store state.
type SessionSnapshot struct {
	State SessionState
	User  *Profile
	Error string
}

// Authenticated reports whether a confirmed user is present.
func (ss SessionSnapshot) Authenticated() bool {
	return ss.State == SessionAuthenticated && ss.User != nil
}

// SessionStore holds the authentication state of one visitor. It starts
// unknown and resolves once to authenticated or anonymous, after which
// login, register and logout move it between the two resolved states.
type SessionStore struct {
	logger     *zap.Logger
	visitorID  string
	tokens     TokenStore
	auth       AuthEndpoints
	strategies map[string]AuthStrategy
	clock      Clocker

	initOnce    sync.Once
	resolveOnce sync.Once
	resolved    chan struct{}

	mu    sync.RWMutex
	state SessionState
	user  *Profile
	err   string
	// set once a login or a logout took over the persisted token.
	superseded bool
}

// NewSessionStore provides a store in the unknown state.
func NewSessionStore(logger *zap.Logger, visitorID string, tokens TokenStore, auth AuthEndpoints, clock Clocker, strategies ...AuthStrategy) *SessionStore {
	byName := make(map[string]AuthStrategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &SessionStore{
		logger:     logger,
		visitorID:  visitorID,
		tokens:     tokens,
		auth:       auth,
		strategies: byName,
		clock:      clock,
		resolved:   make(chan struct{}),
	}
}

// Initialize resolves the session from the persisted token. It runs once per
// store. The work is detached from ctx cancellation since its result is shared
// by every page of the visitor.
func (s *SessionStore) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.resolve(context.WithoutCancel(ctx))
		s.markResolved()
	})
}

func (s *SessionStore) resolve(ctx context.Context) {
	logger := s.logger.With(zap.String("visitor.id", s.visitorID))
	token, err := s.tokens.Get(ctx, s.visitorID)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			logger.Error("failed to read persisted token", zap.Error(err))
		}
		s.settle(nil, false)
		return
	}

	if TokenExpired(token, s.clock.Now()) {
		logger.Info("persisted token expired")
		s.settle(nil, true)
		return
	}

	profile, err := s.auth.GetProfile(ctx)
	if err != nil {
		logger.Info("persisted token rejected", zap.Error(err))
		s.settle(nil, true)
		return
	}
	s.settle(profile, false)
}

// settle applies the initialization outcome unless a login or a logout
// already resolved the session in the meantime. The persisted token is only
// cleared while it is still the one resolve read.
func (s *SessionStore) settle(user *Profile, clearToken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionUnknown {
		return
	}
	if clearToken && !s.superseded {
		if err := s.tokens.Delete(context.Background(), s.visitorID); err != nil {
			s.logger.Error("failed to clear persisted token", zap.String("visitor.id", s.visitorID), zap.Error(err))
		}
	}
	if user != nil {
		s.state = SessionAuthenticated
		s.user = user
		return
	}
	s.state = SessionAnonymous
	s.user = nil
}

func (s *SessionStore) markResolved() {
	s.resolveOnce.Do(func() { close(s.resolved) })
}

// Resolved is closed once the session left the unknown state.
func (s *SessionStore) Resolved() <-chan struct{} {
	return s.resolved
}

// Await blocks until the session is resolved, wait elapsed or ctx is done,
// then returns the current state.
func (s *SessionStore) Await(ctx context.Context, wait time.Duration) SessionState {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-s.resolved:
	case <-timer.C:
	case <-ctx.Done():
	}
	return s.State()
}

// State returns the current state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SessionSnapshot{State: s.state, Error: s.err}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Login authenticates with local credentials.
func (s *SessionStore) Login(ctx context.Context, creds Credentials) (*Profile, error) {
	return s.authenticate(ctx, "login", PasswordStrategy, "Login failed", AuthRequest{Credentials: &creds})
}

// Register creates an account and authenticates with it.
func (s *SessionStore) Register(ctx context.Context, data RegisterData) (*Profile, error) {
	return s.authenticate(ctx, "register", PasswordStrategy, "Registration failed", AuthRequest{Registration: &data})
}

// LoginWithProvider authenticates with a third party identity provider token.
func (s *SessionStore) LoginWithProvider(ctx context.Context, creds ProviderCredentials) (*Profile, error) {
	return s.authenticate(ctx, "provider login", IdentityProviderKey, "Provider login failed", AuthRequest{Provider: &creds})
}

func (s *SessionStore) authenticate(ctx context.Context, op, strategyName, fallback string, req AuthRequest) (*Profile, error) {
	s.setError("")
	strategy, ok := s.strategies[strategyName]
	if !ok {
		return nil, s.fail(op, fallback, ErrStrategyDisabled)
	}

	resp, err := strategy.Authenticate(ctx, req)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, s.fail(op, fallback, err)
	}

	s.supersede()
	if err := s.tokens.Set(ctx, s.visitorID, resp.Token); err != nil {
		s.logger.Error("failed to persist token", zap.String("visitor.id", s.visitorID), zap.Error(err))
		return nil, s.fail(op, fallback, err)
	}

	profile := resp.Profile
	s.mu.Lock()
	s.state = SessionAuthenticated
	s.user = &profile
	s.err = ""
	s.mu.Unlock()
	s.markResolved()

	out := profile
	return &out, nil
}

// supersede waits for a running settle and stops it from touching the token.
func (s *SessionStore) supersede() {
	s.mu.Lock()
	s.superseded = true
	s.mu.Unlock()
}

func (s *SessionStore) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *SessionStore) fail(op, fallback string, err error) error {
	msg := ErrorMessage(err, fallback)
	s.setError(msg)
	return &OperationError{Op: op, Message: msg, Err: err}
}

// Logout forgets the token and the user. It makes no network call.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.supersede()
	err := s.tokens.Delete(context.WithoutCancel(ctx), s.visitorID)
	if err != nil {
		s.logger.Error("failed to clear persisted token", zap.String("visitor.id", s.visitorID), zap.Error(err))
	}
	s.mu.Lock()
	s.state = SessionAnonymous
	s.user = nil
	s.err = ""
	s.mu.Unlock()
	s.markResolved()
	return err
}

// Invalidate drops an authenticated session whose token the API rejected.
func (s *SessionStore) Invalidate(ctx context.Context) {
	if s.State() != SessionAuthenticated {
		return
	}
	s.logger.Info("session invalidated", zap.String("visitor.id", s.visitorID))
	_ = s.Logout(ctx)
}
