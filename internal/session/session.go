// Package session holds the authentication token and user identity, mirrors
// them into the state store, and tells listeners when the authenticated
// flag flips.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/store"
	"github.com/AbdulWasayUl/country-explorer/services/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Gateway is the subset of the auth service the session needs.
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (auth.SignInResponse, error)
	SignUp(ctx context.Context, name, email, password string) (auth.SignUpResponse, error)
	Me(ctx context.Context, token string) (auth.User, error)
}

// Listener is called after the authenticated flag changes, outside any lock.
type Listener func(ctx context.Context, authenticated bool)

type Snapshot struct {
	Token         string     `json:"-"`
	User          *auth.User `json:"user,omitempty"`
	Authenticated bool       `json:"authenticated"`
}

type Session struct {
	gateway Gateway
	state   store.Store
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	user      *auth.User
	listeners []Listener
}

func New(gateway Gateway, state store.Store) *Session {
	return &Session{gateway: gateway, state: state, now: time.Now}
}

func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token, Authenticated: s.token != "" && s.user != nil}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Session) IsAuthenticated() bool {
	return s.Snapshot().Authenticated
}

// Hydrate restores the session persisted by a previous run. Missing,
// corrupt or expired values leave the session unauthenticated and are
// removed from storage.
func (s *Session) Hydrate(ctx context.Context) error {
	token, ok, err := s.state.Get(ctx, store.KeyToken)
	if err != nil {
		return err
	}
	if !ok || token == "" {
		s.clear(ctx)
		return nil
	}

	var user auth.User
	found, err := store.GetJSON(ctx, s.state, store.KeyUser, &user)
	switch {
	case store.IsCorrupt(err):
		logger.Error("[session] persisted user is corrupt, discarding session: %v", err)
		return s.discard(ctx)
	case err != nil:
		return err
	case !found:
		return s.discard(ctx)
	}

	if tokenExpired(token, s.now()) {
		logger.Info("[session] persisted token has expired, discarding session")
		return s.discard(ctx)
	}

	s.set(ctx, token, &user, false)
	logger.Info("[session] restored session for %s", user.Email)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (auth.User, error) {
	resp, err := s.gateway.SignIn(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}

	if err := s.state.Set(ctx, store.KeyToken, resp.Token); err != nil {
		return auth.User{}, err
	}
	if err := store.SetJSON(ctx, s.state, store.KeyUser, resp.User); err != nil {
		// A token without its user would hydrate into a half-restored session.
		if delErr := s.state.Delete(ctx, store.KeyToken); delErr != nil {
			logger.Error("[session] failed to roll back token after user write error: %v", delErr)
		}
		return auth.User{}, err
	}

	// Listeners hear about every login, even a switch between accounts.
	user := resp.User
	s.set(ctx, resp.Token, &user, true)
	logger.Info("[session] logged in as %s", user.Email)
	return user, nil
}

// Register creates an account; it does not log in.
func (s *Session) Register(ctx context.Context, name, email, password string) (auth.SignUpResponse, error) {
	return s.gateway.SignUp(ctx, name, email, password)
}

func (s *Session) Logout(ctx context.Context) error {
	err := s.discard(ctx)
	logger.Info("[session] logged out")
	return err
}

// CurrentUser asks the auth service who owns the token. Any failure logs
// the session out before the error is returned.
func (s *Session) CurrentUser(ctx context.Context) (auth.User, error) {
	snap := s.Snapshot()
	if snap.Token == "" {
		s.clear(ctx)
		return auth.User{}, apperror.Auth("session.current_user", "No token found")
	}

	user, err := s.gateway.Me(ctx, snap.Token)
	if err != nil {
		logger.Error("[session] current user check failed, logging out: %v", err)
		if lerr := s.discard(ctx); lerr != nil {
			return auth.User{}, errors.Join(err, lerr)
		}
		return auth.User{}, err
	}

	if err := store.SetJSON(ctx, s.state, store.KeyUser, user); err != nil {
		return auth.User{}, err
	}
	s.set(ctx, snap.Token, &user, false)
	return user, nil
}

// discard removes the persisted session and clears memory.
func (s *Session) discard(ctx context.Context) error {
	err := errors.Join(
		s.state.Delete(ctx, store.KeyToken),
		s.state.Delete(ctx, store.KeyUser),
	)
	s.clear(ctx)
	return err
}

func (s *Session) clear(ctx context.Context) {
	s.set(ctx, "", nil, false)
}

func (s *Session) set(ctx context.Context, token string, user *auth.User, notify bool) {
	s.mu.Lock()
	was := s.token != "" && s.user != nil
	s.token, s.user = token, user
	now := s.token != "" && s.user != nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if was == now && !notify {
		return
	}
	for _, l := range listeners {
		l(ctx, now)
	}
}

// tokenExpired reports whether token is a JWT whose exp lies before now.
// Opaque tokens never expire locally; the auth service decides.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(now)
}
