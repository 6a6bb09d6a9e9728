// Package session keeps the bearer token and profile of the signed-in user and tells
// interested parties when that session ends.
package session

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

var (
	ErrNoSession = errors.New("not signed in")

	nowFunc = time.Now // mockable
)

// Logout reasons
const (
	ReasonSignOut      = "sign_out"
	ReasonUnauthorized = "unauthorized"
	ReasonExpired      = "expired"
)

type (
	// Session is the durable client state: the bearer token and who it belongs to.
	Session struct {
		Token string       `json:"token"`
		User  user.Profile `json:"user"`
	}

	// Store persists a Session.
	Store interface {
		// Load returns ErrNoSession when nothing is stored.
		Load() (Session, error)
		Save(s Session) error
		Clear() error
	}

	// Event is broadcast when the session ends.
	Event struct {
		Reason string
		User   user.Profile
	}
)

func (s Session) IsZero() bool { return s.Token == "" }

// Manager is the single owner of the current Session.
type Manager struct {
	store Store

	mu      sync.RWMutex
	cur     Session
	loaded  bool
	nextSub int
	subs    map[int]func(Event)
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		subs:  make(map[int]func(Event)),
	}
}

func (m *Manager) load() Session {
	m.mu.RLock()
	if m.loaded {
		defer m.mu.RUnlock()
		return m.cur
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		if s, err := m.store.Load(); err == nil {
			m.cur = s
		}
		m.loaded = true
	}
	return m.cur
}

// Current returns the stored session; zero when signed out.
func (m *Manager) Current() Session {
	return m.load()
}

// Token returns the bearer token, or "" when signed out. An expired JWT ends the session.
func (m *Manager) Token() string {
	s := m.load()
	if s.IsZero() {
		return ""
	}
	if tokenExpired(s.Token, nowFunc()) {
		_ = m.end(ReasonExpired)
		return ""
	}
	return s.Token
}

func (m *Manager) Profile() (user.Profile, error) {
	s := m.load()
	if s.IsZero() {
		return user.Profile{}, ErrNoSession
	}
	return s.User, nil
}

func (m *Manager) SignIn(s Session) error {
	if s.IsZero() {
		return errors.New("empty token")
	}
	if err := m.store.Save(s); err != nil {
		return errors.Wrap(err, "saving session")
	}
	m.mu.Lock()
	m.cur = s
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// SignOut clears the stored credentials and broadcasts a logout event.
func (m *Manager) SignOut() error {
	return m.end(ReasonSignOut)
}

// Revoke ends the session after the backend refused the token.
func (m *Manager) Revoke() error {
	return m.end(ReasonUnauthorized)
}

func (m *Manager) end(reason string) error {
	m.mu.Lock()
	prev := m.cur
	m.cur = Session{}
	m.loaded = true
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	err := m.store.Clear()

	// only broadcast once per session: repeated 401s on an already cleared session stay quiet
	if !prev.IsZero() {
		evt := Event{Reason: reason, User: prev.User}
		for _, fn := range subs {
			fn(evt)
		}
	}
	return errors.Wrap(err, "clearing session")
}

// OnLogout registers fn to be called whenever the session ends.
func (m *Manager) OnLogout(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// tokenExpired reads the exp claim without verifying the signature; opaque tokens never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := new(jwt.StandardClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != 0 && now.Unix() > claims.ExpiresAt
}
