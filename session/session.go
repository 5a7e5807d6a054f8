// Package session owns the process-wide authenticated-user state. A single
// Manager holds the current Session and keeps it synchronized with the
// identity provider's auth-state stream for the lifetime of the
// application.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
	"framez.app/framez/validation"
)

// Authenticator is the identity-provider dependency of the Manager.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (models.Session, error)
	SignIn(ctx context.Context, email, password string) (models.Session, error)
	SignOut() error
	SetDisplayName(ctx context.Context, displayName string) error
	AuthStateChanges(fn func(*models.Session)) (unsubscribe func())
}

// ProfileCreator writes the user profile record created at sign-up.
type ProfileCreator interface {
	CreateUserProfile(ctx context.Context, uid, email, displayName string) error
}

// Manager is the single writer of the Session cell (plus one optimistic
// write on signup). Auth-state notifications are the authoritative source:
// each one fully replaces the Session. Login and signup are fire-and-forget
// relative to the cell: the Session is authoritative only once the
// listener has fired, not upon operation return.
type Manager struct {
	auth     Authenticator
	profiles ProfileCreator
	log      *logrus.Entry

	mu      sync.RWMutex
	current *models.Session
	loading bool

	unsubscribe func()
	closeOnce   sync.Once
}

// NewManager registers the one auth-state listener this process ever holds
// and enters the loading state until the first notification arrives (which
// fires immediately, including the no-credential case).
func NewManager(auth Authenticator, profiles ProfileCreator) *Manager {
	m := &Manager{
		auth:     auth,
		profiles: profiles,
		loading:  true,
		log:      logrus.WithField("component", "session"),
	}
	m.unsubscribe = auth.AuthStateChanges(m.onAuthState)
	return m
}

func (m *Manager) onAuthState(s *models.Session) {
	m.mu.Lock()
	if s != nil {
		cp := *s
		m.current = &cp
		m.log.Infof("auth state changed: %s", cp.Email)
	} else {
		m.current = nil
		m.log.Info("auth state changed: no user")
	}
	m.loading = false
	m.mu.Unlock()
}

// Current returns a copy of the Session, or nil when no user is signed in.
func (m *Manager) Current() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// Loading reports whether the first auth-state notification is still
// pending.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Login signs in with email/password. On success the Session is updated by
// the auth-state listener, not here; callers must not assume the Session
// reflects the new user the moment Login returns.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if fieldErrs := validation.Login(email, password); len(fieldErrs) > 0 {
		return models.NewValidationError(firstMessage(fieldErrs))
	}

	if _, err := m.auth.SignIn(ctx, strings.TrimSpace(email), password); err != nil {
		return err
	}
	return nil
}

// Signup creates the credential, sets its display name, writes the user
// profile record, then optimistically pushes the new Session into the cell
// ahead of the listener notification so the caller can proceed without
// waiting for the round trip. The listener's subsequent write remains the
// authoritative long-term source.
func (m *Manager) Signup(ctx context.Context, email, password, displayName string) error {
	if fieldErrs := validation.Signup(email, password, displayName); len(fieldErrs) > 0 {
		return models.NewValidationError(firstMessage(fieldErrs))
	}

	email = strings.TrimSpace(email)
	name := strings.TrimSpace(displayName)

	session, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	if err := m.auth.SetDisplayName(ctx, name); err != nil {
		return err
	}

	if err := m.profiles.CreateUserProfile(ctx, session.UID, email, name); err != nil {
		return err
	}

	session.DisplayName = name
	m.mu.Lock()
	cp := session
	m.current = &cp
	m.loading = false
	m.mu.Unlock()

	return nil
}

// LogOut invalidates the credential. The Session transitions to absent
// when the listener fires.
func (m *Manager) LogOut() error {
	return m.auth.SignOut()
}

// Close releases the auth-state listener. Called exactly once, at
// application shutdown; the listener is never re-registered.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}

func firstMessage(fieldErrs map[string]string) string {
	for _, field := range []string{"email", "password", "display_name"} {
		if msg, ok := fieldErrs[field]; ok {
			return msg
		}
	}
	for _, msg := range fieldErrs {
		return msg
	}
	return "Invalid input"
}
