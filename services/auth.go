package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
)

const (
	identityBaseURL    = "https://identitytoolkit.googleapis.com/v1"
	secureTokenBaseURL = "https://securetoken.googleapis.com/v1"
)

// MsgEmailExists is the duplicate-account message; the gateway reports it
// as a conflict rather than an auth failure.
const MsgEmailExists = "This email is already registered"

// Provider error codes mapped to fixed user-facing strings. Unmapped codes
// pass through the provider's raw message.
var authErrorMessages = map[string]string{
	"EMAIL_EXISTS":              MsgEmailExists,
	"WEAK_PASSWORD":             "Password should be at least 6 characters",
	"EMAIL_NOT_FOUND":           "Invalid email or password",
	"INVALID_PASSWORD":          "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS": "Invalid email or password",
}

func mapAuthError(code string) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return code
}

// AuthConfig configures an AuthClient.
type AuthConfig struct {
	APIKey string

	// CredentialsFile persists the signed-in credential across restarts.
	// Empty disables persistence.
	CredentialsFile string

	// Overridable for tests.
	IdentityBaseURL    string
	SecureTokenBaseURL string
	HTTPClient         *http.Client
}

// AuthClient signs users up, in and out against the identity provider's
// REST API and exposes an auth-state notification stream. It is the single
// authority for the current credential; the session manager consumes its
// notifications.
type AuthClient struct {
	apiKey          string
	identityBase    string
	secureTokenBase string
	credentialsFile string
	httpClient      *http.Client
	log             *logrus.Entry

	mu           sync.Mutex
	current      *models.Session
	idToken      string
	refreshToken string
	subscribers  map[int]*authSubscriber
	nextSub      int
}

// authSubscriber delivers buffered auth states to one callback. The
// delivery mutex serializes fn against stop, so stop returning guarantees
// no further fn call.
type authSubscriber struct {
	ch chan *models.Session

	mu     sync.Mutex
	closed bool
}

func (s *authSubscriber) deliver(fn func(*models.Session)) {
	for state := range s.ch {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		fn(state)
		s.mu.Unlock()
	}
}

// push enqueues state, evicting the oldest pending state when the buffer
// is full. The newest state always lands, so a slow consumer converges on
// the authoritative state instead of missing it.
func (s *authSubscriber) push(state *models.Session) (evicted bool) {
	for {
		select {
		case s.ch <- state:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			evicted = true
		default:
		}
	}
}

// stop waits out any in-flight delivery, then halts the stream. Buffered
// states are discarded.
func (s *authSubscriber) stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
}

func NewAuthClient(cfg AuthConfig) *AuthClient {
	c := &AuthClient{
		apiKey:          cfg.APIKey,
		identityBase:    cfg.IdentityBaseURL,
		secureTokenBase: cfg.SecureTokenBaseURL,
		credentialsFile: cfg.CredentialsFile,
		httpClient:      cfg.HTTPClient,
		log:             logrus.WithField("component", "auth"),
		subscribers:     make(map[int]*authSubscriber),
	}
	if c.identityBase == "" {
		c.identityBase = identityBaseURL
	}
	if c.secureTokenBase == "" {
		c.secureTokenBase = secureTokenBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c.restore()
	return c
}

// AuthStateChanges registers fn on the auth-state stream. fn fires
// immediately with the current state (nil when no credential), then on
// every sign-in, sign-out and profile change, each notification carrying
// the full replacement Session. The returned function unsubscribes; after
// it returns no further notifications are delivered.
func (c *AuthClient) AuthStateChanges(fn func(*models.Session)) func() {
	sub := &authSubscriber{ch: make(chan *models.Session, 16)}
	go sub.deliver(fn)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = sub
	sub.ch <- copySession(c.current)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		s, ok := c.subscribers[id]
		if ok {
			delete(c.subscribers, id)
		}
		c.mu.Unlock()

		if ok {
			s.stop()
		}
	}
}

// notifyLocked pushes the current state to every subscriber. Caller must
// hold c.mu; channel buffers keep delivery asynchronous and ordered, and a
// full buffer coalesces to the newest state.
func (c *AuthClient) notifyLocked() {
	for _, sub := range c.subscribers {
		if sub.push(copySession(c.current)) {
			c.log.Warn("auth-state subscriber is behind, coalescing to the newest state")
		}
	}
}

func copySession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

type authTokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	LocalID      string `json:"localId"`
	DisplayName  string `json:"displayName"`
}

type authErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates a credential for email/password. On success the client
// stores the credential and the auth-state stream fires.
func (c *AuthClient) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	return c.credentialRequest(ctx, "accounts:signUp", email, password)
}

// SignIn verifies an email/password credential. On success the auth-state
// stream fires; callers must not assume the session cell is updated upon
// return.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	return c.credentialRequest(ctx, "accounts:signInWithPassword", email, password)
}

func (c *AuthClient) credentialRequest(ctx context.Context, endpoint, email, password string) (models.Session, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp authTokenResponse
	if err := c.post(ctx, c.identityBase+"/"+endpoint, body, &resp); err != nil {
		return models.Session{}, err
	}

	session := models.Session{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}

	c.mu.Lock()
	c.idToken = resp.IDToken
	c.refreshToken = resp.RefreshToken
	c.current = &session
	c.persistLocked()
	c.notifyLocked()
	c.mu.Unlock()

	c.log.Infof("signed in as %s", session.Email)
	return session, nil
}

// SetDisplayName updates the display name on the current credential and
// re-emits the auth state with the new name.
func (c *AuthClient) SetDisplayName(ctx context.Context, displayName string) error {
	c.mu.Lock()
	token := c.idToken
	c.mu.Unlock()

	if token == "" {
		return models.NewAuthError("Not signed in")
	}

	body := map[string]any{
		"idToken":           token,
		"displayName":       displayName,
		"returnSecureToken": true,
	}

	var resp authTokenResponse
	if err := c.post(ctx, c.identityBase+"/accounts:update", body, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	if resp.IDToken != "" {
		c.idToken = resp.IDToken
	}
	if resp.RefreshToken != "" {
		c.refreshToken = resp.RefreshToken
	}
	if c.current != nil {
		cp := *c.current
		cp.DisplayName = displayName
		c.current = &cp
	}
	c.persistLocked()
	c.notifyLocked()
	c.mu.Unlock()

	return nil
}

// SignOut invalidates the local credential. The auth-state stream fires
// with no user.
func (c *AuthClient) SignOut() error {
	c.mu.Lock()
	c.idToken = ""
	c.refreshToken = ""
	c.current = nil
	c.persistLocked()
	c.notifyLocked()
	c.mu.Unlock()

	c.log.Info("signed out")
	return nil
}

func (c *AuthClient) post(ctx context.Context, endpoint string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NewAuthError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(payload))
	if err != nil {
		return models.NewAuthError(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Error("auth request failed")
		return models.NewAuthError("An unexpected error occurred")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp authErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Message == "" {
			return models.NewAuthError(fmt.Sprintf("Authentication failed (status %d)", resp.StatusCode))
		}
		// Codes sometimes arrive as "WEAK_PASSWORD : Password should be...".
		code := strings.TrimSpace(strings.SplitN(errResp.Error.Message, " :", 2)[0])
		return models.NewAuthError(mapAuthError(code))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// persistedCredential is the on-disk credential shape. Opaque to the rest
// of the system.
type persistedCredential struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	DisplayName  string `json:"display_name"`
}

// persistLocked writes (or removes) the credential file. Caller must hold
// c.mu.
func (c *AuthClient) persistLocked() {
	if c.credentialsFile == "" {
		return
	}

	if c.idToken == "" {
		if err := os.Remove(c.credentialsFile); err != nil && !os.IsNotExist(err) {
			c.log.WithError(err).Warn("failed to remove credential file")
		}
		return
	}

	cred := persistedCredential{
		IDToken:      c.idToken,
		RefreshToken: c.refreshToken,
	}
	if c.current != nil {
		cred.DisplayName = c.current.DisplayName
	}

	data, err := json.Marshal(cred)
	if err != nil {
		c.log.WithError(err).Warn("failed to encode credential")
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.credentialsFile), 0o700); err != nil {
		c.log.WithError(err).Warn("failed to create credential dir")
		return
	}
	if err := os.WriteFile(c.credentialsFile, data, 0o600); err != nil {
		c.log.WithError(err).Warn("failed to write credential file")
	}
}

// restore loads a persisted credential, refreshing it when expired. Runs
// once at construction, before any subscriber registers, so the first
// stream notification already reflects the restored state.
func (c *AuthClient) restore() {
	if c.credentialsFile == "" {
		return
	}

	data, err := os.ReadFile(c.credentialsFile)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).Warn("failed to read credential file")
		}
		return
	}

	var cred persistedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		c.log.WithError(err).Warn("discarding malformed credential file")
		return
	}

	session, expiry, err := sessionFromIDToken(cred.IDToken, cred.DisplayName)
	if err != nil {
		c.log.WithError(err).Warn("discarding unreadable credential")
		return
	}

	if time.Now().After(expiry) {
		if cred.RefreshToken == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.refresh(ctx, cred.RefreshToken, cred.DisplayName); err != nil {
			c.log.WithError(err).Warn("credential refresh failed, signed out")
		}
		return
	}

	c.mu.Lock()
	c.idToken = cred.IDToken
	c.refreshToken = cred.RefreshToken
	c.current = &session
	c.mu.Unlock()
	c.log.Infof("restored session for %s", session.Email)
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *AuthClient) refresh(ctx context.Context, refreshToken, displayName string) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.secureTokenBase+"/token?key="+url.QueryEscape(c.apiKey),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh rejected (status %d)", resp.StatusCode)
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}

	session, _, err := sessionFromIDToken(parsed.IDToken, displayName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.idToken = parsed.IDToken
	c.refreshToken = parsed.RefreshToken
	c.current = &session
	c.persistLocked()
	c.mu.Unlock()
	return nil
}

// sessionFromIDToken reads the identity claims out of an ID token. The
// token is not verified here; verification is the backend's job and the
// client only needs the claims.
func sessionFromIDToken(idToken, fallbackName string) (models.Session, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return models.Session{}, time.Time{}, err
	}

	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return models.Session{}, time.Time{}, fmt.Errorf("id token has no user id claim")
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name = fallbackName
	}

	var expiry time.Time
	if exp, ok := claims["exp"].(float64); ok {
		expiry = time.Unix(int64(exp), 0)
	}

	return models.Session{UID: uid, Email: email, DisplayName: name}, expiry, nil
}
