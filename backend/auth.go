package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCredentials is returned by SignInWithPassword when the
// identity provider rejects the email/password pair.
var ErrInvalidCredentials = errors.New("backend: invalid email or password")

// ErrEmailNotConfirmed is returned when the account exists but the email
// address has not been confirmed yet.
var ErrEmailNotConfirmed = errors.New("backend: email not confirmed")

// AuthSession is the identity provider's session for the current user.
type AuthSession struct {
	AccessToken string
	UserID      string
	Email       string
	ExpiresAt   time.Time
}

// AuthStateFunc receives the new session on every auth state transition.
// A nil session means signed out.
type AuthStateFunc func(session *AuthSession)

// AuthClient is the identity provider interface: current session,
// password sign-in/up, sign-out and the auth-state-change stream.
type AuthClient interface {
	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*AuthSession, error)

	// SignInWithPassword authenticates with an email/password pair.
	SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error)

	// SignUp registers a new account. Depending on provider settings the
	// returned session may be nil until the email is confirmed.
	SignUp(ctx context.Context, email, password string) (*AuthSession, error)

	// SignOut ends the current session, server side included.
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers fn for session transitions. The
	// returned function removes the registration.
	OnAuthStateChange(fn AuthStateFunc) (unsubscribe func())
}

// RESTAuth implements AuthClient over the backend's token endpoints.
type RESTAuth struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu        sync.Mutex
	session   *AuthSession
	listeners map[int]AuthStateFunc
	nextID    int
}

// NewRESTAuth creates an auth client for the identity provider at baseURL.
func NewRESTAuth(baseURL, apiKey string) *RESTAuth {
	return &RESTAuth{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		listeners: make(map[int]AuthStateFunc),
	}
}

// Session returns the current session, or nil when signed out.
// An expired session is reported as signed out; token refresh is the
// provider SDK's concern and is not re-implemented here.
func (a *RESTAuth) Session(_ context.Context) (*AuthSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil
	}
	if !a.session.ExpiresAt.IsZero() && time.Now().After(a.session.ExpiresAt) {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

// AccessToken returns the current access token, or "" when signed out.
// Suitable as the token source for NewRESTClient.
func (a *RESTAuth) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignInWithPassword authenticates with an email/password pair.
func (a *RESTAuth) SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error) {
	tok, err := a.tokenRequest(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	session := sessionFrom(tok)
	a.setSession(session)
	return session, nil
}

// SignUp registers a new account.
func (a *RESTAuth) SignUp(ctx context.Context, email, password string) (*AuthSession, error) {
	tok, err := a.tokenRequest(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		// Email confirmation pending; no session yet.
		return nil, nil
	}
	session := sessionFrom(tok)
	a.setSession(session)
	return session, nil
}

// SignOut ends the current session.
func (a *RESTAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/logout", nil)
		if err != nil {
			return fmt.Errorf("backend: failed to build request: %w", err)
		}
		req.Header.Set("apikey", a.apiKey)
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		resp, err := a.http.Do(req)
		if err != nil {
			// The local session is cleared regardless so a stale token
			// cannot linger client side.
			a.setSession(nil)
			return fmt.Errorf("backend: sign-out request failed: %w", err)
		}
		resp.Body.Close()
	}

	a.setSession(nil)
	return nil
}

// OnAuthStateChange registers fn for session transitions.
func (a *RESTAuth) OnAuthStateChange(fn AuthStateFunc) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *RESTAuth) setSession(s *AuthSession) {
	a.mu.Lock()
	a.session = s
	fns := make([]AuthStateFunc, 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (a *RESTAuth) tokenRequest(ctx context.Context, path string, body map[string]string) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: auth request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("backend: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
			Message     string `json:"msg"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Description
		if msg == "" {
			msg = apiErr.Message
		}
		switch {
		case strings.Contains(msg, "Email not confirmed"):
			return nil, ErrEmailNotConfirmed
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrInvalidCredentials
		default:
			return nil, &RejectionError{Status: resp.StatusCode, Message: msg}
		}
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("backend: failed to decode token response: %w", err)
	}
	return &tok, nil
}

func sessionFrom(tok *tokenResponse) *AuthSession {
	return &AuthSession{
		AccessToken: tok.AccessToken,
		UserID:      tok.User.ID,
		Email:       tok.User.Email,
		ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
}
