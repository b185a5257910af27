package velmoadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/velmohq/velmoadmin/backend"
)

// AccessState is where the admin guard currently stands.
type AccessState string

const (
	// AccessUnresolved means no session has been evaluated yet.
	AccessUnresolved AccessState = "unresolved"
	// AccessChecking means a session exists and the privilege check is
	// in flight.
	AccessChecking AccessState = "checking"
	// AccessAuthorized means the current user holds an admin role.
	AccessAuthorized AccessState = "authorized"
	// AccessDenied means the current user was rejected and signed out,
	// or no session exists to evaluate.
	AccessDenied AccessState = "denied"
)

// Access is the guard's resolved verdict for the current session.
type Access struct {
	State AccessState
	Role  Role
	// UserID is set once a session has been evaluated.
	UserID string
}

// guard resolves whether the signed-in user may use the admin surface.
// It fails closed: any state where privileges cannot be positively
// confirmed ends in a forced sign-out.
type guard struct {
	q    backend.Querier
	auth backend.AuthClient
	log  *slog.Logger

	mu     sync.Mutex
	access Access

	unsubscribe func()
}

func newGuard(q backend.Querier, auth backend.AuthClient, log *slog.Logger) *guard {
	g := &guard{
		q:      q,
		auth:   auth,
		log:    log,
		access: Access{State: AccessUnresolved},
	}
	g.unsubscribe = auth.OnAuthStateChange(func(session *backend.AuthSession) {
		if session == nil {
			g.setAccess(Access{State: AccessDenied})
		}
	})
	return g
}

func (g *guard) setAccess(a Access) {
	g.mu.Lock()
	g.access = a
	g.mu.Unlock()
}

// Access returns the current guard verdict without touching the network.
func (g *guard) Access() Access {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.access
}

// adminRoles are the roles allowed through the guard.
func isAdminRole(role Role) bool {
	switch role {
	case RoleViewer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Check evaluates the current session's admin privileges. The primary
// path is the access-check procedure; if the procedure is missing or
// fails, the guard falls back to reading the admin roster directly.
// When neither path confirms privileges the user is signed out and an
// error is returned.
func (g *guard) Check(ctx context.Context) (Access, error) {
	session, err := g.auth.Session(ctx)
	if err != nil {
		return Access{}, fmt.Errorf("velmoadmin: failed to read session: %w", err)
	}
	if session == nil {
		access := Access{State: AccessDenied}
		g.setAccess(access)
		return access, ErrNotSignedIn
	}

	g.setAccess(Access{State: AccessChecking, UserID: session.UserID})

	role, err := g.resolveRole(ctx, session.UserID)
	if err != nil {
		// Could not positively confirm privileges. Fail closed.
		g.log.Warn("admin access check failed, signing out",
			"user_id", session.UserID, "error", err)
		g.forceSignOut(ctx)
		access := Access{State: AccessDenied, UserID: session.UserID}
		g.setAccess(access)
		if errors.Is(err, ErrAccessDenied) {
			return access, ErrAccessDenied
		}
		return access, fmt.Errorf("%w: %v", ErrAccessUnverified, err)
	}
	if !isAdminRole(role) {
		g.forceSignOut(ctx)
		access := Access{State: AccessDenied, UserID: session.UserID}
		g.setAccess(access)
		return access, ErrAccessDenied
	}

	access := Access{State: AccessAuthorized, Role: role, UserID: session.UserID}
	g.setAccess(access)
	return access, nil
}

// resolveRole asks the backend which admin role the user holds. The
// access procedure is authoritative: an explicit denial from it is
// final. Only when the procedure itself cannot be reached does the
// guard fall back to reading the admin roster directly.
func (g *guard) resolveRole(ctx context.Context, userID string) (Role, error) {
	role, denied, err := g.checkViaRPC(ctx, userID)
	if err == nil {
		if denied {
			return "", ErrAccessDenied
		}
		return role, nil
	}
	g.log.Debug("access procedure unavailable, falling back to roster read",
		"user_id", userID, "error", err)

	return g.checkViaRoster(ctx, userID)
}

func (g *guard) checkViaRPC(ctx context.Context, userID string) (role Role, denied bool, err error) {
	raw, err := g.q.RPC(ctx, "check_admin_access", map[string]any{"p_user_id": userID})
	if err != nil {
		return "", false, err
	}
	var result struct {
		HasAccess bool   `json:"has_access"`
		Role      string `json:"role"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", false, fmt.Errorf("velmoadmin: failed to decode access check: %w", err)
	}
	if !result.HasAccess {
		return "", true, nil
	}
	return Role(strings.ToLower(result.Role)), false, nil
}

func (g *guard) checkViaRoster(ctx context.Context, userID string) (Role, error) {
	res, err := g.q.Query(ctx, "admin_users", backend.QuerySpec{
		Select: "role, is_active",
		Conds:  []backend.Cond{{Column: "user_id", Op: "eq", Value: userID}},
		Limit:  1,
	})
	if err != nil {
		return "", err
	}
	entry, ok, err := decodeOne[struct {
		Role     string `json:"role"`
		IsActive bool   `json:"is_active"`
	}](res.Rows)
	if err != nil {
		return "", err
	}
	if !ok || !entry.IsActive {
		return "", ErrAccessDenied
	}
	return Role(strings.ToLower(entry.Role)), nil
}

func (g *guard) forceSignOut(ctx context.Context) {
	if err := g.auth.SignOut(ctx); err != nil {
		g.log.Warn("forced sign-out failed", "error", err)
	}
}

func (g *guard) close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// SignIn authenticates with email and password, then runs the admin
// access check. A valid account without admin privileges is signed out
// again and rejected.
func (c *Client) SignIn(ctx context.Context, email, password string) (Access, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Access{}, fmt.Errorf("velmoadmin: email and password are required: %w", ErrValidation)
	}
	if _, err := c.auth.SignInWithPassword(ctx, email, password); err != nil {
		return Access{}, err
	}
	return c.guard.Check(ctx)
}

// SignUp registers a new account. The password pair must match and meet
// the minimum length. The new account still needs an admin roster entry
// before it passes the guard.
func (c *Client) SignUp(ctx context.Context, email, password, confirm string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("velmoadmin: email and password are required: %w", ErrValidation)
	}
	if password != confirm {
		return fmt.Errorf("velmoadmin: passwords do not match: %w", ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("velmoadmin: password must be at least 6 characters: %w", ErrValidation)
	}
	_, err := c.auth.SignUp(ctx, email, password)
	return err
}

// SignOut ends the session and clears all client-side state: cache,
// notifications and any in-flight dedup generation.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.auth.SignOut(ctx)
	c.fetch.invalidateAll(ctx)
	c.toasts.Reset()
	c.guard.setAccess(Access{State: AccessDenied})
	return err
}

// CheckAccess runs the admin guard against the current session.
func (c *Client) CheckAccess(ctx context.Context) (Access, error) {
	return c.guard.Check(ctx)
}

// Access returns the last resolved guard verdict without a network call.
func (c *Client) Access() Access {
	return c.guard.Access()
}
