// Package session ties the identity provider to the workspace lifecycle
// and owns the route access rules for the view surfaces.
//
// The controller subscribes to provider auth-state events: a signed-in
// identity hydrates the workspace, a nil identity tears it down. The
// workspace is lifecycle-scoped to the session, never a process-wide
// singleton of its own.
package session

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/harlowe/clientdesk/internal/identity"
	"github.com/harlowe/clientdesk/internal/workspace"
)

// Route lists mirror the application's page surface.
var (
	// protectedRoutes require a signed-in user (prefix match).
	protectedRoutes = []string{"/dashboard", "/accounts", "/tasks", "/calendar", "/profile"}

	// authRoutes are only for unauthenticated visitors (exact match).
	authRoutes = []string{"/login", "/signup"}
)

// Access is the route guard's decision for a path.
type Access int

const (
	// Allow lets the request through.
	Allow Access = iota
	// RedirectLogin sends an unauthenticated visitor to the login page.
	RedirectLogin
	// RedirectDashboard sends a signed-in user away from visitor-only pages.
	RedirectDashboard
)

// Controller reacts to identity events and exposes the session's
// workspace to the view surfaces.
type Controller struct {
	provider    identity.Provider
	workspace   *workspace.Workspace
	logger      *log.Logger
	unsubscribe func()
}

// NewController wires a controller to the provider and workspace. Start
// must be called to begin receiving auth-state events.
func NewController(provider identity.Provider, ws *workspace.Workspace, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}
	return &Controller{
		provider:  provider,
		workspace: ws,
		logger:    logger,
	}
}

// Start subscribes to auth-state transitions and replays the current
// state so an already signed-in identity hydrates immediately.
func (c *Controller) Start(ctx context.Context) {
	c.unsubscribe = c.provider.OnAuthStateChanged(func(ident *identity.Identity) {
		c.handleIdentity(ctx, ident)
	})
	c.handleIdentity(ctx, c.provider.Current())
}

// Stop unsubscribes from provider events.
func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Workspace returns the session's workspace.
func (c *Controller) Workspace() *workspace.Workspace {
	return c.workspace
}

// handleIdentity clears the snapshot on a nil identity and hydrates on a
// signed-in one. Clearing happens before hydration of any later session.
func (c *Controller) handleIdentity(ctx context.Context, ident *identity.Identity) {
	if ident == nil {
		c.workspace.SignOut()
		return
	}
	if err := c.workspace.SignIn(ctx, ident); err != nil {
		c.logger.Printf("Failed to establish session for %s: %v", ident.Email, err)
	}
}

// CheckRoute applies the route access table to a request path.
func CheckRoute(path string, authenticated bool) Access {
	for _, p := range protectedRoutes {
		if strings.HasPrefix(path, p) {
			if !authenticated {
				return RedirectLogin
			}
			return Allow
		}
	}
	for _, p := range authRoutes {
		if path == p {
			if authenticated {
				return RedirectDashboard
			}
			return Allow
		}
	}
	return Allow
}
