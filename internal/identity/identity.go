// Package identity defines the authentication provider boundary: a
// credential service that signs users in and out and notifies the
// application of session-state transitions.
package identity

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match a registered identity.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned by CreateAccount when the email is already
// registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrUnsupported is returned for sign-in mechanisms a provider does not
// implement.
var ErrUnsupported = errors.New("sign-in method not supported")

// Identity is the authenticated principal as reported by the provider.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Callback receives the identity on sign-in and nil on sign-out. Exactly
// one event is emitted per session-state transition; a nil identity means
// all user data must be cleared.
type Callback func(ident *Identity)

// Provider is the external authentication service.
type Provider interface {
	// OnAuthStateChanged registers a callback for session-state
	// transitions. The returned function unsubscribes it.
	OnAuthStateChanged(cb Callback) (unsubscribe func())

	// SignInWithPassword authenticates an email/password pair and emits a
	// signed-in event on success.
	SignInWithPassword(ctx context.Context, email, password string) error

	// CreateAccount registers a new identity and signs it in.
	CreateAccount(ctx context.Context, email, password string) error

	// SignInWithFederatedPopup authenticates through a named federated
	// provider.
	SignInWithFederatedPopup(ctx context.Context, providerName string) error

	// SignOut ends the session and emits a nil-identity event.
	SignOut(ctx context.Context) error

	// UpdateProfile writes the display name and avatar reference onto the
	// provider's own profile record for the current identity.
	UpdateProfile(ctx context.Context, name, avatarURL string) error

	// Current returns the signed-in identity, or nil.
	Current() *Identity
}
