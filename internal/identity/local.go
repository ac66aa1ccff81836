package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harlowe/clientdesk/internal/store"
)

// Store collections owned by the local provider. Separate from the entity
// collections so the synchronization layer never sees them.
const (
	collectionCredentials = "credentials"
	collectionSessions    = "sessions"
)

// sessionDocID is the id of the single persisted session document, so
// separate CLI invocations share a login.
const sessionDocID = "current"

type credentialRecord struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Salt         string `json:"salt"`
	PasswordHash string `json:"passwordHash"`
	DisplayName  string `json:"displayName,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
}

type sessionRecord struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Local is a password-based Provider that keeps credentials and the
// current session in the document store.
type Local struct {
	store store.Store

	mu        sync.Mutex
	current   *Identity
	listeners map[int]Callback
	nextID    int
}

var _ Provider = (*Local)(nil)

// NewLocal creates a local provider on the given store.
func NewLocal(st store.Store) *Local {
	return &Local{
		store:     st,
		listeners: make(map[int]Callback),
	}
}

// OnAuthStateChanged implements Provider.
func (l *Local) OnAuthStateChanged(cb Callback) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = cb
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Resume restores a previously persisted session, if any, and emits a
// signed-in event for it. Intended to be called once at process start.
func (l *Local) Resume(ctx context.Context) error {
	doc, err := l.store.Get(ctx, collectionSessions, sessionDocID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	var sess sessionRecord
	if err := doc.Decode(&sess); err != nil {
		return err
	}
	cred, err := l.credentialByEmail(ctx, sess.Email)
	if err != nil {
		return err
	}
	l.setCurrent(identityFromCredential(cred))
	return nil
}

// SignInWithPassword implements Provider.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) error {
	cred, err := l.credentialByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if !verifyPassword(cred, password) {
		return ErrInvalidCredentials
	}

	if err := l.persistSession(ctx, cred); err != nil {
		return err
	}
	l.setCurrent(identityFromCredential(cred))
	return nil
}

// CreateAccount implements Provider.
func (l *Local) CreateAccount(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}
	if _, err := l.credentialByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	cred := &credentialRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		Salt:         hex.EncodeToString(salt),
		PasswordHash: hashPassword(hex.EncodeToString(salt), password),
	}
	fields, err := store.Fields(cred)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, collectionCredentials, cred.UserID, fields, false); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	if err := l.persistSession(ctx, cred); err != nil {
		return err
	}
	l.setCurrent(identityFromCredential(cred))
	return nil
}

// SignInWithFederatedPopup implements Provider. The local provider has no
// federated identity backends.
func (l *Local) SignInWithFederatedPopup(ctx context.Context, providerName string) error {
	return fmt.Errorf("provider %q: %w", providerName, ErrUnsupported)
}

// SignOut implements Provider.
func (l *Local) SignOut(ctx context.Context) error {
	if err := l.store.Delete(ctx, collectionSessions, sessionDocID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	l.setCurrent(nil)
	return nil
}

// UpdateProfile implements Provider.
func (l *Local) UpdateProfile(ctx context.Context, name, avatarURL string) error {
	l.mu.Lock()
	current := l.current
	l.mu.Unlock()
	if current == nil {
		return errors.New("not signed in")
	}

	err := l.store.Update(ctx, collectionCredentials, current.ID, map[string]any{
		"displayName": name,
		"avatarUrl":   avatarURL,
	})
	if err != nil {
		return fmt.Errorf("failed to update provider profile: %w", err)
	}

	l.mu.Lock()
	l.current = &Identity{ID: current.ID, Email: current.Email, DisplayName: name, AvatarURL: avatarURL}
	l.mu.Unlock()
	return nil
}

// Current implements Provider.
func (l *Local) Current() *Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *Local) credentialByEmail(ctx context.Context, email string) (*credentialRecord, error) {
	docs, err := l.store.Query(ctx, collectionCredentials, store.Eq("email", email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up credentials: %w", err)
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	var cred credentialRecord
	if err := docs[0].Decode(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (l *Local) persistSession(ctx context.Context, cred *credentialRecord) error {
	fields, err := store.Fields(&sessionRecord{UserID: cred.UserID, Email: cred.Email})
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, collectionSessions, sessionDocID, fields, false); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// setCurrent swaps the identity and notifies every listener of the
// transition.
func (l *Local) setCurrent(ident *Identity) {
	l.mu.Lock()
	l.current = ident
	cbs := make([]Callback, 0, len(l.listeners))
	for _, cb := range l.listeners {
		cbs = append(cbs, cb)
	}
	l.mu.Unlock()

	for _, cb := range cbs {
		cb(ident)
	}
}

func identityFromCredential(cred *credentialRecord) *Identity {
	return &Identity{
		ID:          cred.UserID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
		AvatarURL:   cred.AvatarURL,
	}
}

func hashPassword(saltHex, password string) string {
	sum := sha256.Sum256([]byte(saltHex + ":" + password))
	return hex.EncodeToString(sum[:])
}

func verifyPassword(cred *credentialRecord, password string) bool {
	want := []byte(cred.PasswordHash)
	got := []byte(hashPassword(cred.Salt, password))
	return subtle.ConstantTimeCompare(want, got) == 1
}
