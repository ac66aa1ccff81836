package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/harlowe/clientdesk/internal/store/memory"
)

func TestCreateAccountAndSignIn(t *testing.T) {
	st := memory.New()
	p := NewLocal(st)
	ctx := context.Background()

	if err := p.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	ident := p.Current()
	if ident == nil || ident.Email != "alex@example.com" {
		t.Fatalf("current identity = %+v", ident)
	}

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if p.Current() != nil {
		t.Fatal("identity still present after sign-out")
	}

	if err := p.SignInWithPassword(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if got := p.Current(); got == nil || got.ID != ident.ID {
		t.Errorf("sign-in identity = %+v, want id %s", got, ident.ID)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	st := memory.New()
	p := NewLocal(st)
	ctx := context.Background()

	if err := p.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	if err := p.SignInWithPassword(ctx, "alex@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if err := p.SignInWithPassword(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	st := memory.New()
	p := NewLocal(st)
	ctx := context.Background()

	if err := p.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if err := p.CreateAccount(ctx, "alex@example.com", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}
}

func TestResumeRestoresSession(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	first := NewLocal(st)
	if err := first.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	userID := first.Current().ID

	// A second provider over the same store stands in for a new process.
	second := NewLocal(st)
	var observed *Identity
	second.OnAuthStateChanged(func(ident *Identity) { observed = ident })

	if err := second.Resume(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if got := second.Current(); got == nil || got.ID != userID {
		t.Errorf("resumed identity = %+v, want id %s", got, userID)
	}
	if observed == nil || observed.ID != userID {
		t.Errorf("listener saw %+v, want id %s", observed, userID)
	}
}

func TestResumeWithoutSession(t *testing.T) {
	p := NewLocal(memory.New())
	if err := p.Resume(context.Background()); err != nil {
		t.Fatalf("resume on empty store failed: %v", err)
	}
	if p.Current() != nil {
		t.Error("identity present without a session")
	}
}

func TestAuthStateListeners(t *testing.T) {
	st := memory.New()
	p := NewLocal(st)
	ctx := context.Background()

	var events []*Identity
	unsubscribe := p.OnAuthStateChanged(func(ident *Identity) { events = append(events, ident) })

	if err := p.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("observed %d events, want 2", len(events))
	}
	if events[0] == nil || events[1] != nil {
		t.Errorf("events = [%+v, %+v], want signed-in then nil", events[0], events[1])
	}

	unsubscribe()
	if err := p.SignInWithPassword(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("unsubscribed listener still notified, %d events", len(events))
	}
}

func TestUpdateProfile(t *testing.T) {
	st := memory.New()
	p := NewLocal(st)
	ctx := context.Background()

	if err := p.CreateAccount(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if err := p.UpdateProfile(ctx, "Alex Harper", "/media/avatars/me.png"); err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if got := p.Current().DisplayName; got != "Alex Harper" {
		t.Errorf("display name = %q, want Alex Harper", got)
	}

	// The profile survives a fresh sign-in from the persisted credential.
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if err := p.SignInWithPassword(ctx, "alex@example.com", "hunter2"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if got := p.Current().AvatarURL; got != "/media/avatars/me.png" {
		t.Errorf("avatar = %q after re-sign-in", got)
	}
}

func TestFederatedSignInUnsupported(t *testing.T) {
	p := NewLocal(memory.New())
	if err := p.SignInWithFederatedPopup(context.Background(), "google"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
