package seed

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/harlowe/clientdesk/internal/blob"
	"github.com/harlowe/clientdesk/internal/identity"
	"github.com/harlowe/clientdesk/internal/store/memory"
	"github.com/harlowe/clientdesk/internal/workspace"
)

func seedWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	provider := identity.NewLocal(st)
	ws := workspace.New(workspace.Deps{
		Store:    st,
		Blob:     blob.NewDir(t.TempDir(), "/media"),
		Provider: provider,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err := provider.CreateAccount(ctx, "demo@example.com", "demo"); err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	if err := ws.SignIn(ctx, provider.Current()); err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
	return ws
}

func TestLoad(t *testing.T) {
	ws := seedWorkspace(t)

	fixture := []byte(`
accounts:
  - name: Innovate Corp
    client: John Smith
    description: Key enterprise client
    tasks:
      - title: Prepare quarterly report
        status: todo
        priority: high
        version: 1
        dueDate: "2026-09-15"
      - title: Schedule kickoff call
        status: inprogress
        priority: medium
        version: 2
        dueDate: "2026-09-01"
  - name: Apex Enterprises
    client: Maria Garcia
`)

	created, err := Load(context.Background(), ws, fixture)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	accounts := ws.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("workspace has %d accounts", len(accounts))
	}
	// Sorted by name, so Apex comes first.
	if accounts[0].Name != "Apex Enterprises" || accounts[1].Name != "Innovate Corp" {
		t.Errorf("accounts = %q, %q", accounts[0].Name, accounts[1].Name)
	}
	if got := len(accounts[1].Tasks); got != 2 {
		t.Errorf("Innovate Corp has %d tasks, want 2", got)
	}
	for _, task := range accounts[1].Tasks {
		if task.AccountName != "Innovate Corp" {
			t.Errorf("seeded task accountName = %q", task.AccountName)
		}
	}
}

func TestLoadBadDueDate(t *testing.T) {
	ws := seedWorkspace(t)

	fixture := []byte(`
accounts:
  - name: Broken
    client: X
    tasks:
      - title: t
        status: todo
        priority: low
        version: 1
        dueDate: "next tuesday"
`)
	if _, err := Load(context.Background(), ws, fixture); err == nil {
		t.Fatal("expected an error for an unparseable due date")
	}
	if len(ws.Accounts()) != 0 {
		t.Error("account created despite fixture error")
	}
}

func TestLoadDemo(t *testing.T) {
	ws := seedWorkspace(t)

	created, err := LoadDemo(context.Background(), ws)
	if err != nil {
		t.Fatalf("demo load failed: %v", err)
	}
	if created != 4 {
		t.Errorf("created = %d, want the 4 demo accounts", created)
	}
	if got := len(ws.Tasks()); got != 7 {
		t.Errorf("workspace has %d tasks, want the 7 demo tasks", got)
	}
	for _, acct := range ws.Accounts() {
		if acct.Performance < 60 || acct.Performance > 100 {
			t.Errorf("account %s performance %d out of [60,100]", acct.Name, acct.Performance)
		}
	}
}
