package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/harlowe/clientdesk/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	fields := map[string]any{
		"name":        "Innovate Corp",
		"userId":      "u1",
		"performance": float64(85),
	}
	if err := s.Set(ctx, "accounts", "a1", fields, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	doc, err := s.Get(ctx, "accounts", "a1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Fields["name"] != "Innovate Corp" {
		t.Errorf("name = %v", doc.Fields["name"])
	}
	if doc.Fields["performance"] != float64(85) {
		t.Errorf("performance = %v (%T)", doc.Fields["performance"], doc.Fields["performance"])
	}

	if _, err := s.Get(ctx, "accounts", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing document error = %v, want ErrNotFound", err)
	}
}

func TestSetMerge(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	s.Set(ctx, "users", "u1", map[string]any{"name": "Alex", "email": "alex@example.com"}, false)
	if err := s.Set(ctx, "users", "u1", map[string]any{"name": "Alex Harper"}, true); err != nil {
		t.Fatalf("merge set failed: %v", err)
	}

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Fields["name"] != "Alex Harper" || doc.Fields["email"] != "alex@example.com" {
		t.Errorf("merged fields = %v", doc.Fields)
	}
}

func TestQueryJSONFilters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	s.Set(ctx, "tasks", "t1", map[string]any{"userId": "u1", "accountId": "a1", "title": "one"}, false)
	s.Set(ctx, "tasks", "t2", map[string]any{"userId": "u1", "accountId": "a2", "title": "two"}, false)
	s.Set(ctx, "tasks", "t3", map[string]any{"userId": "u2", "accountId": "a1", "title": "three"}, false)
	s.Set(ctx, "accounts", "a1", map[string]any{"userId": "u1"}, false)

	docs, err := s.Query(ctx, "tasks", store.Eq("userId", "u1"), store.Eq("accountId", "a1"))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "t1" {
		t.Fatalf("query returned %d docs, want exactly t1", len(docs))
	}

	// Collections are isolated even though they share a table.
	docs, err = s.Query(ctx, "tasks", store.Eq("userId", "u1"))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("query returned %d docs, want 2", len(docs))
	}
}

func TestUpdate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	s.Set(ctx, "accounts", "a1", map[string]any{"name": "Acme", "status": "active"}, false)
	if err := s.Update(ctx, "accounts", "a1", map[string]any{"status": "inactive"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	doc, _ := s.Get(ctx, "accounts", "a1")
	if doc.Fields["status"] != "inactive" || doc.Fields["name"] != "Acme" {
		t.Errorf("fields after update = %v", doc.Fields)
	}

	if err := s.Update(ctx, "accounts", "missing", map[string]any{"x": 1}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update of missing document error = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	s.Set(ctx, "tasks", "t1", map[string]any{"title": "one"}, false)
	if err := s.Delete(ctx, "tasks", "t1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Delete(ctx, "tasks", "t1"); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "tasks", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestBatchCommit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	s.Set(ctx, "tasks", "old", map[string]any{"title": "stale"}, false)

	b := s.Batch()
	b.Set("accounts", "a1", map[string]any{"name": "Acme"})
	b.Set("tasks", "t1", map[string]any{"title": "one"})
	b.Set("tasks", "t2", map[string]any{"title": "two"})
	b.Delete("tasks", "old")
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	docs, err := s.Query(ctx, "tasks")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("tasks after batch = %d, want 2", len(docs))
	}
	if _, err := s.Get(ctx, "accounts", "a1"); err != nil {
		t.Errorf("batched account write missing: %v", err)
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Set(ctx, "accounts", "a1", map[string]any{"name": "Acme"}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	doc, err := s.Get(ctx, "accounts", "a1")
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if doc.Fields["name"] != "Acme" {
		t.Errorf("name = %v", doc.Fields["name"])
	}
}
