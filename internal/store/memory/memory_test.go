package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/harlowe/clientdesk/internal/store"
)

func TestSetGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "accounts", "a1", map[string]any{"name": "Acme", "userId": "u1"}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	doc, err := s.Get(ctx, "accounts", "a1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Fields["name"] != "Acme" {
		t.Errorf("name = %v, want Acme", doc.Fields["name"])
	}

	if err := s.Delete(ctx, "accounts", "a1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "accounts", "a1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an absent document is not an error.
	if err := s.Delete(ctx, "accounts", "a1"); err != nil {
		t.Errorf("delete of absent document failed: %v", err)
	}
}

func TestSetMerge(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "users", "u1", map[string]any{"name": "Alex", "email": "alex@example.com"}, false)
	s.Set(ctx, "users", "u1", map[string]any{"name": "Alex Harper"}, true)

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Fields["name"] != "Alex Harper" {
		t.Errorf("name = %v, want Alex Harper", doc.Fields["name"])
	}
	if doc.Fields["email"] != "alex@example.com" {
		t.Errorf("merge dropped email: %v", doc.Fields["email"])
	}

	// Without merge the replacement is total.
	s.Set(ctx, "users", "u1", map[string]any{"name": "Alex"}, false)
	doc, _ = s.Get(ctx, "users", "u1")
	if _, ok := doc.Fields["email"]; ok {
		t.Error("full set kept stale email field")
	}
}

func TestQueryFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "tasks", "t1", map[string]any{"userId": "u1", "accountId": "a1"}, false)
	s.Set(ctx, "tasks", "t2", map[string]any{"userId": "u1", "accountId": "a2"}, false)
	s.Set(ctx, "tasks", "t3", map[string]any{"userId": "u2", "accountId": "a1"}, false)

	docs, err := s.Query(ctx, "tasks", store.Eq("userId", "u1"), store.Eq("accountId", "a1"))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "t1" {
		t.Errorf("query returned %d docs, want exactly t1", len(docs))
	}

	docs, err = s.Query(ctx, "tasks", store.Eq("userId", "u1"))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("query returned %d docs, want 2", len(docs))
	}
}

func TestQueryReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "tasks", "t1", map[string]any{"title": "original"}, false)
	docs, _ := s.Query(ctx, "tasks")
	docs[0].Fields["title"] = "mutated"

	doc, _ := s.Get(ctx, "tasks", "t1")
	if doc.Fields["title"] != "original" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestBatchCommitIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Set(ctx, "tasks", "old", map[string]any{"title": "stale"}, false)

	b := s.Batch()
	b.Set("accounts", "a1", map[string]any{"name": "Acme"})
	b.Set("tasks", "t1", map[string]any{"title": "one"})
	b.Delete("tasks", "old")
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if s.Len("accounts") != 1 || s.Len("tasks") != 1 {
		t.Errorf("collections = %d accounts, %d tasks", s.Len("accounts"), s.Len("tasks"))
	}
	if _, err := s.Get(ctx, "tasks", "old"); !errors.Is(err, store.ErrNotFound) {
		t.Error("batched delete not applied")
	}
}

func TestBatchCommitFailureWritesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.FailNextCommit(1)
	b := s.Batch()
	b.Set("accounts", "a1", map[string]any{"name": "Acme"})
	b.Set("tasks", "t1", map[string]any{"title": "one"})
	if err := b.Commit(ctx); err == nil {
		t.Fatal("expected commit to fail")
	}

	if s.Len("accounts") != 0 || s.Len("tasks") != 0 {
		t.Error("failed commit left documents behind")
	}

	// The fault is consumed; a retry succeeds.
	b = s.Batch()
	b.Set("accounts", "a1", map[string]any{"name": "Acme"})
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("retry commit failed: %v", err)
	}
}

func TestFaultInjection(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Set(ctx, "tasks", "t1", map[string]any{"title": "one"}, false)

	s.FailNextQuery(1)
	if _, err := s.Query(ctx, "tasks"); err == nil {
		t.Error("expected injected query failure")
	}
	if _, err := s.Query(ctx, "tasks"); err != nil {
		t.Errorf("query after consumed fault failed: %v", err)
	}

	s.FailNextGet(1)
	if _, err := s.Get(ctx, "tasks", "t1"); err == nil {
		t.Error("expected injected get failure")
	}
	if _, err := s.Get(ctx, "tasks", "t1"); err != nil {
		t.Errorf("get after consumed fault failed: %v", err)
	}

	s.FailNextWrite(1)
	if err := s.Set(ctx, "tasks", "t2", map[string]any{}, false); err == nil {
		t.Error("expected injected write failure")
	}

	// Collection-scoped faults leave other collections writable.
	s.FailWritesTo("users", 1)
	if err := s.Set(ctx, "tasks", "t2", map[string]any{}, false); err != nil {
		t.Errorf("write to unaffected collection failed: %v", err)
	}
	if err := s.Set(ctx, "users", "u1", map[string]any{}, false); err == nil {
		t.Error("expected injected users write failure")
	}
	if err := s.Set(ctx, "users", "u1", map[string]any{}, false); err != nil {
		t.Errorf("users write after consumed fault failed: %v", err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), "accounts", "nope", map[string]any{"name": "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
