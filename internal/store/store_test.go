package store

import (
	"errors"
	"testing"
	"time"

	"github.com/harlowe/clientdesk/internal/model"
)

func TestDocumentDecode(t *testing.T) {
	doc := Document{
		Collection: model.CollectionTasks,
		ID:         "t1",
		Fields: map[string]any{
			"id":          "t1",
			"userId":      "u1",
			"accountId":   "a1",
			"accountName": "Innovate Corp",
			"title":       "Prepare quarterly report",
			"status":      "todo",
			"priority":    "high",
			"version":     float64(2),
			"dueDate":     "2026-09-15T00:00:00Z",
		},
	}

	var task model.Task
	if err := doc.Decode(&task); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if task.Title != "Prepare quarterly report" || task.Version != 2 {
		t.Errorf("decoded task = %+v", task)
	}
	if task.DueDate.IsZero() {
		t.Error("dueDate not decoded")
	}
}

func TestDocumentDecodeToleratesUnknownFields(t *testing.T) {
	doc := Document{
		Collection: model.CollectionUsers,
		ID:         "u1",
		Fields: map[string]any{
			"id":          "u1",
			"name":        "Alex",
			"email":       "alex@example.com",
			"avatar":      "/a.png",
			"newerClient": true,
		},
	}
	var user model.User
	if err := doc.Decode(&user); err != nil {
		t.Fatalf("decode failed on unknown field: %v", err)
	}
}

func TestDocumentDecodeSchemaError(t *testing.T) {
	doc := Document{
		Collection: model.CollectionTasks,
		ID:         "t1",
		Fields: map[string]any{
			"title":   "ok",
			"version": "not-a-number",
		},
	}

	var task model.Task
	err := doc.Decode(&task)
	var serr *SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if serr.Collection != model.CollectionTasks || serr.ID != "t1" {
		t.Errorf("SchemaError located at %s/%s", serr.Collection, serr.ID)
	}
}

func TestFieldsStripsDerivedTasks(t *testing.T) {
	desc := "a client"
	account := &model.Account{
		ID:           "a1",
		UserID:       "u1",
		Name:         "Innovate Corp",
		Client:       "John Smith",
		Status:       model.StatusActive,
		Performance:  85,
		Description:  &desc,
		LastModified: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	fields, err := Fields(account)
	if err != nil {
		t.Fatalf("flatten failed: %v", err)
	}
	if _, ok := fields["tasks"]; ok {
		t.Error("derived task list leaked into persisted fields")
	}
	if fields["name"] != "Innovate Corp" {
		t.Errorf("name field = %v", fields["name"])
	}
	if _, ok := fields["notes"]; ok {
		t.Error("nil notes pointer should be omitted")
	}
}
