// Package model defines the entity types stored in the clientdesk document
// collections: users, accounts, and tasks.
//
// Accounts and tasks live in separate collections with no referential
// integrity enforced by the store. A Task carries its owning account's id
// plus a denormalized copy of the account name taken at creation time; the
// copy is intentionally never updated when the account is renamed.
package model

import (
	"fmt"
	"time"
)

// Collection names in the backing document store.
const (
	CollectionUsers    = "users"
	CollectionAccounts = "accounts"
	CollectionTasks    = "tasks"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

// Valid reports whether the status is one of the known values.
func (s AccountStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// TaskStatus is the kanban column a task sits in.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "inprogress"
	TaskDone       TaskStatus = "done"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

// Priority is the user-assigned urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// MaxDraftTasks bounds how many tasks may be bundled into a single
// account creation.
const MaxDraftTasks = 10

// User is the profile record for an authenticated identity. Created on
// first sign-in, mutated only through profile updates, never deleted.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Account is a client workspace owning a bounded list of tasks.
type Account struct {
	// ===== Identity & Ownership =====
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// ===== Content =====
	Name        string        `json:"name"`
	Client      string        `json:"client"` // account manager display name, not a User reference
	Status      AccountStatus `json:"status"`
	Performance int           `json:"performance"` // assigned at creation, never recomputed
	Description *string       `json:"description,omitempty"`
	Notes       *string       `json:"notes,omitempty"`

	// ===== Bookkeeping =====
	LastModified time.Time `json:"lastModified"` // bumped on field edits only, not on task changes

	// Tasks is the derived member list. It is rebuilt from the tasks
	// collection and is never persisted as a field of the account document.
	Tasks []*Task `json:"tasks,omitempty"`
}

// Validate checks the account's own fields. The derived Tasks list is not
// the account's to validate.
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if a.Client == "" {
		return fmt.Errorf("account client is required")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid account status %q", a.Status)
	}
	if a.Performance < 0 || a.Performance > 100 {
		return fmt.Errorf("performance must be between 0 and 100 (got %d)", a.Performance)
	}
	return nil
}

// Task is a unit of work belonging to exactly one account.
type Task struct {
	// ===== Identity & Ownership =====
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`

	// AccountName is a denormalized copy of the owning account's name at
	// task creation time. Renaming the account does not rewrite it.
	AccountName string `json:"accountName,omitempty"`

	// ===== Content =====
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Version     int        `json:"version"` // user-visible revision label, 1-10

	// ===== Scheduling =====
	DueDate time.Time `json:"dueDate"`
}

// Validate checks the task's field values.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid task priority %q", t.Priority)
	}
	if t.Version < 1 || t.Version > 10 {
		return fmt.Errorf("version must be between 1 and 10 (got %d)", t.Version)
	}
	return nil
}

// DraftTask is a task as collected from the caller before an account
// exists to own it: no id, no ownership fields yet.
type DraftTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Version     int        `json:"version"`
	DueDate     time.Time  `json:"dueDate"`
}

// Validate checks the draft's field values.
func (d *DraftTask) Validate() error {
	t := Task{
		Title:    d.Title,
		Status:   d.Status,
		Priority: d.Priority,
		Version:  d.Version,
	}
	return t.Validate()
}

// Open reports whether the task still requires action.
func (t *Task) Open() bool {
	return t.Status != TaskDone
}
