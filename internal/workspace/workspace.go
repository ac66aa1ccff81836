// Package workspace is the synchronization layer between the document
// store and the in-memory snapshot the view surfaces read.
//
// One Workspace exists per signed-in user. It is the sole writer of the
// snapshot: every user-facing mutation goes through it, is persisted to
// the store first, and only then updates the snapshot. Reads never hit
// the store; they serve the last published snapshot.
//
// The accounts and tasks collections have no referential integrity at
// the store level. The workspace maintains the derived pieces itself:
// each account's task list is rebuilt by joining on accountId, and a
// task's accountName is copied from the account once at creation and
// deliberately left stale on rename.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/harlowe/clientdesk/internal/blob"
	"github.com/harlowe/clientdesk/internal/identity"
	"github.com/harlowe/clientdesk/internal/model"
	"github.com/harlowe/clientdesk/internal/store"
)

// EventType classifies snapshot change notifications.
type EventType string

const (
	// EventHydrated indicates a full snapshot load completed.
	EventHydrated EventType = "hydrated"
	// EventAccountChange indicates an account was created, updated, or deleted.
	EventAccountChange EventType = "account_change"
	// EventTaskChange indicates a task was created, updated, or deleted.
	EventTaskChange EventType = "task_change"
	// EventCleared indicates the snapshot was emptied on sign-out.
	EventCleared EventType = "cleared"
	// EventProfileChange indicates the user profile was updated.
	EventProfileChange EventType = "profile_change"
)

// Event describes one published snapshot change.
type Event struct {
	Type   EventType `json:"type"`
	Action string    `json:"action,omitempty"` // created, updated, deleted
	ID     string    `json:"id,omitempty"`
}

// Observer receives snapshot change events after they are published.
type Observer func(Event)

// Deps are the collaborators a Workspace writes through.
type Deps struct {
	Store    store.Store
	Blob     blob.Store
	Provider identity.Provider

	// Logger defaults to a stderr logger.
	Logger *log.Logger

	// Now is the clock used for lastModified stamps. Defaults to time.Now.
	Now func() time.Time
}

// Workspace owns the in-memory snapshot for one user session.
type Workspace struct {
	store    store.Store
	blob     blob.Store
	provider identity.Provider
	logger   *log.Logger
	now      func() time.Time

	mu       sync.RWMutex
	user     *model.User
	accounts map[string]*model.Account
	tasks    map[string]*model.Task
	observer Observer
}

// New creates a workspace with an empty snapshot. No user is signed in
// until SignIn is called.
func New(deps Deps) *Workspace {
	if deps.Logger == nil {
		deps.Logger = log.New(os.Stderr, "[workspace] ", log.LstdFlags)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Workspace{
		store:    deps.Store,
		blob:     deps.Blob,
		provider: deps.Provider,
		logger:   deps.Logger,
		now:      deps.Now,
		accounts: make(map[string]*model.Account),
		tasks:    make(map[string]*model.Task),
	}
}

// SetObserver registers the single change observer (the dashboard
// broadcaster). Pass nil to remove it.
func (w *Workspace) SetObserver(obs Observer) {
	w.mu.Lock()
	w.observer = obs
	w.mu.Unlock()
}

// SignIn establishes the session for an authenticated identity: the user
// document is loaded (or created on first sign-in) and the snapshot is
// hydrated. If hydration fails no partial snapshot is published.
func (w *Workspace) SignIn(ctx context.Context, ident *identity.Identity) error {
	user, err := w.ensureUser(ctx, ident)
	if err != nil {
		return err
	}

	accounts, tasks, err := w.load(ctx, user.ID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.user = user
	w.accounts = accounts
	w.tasks = tasks
	w.mu.Unlock()

	w.logger.Printf("Hydrated snapshot for %s: %d accounts, %d tasks", user.Email, len(accounts), len(tasks))
	w.notify(Event{Type: EventHydrated})
	return nil
}

// SignOut clears the snapshot. It is safe to call on an already empty
// workspace.
func (w *Workspace) SignOut() {
	w.mu.Lock()
	w.user = nil
	w.accounts = make(map[string]*model.Account)
	w.tasks = make(map[string]*model.Task)
	w.mu.Unlock()

	w.logger.Printf("Cleared snapshot")
	w.notify(Event{Type: EventCleared})
}

// ensureUser fetches the user document, creating it from the identity on
// first sign-in.
func (w *Workspace) ensureUser(ctx context.Context, ident *identity.Identity) (*model.User, error) {
	doc, err := w.store.Get(ctx, model.CollectionUsers, ident.ID)
	if err == nil {
		var user model.User
		if err := doc.Decode(&user); err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user := &model.User{
		ID:     ident.ID,
		Name:   ident.DisplayName,
		Email:  ident.Email,
		Avatar: ident.AvatarURL,
	}
	if user.Name == "" {
		user.Name = "New User"
	}
	if user.Avatar == "" {
		user.Avatar = "/default-avatar.png"
	}

	fields, err := store.Fields(user)
	if err != nil {
		return nil, err
	}
	if err := w.store.Set(ctx, model.CollectionUsers, user.ID, fields, false); err != nil {
		return nil, fmt.Errorf("failed to create user record: %w", err)
	}
	return user, nil
}

// load runs the two collection queries concurrently and joins the results
// in a single pass. Either query failing fails the whole load.
func (w *Workspace) load(ctx context.Context, userID string) (map[string]*model.Account, map[string]*model.Task, error) {
	var (
		accountDocs, taskDocs []store.Document
		accountErr, taskErr   error
		wg                    sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		accountDocs, accountErr = w.store.Query(ctx, model.CollectionAccounts, store.Eq("userId", userID))
	}()
	go func() {
		defer wg.Done()
		taskDocs, taskErr = w.store.Query(ctx, model.CollectionTasks, store.Eq("userId", userID))
	}()
	wg.Wait()

	if accountErr != nil {
		return nil, nil, fmt.Errorf("failed to load accounts: %w", accountErr)
	}
	if taskErr != nil {
		return nil, nil, fmt.Errorf("failed to load tasks: %w", taskErr)
	}

	tasks := make(map[string]*model.Task, len(taskDocs))
	byAccount := make(map[string][]*model.Task)
	for _, doc := range taskDocs {
		var task model.Task
		if err := doc.Decode(&task); err != nil {
			return nil, nil, err
		}
		task.ID = doc.ID
		tasks[task.ID] = &task
		byAccount[task.AccountID] = append(byAccount[task.AccountID], &task)
	}

	accounts := make(map[string]*model.Account, len(accountDocs))
	for _, doc := range accountDocs {
		var account model.Account
		if err := doc.Decode(&account); err != nil {
			return nil, nil, err
		}
		account.ID = doc.ID
		account.Tasks = nil
		for _, task := range byAccount[account.ID] {
			if task.UserID == account.UserID {
				account.Tasks = append(account.Tasks, task)
			}
		}
		accounts[account.ID] = &account
	}

	return accounts, tasks, nil
}

// User returns the signed-in user's profile, or nil.
func (w *Workspace) User() *model.User {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.user == nil {
		return nil
	}
	u := *w.user
	return &u
}

// Authenticated reports whether a user session is established.
func (w *Workspace) Authenticated() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.user != nil
}

// Account returns one account with its derived task list, or nil.
func (w *Workspace) Account(id string) *model.Account {
	w.mu.RLock()
	defer w.mu.RUnlock()
	account, ok := w.accounts[id]
	if !ok {
		return nil
	}
	return w.cloneAccount(account)
}

// Accounts returns every account with derived task lists attached,
// sorted by name.
func (w *Workspace) Accounts() []*model.Account {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*model.Account, 0, len(w.accounts))
	for _, account := range w.accounts {
		out = append(out, w.cloneAccount(account))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Task returns one task, or nil.
func (w *Workspace) Task(id string) *model.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()
	task, ok := w.tasks[id]
	if !ok {
		return nil
	}
	t := *task
	return &t
}

// Tasks returns every task, sorted by due date then title.
func (w *Workspace) Tasks() []*model.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*model.Task, 0, len(w.tasks))
	for _, task := range w.tasks {
		t := *task
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// Stats are the dashboard aggregates derived from the snapshot. They are
// computed on read and never persisted.
type Stats struct {
	TotalAccounts  int              `json:"totalAccounts"`
	TotalTasks     int              `json:"totalTasks"`
	OpenTasks      int              `json:"openTasks"`
	CompletedTasks int              `json:"completedTasks"`
	Progress       int              `json:"progress"` // percent of tasks done
	LastModified   []*model.Account `json:"lastModified"`
}

// Stats computes the dashboard aggregates: account and task totals, open
// versus completed counts, percent progress, and the three most recently
// modified accounts.
func (w *Workspace) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Stats{
		TotalAccounts: len(w.accounts),
		TotalTasks:    len(w.tasks),
	}
	for _, task := range w.tasks {
		if task.Open() {
			s.OpenTasks++
		} else {
			s.CompletedTasks++
		}
	}
	if s.TotalTasks > 0 {
		s.Progress = int(float64(s.CompletedTasks)/float64(s.TotalTasks)*100 + 0.5)
	}

	recent := make([]*model.Account, 0, len(w.accounts))
	for _, account := range w.accounts {
		recent = append(recent, account)
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].LastModified.After(recent[j].LastModified)
	})
	if len(recent) > 3 {
		recent = recent[:3]
	}
	for _, account := range recent {
		s.LastModified = append(s.LastModified, w.cloneAccount(account))
	}
	return s
}

// cloneAccount copies an account and rebuilds its derived task list from
// the flat task map. Callers must hold at least the read lock.
func (w *Workspace) cloneAccount(account *model.Account) *model.Account {
	out := *account
	out.Tasks = nil
	for _, task := range w.tasks {
		if task.AccountID == account.ID && task.UserID == account.UserID {
			t := *task
			out.Tasks = append(out.Tasks, &t)
		}
	}
	sort.Slice(out.Tasks, func(i, j int) bool { return out.Tasks[i].ID < out.Tasks[j].ID })
	return &out
}

// notify delivers an event to the observer, outside the lock.
func (w *Workspace) notify(ev Event) {
	w.mu.RLock()
	obs := w.observer
	w.mu.RUnlock()
	if obs != nil {
		obs(ev)
	}
}
