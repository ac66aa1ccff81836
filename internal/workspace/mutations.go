package workspace

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path"

	"github.com/google/uuid"

	"github.com/harlowe/clientdesk/internal/model"
	"github.com/harlowe/clientdesk/internal/store"
)

// CreateAccountInput carries the fields for a new account plus up to
// MaxDraftTasks bundled tasks.
type CreateAccountInput struct {
	Name        string
	Client      string
	Description *string
	Notes       *string
	Tasks       []model.DraftTask
}

// CreateAccount persists a new account and its bundled tasks as one
// atomic batch. Either the account document and every task document are
// written, or none are; the snapshot changes only after the commit.
//
// The account is created active with a random performance score in
// [60,100] and lastModified set to now. Each bundled task gets the new
// account's id, a copy of its name, and the caller's user id.
func (w *Workspace) CreateAccount(ctx context.Context, input CreateAccountInput) (*model.Account, error) {
	user := w.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	if len(input.Tasks) > model.MaxDraftTasks {
		return nil, &ValidationError{
			Field:  "tasks",
			Reason: fmt.Sprintf("at most %d tasks may be bundled into a new account (got %d)", model.MaxDraftTasks, len(input.Tasks)),
		}
	}

	account := &model.Account{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Name:         input.Name,
		Client:       input.Client,
		Status:       model.StatusActive,
		Performance:  60 + rand.IntN(41),
		Description:  input.Description,
		Notes:        input.Notes,
		LastModified: w.now(),
	}
	if err := account.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	tasks := make([]*model.Task, 0, len(input.Tasks))
	for i, draft := range input.Tasks {
		if err := draft.Validate(); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("tasks[%d]", i), Reason: err.Error()}
		}
		tasks = append(tasks, &model.Task{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			AccountID:   account.ID,
			AccountName: account.Name,
			Title:       draft.Title,
			Description: draft.Description,
			Status:      draft.Status,
			Priority:    draft.Priority,
			Version:     draft.Version,
			DueDate:     draft.DueDate,
		})
	}

	batch := w.store.Batch()
	accountFields, err := accountFields(account)
	if err != nil {
		return nil, err
	}
	batch.Set(model.CollectionAccounts, account.ID, accountFields)
	for _, task := range tasks {
		fields, err := store.Fields(task)
		if err != nil {
			return nil, err
		}
		batch.Set(model.CollectionTasks, task.ID, fields)
	}
	if err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", account.Name, err)
	}

	w.mu.Lock()
	w.accounts[account.ID] = account
	for _, task := range tasks {
		w.tasks[task.ID] = task
	}
	result := w.cloneAccount(account)
	w.mu.Unlock()

	w.logger.Printf("Created account %s (%s) with %d tasks", account.ID, account.Name, len(tasks))
	w.notify(Event{Type: EventAccountChange, Action: "created", ID: account.ID})
	return result, nil
}

// UpdateAccount persists a complete account value. The derived task list
// is never written, and lastModified is forced to the current time no
// matter what the caller supplied. Existing tasks keep their copied
// accountName even when the account is renamed.
func (w *Workspace) UpdateAccount(ctx context.Context, updated *model.Account) (*model.Account, error) {
	user := w.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if err := updated.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	account := *updated
	account.UserID = user.ID
	account.LastModified = w.now()

	fields, err := accountFields(&account)
	if err != nil {
		return nil, err
	}
	if err := w.store.Update(ctx, model.CollectionAccounts, account.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", account.ID, err)
	}

	w.mu.Lock()
	stored := account
	stored.Tasks = nil
	w.accounts[account.ID] = &stored
	result := w.cloneAccount(&stored)
	w.mu.Unlock()

	w.notify(Event{Type: EventAccountChange, Action: "updated", ID: account.ID})
	return result, nil
}

// DeleteAccount removes the account document, then queries and deletes
// its tasks as one batch. The two phases are each atomic but not atomic
// with each other: a failure after the first returns a
// PartialFailureError and leaves orphaned task documents behind.
func (w *Workspace) DeleteAccount(ctx context.Context, accountID string) error {
	user := w.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	if err := w.store.Delete(ctx, model.CollectionAccounts, accountID); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", accountID, err)
	}

	if err := w.deleteAccountTasks(ctx, accountID, user.ID); err != nil {
		return &PartialFailureError{
			Op:        "delete account",
			Completed: "account document deleted",
			Failed:    "task cascade was not applied",
			Err:       err,
		}
	}

	w.mu.Lock()
	delete(w.accounts, accountID)
	for id, task := range w.tasks {
		if task.AccountID == accountID {
			delete(w.tasks, id)
		}
	}
	w.mu.Unlock()

	w.logger.Printf("Deleted account %s and its tasks", accountID)
	w.notify(Event{Type: EventAccountChange, Action: "deleted", ID: accountID})
	return nil
}

func (w *Workspace) deleteAccountTasks(ctx context.Context, accountID, userID string) error {
	docs, err := w.store.Query(ctx, model.CollectionTasks,
		store.Eq("accountId", accountID),
		store.Eq("userId", userID))
	if err != nil {
		return fmt.Errorf("failed to query tasks for account %s: %w", accountID, err)
	}
	if len(docs) == 0 {
		return nil
	}

	batch := w.store.Batch()
	for _, doc := range docs {
		batch.Delete(model.CollectionTasks, doc.ID)
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete %d tasks for account %s: %w", len(docs), accountID, err)
	}
	return nil
}

// CreateTask attaches a single new task to an existing account. The
// task copies the account's current name into accountName; that copy is
// not maintained on later renames.
func (w *Workspace) CreateTask(ctx context.Context, accountID string, draft model.DraftTask) (*model.Task, error) {
	user := w.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if err := draft.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	account := w.Account(accountID)
	if account == nil {
		return nil, &ValidationError{Field: "accountId", Reason: "no such account"}
	}

	task := &model.Task{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		AccountID:   account.ID,
		AccountName: account.Name,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		Priority:    draft.Priority,
		Version:     draft.Version,
		DueDate:     draft.DueDate,
	}

	fields, err := store.Fields(task)
	if err != nil {
		return nil, err
	}
	if err := w.store.Set(ctx, model.CollectionTasks, task.ID, fields, false); err != nil {
		return nil, fmt.Errorf("failed to create task %q: %w", task.Title, err)
	}

	w.mu.Lock()
	w.tasks[task.ID] = task
	result := *task
	w.mu.Unlock()

	w.notify(Event{Type: EventTaskChange, Action: "created", ID: task.ID})
	return &result, nil
}

// UpdateTask persists a complete task value and replaces the snapshot
// entry wholesale. A task's owning account is fixed at creation; moving
// it to another account is rejected.
func (w *Workspace) UpdateTask(ctx context.Context, updated *model.Task) (*model.Task, error) {
	user := w.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if err := updated.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	task := *updated
	task.UserID = user.ID

	w.mu.RLock()
	existing, ok := w.tasks[task.ID]
	if ok && existing.AccountID != task.AccountID {
		w.mu.RUnlock()
		return nil, &ValidationError{Field: "accountId", Reason: "a task cannot move to another account"}
	}
	w.mu.RUnlock()

	fields, err := store.Fields(&task)
	if err != nil {
		return nil, err
	}
	if err := w.store.Update(ctx, model.CollectionTasks, task.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}

	w.mu.Lock()
	w.tasks[task.ID] = &task
	w.mu.Unlock()

	w.notify(Event{Type: EventTaskChange, Action: "updated", ID: task.ID})
	result := task
	return &result, nil
}

// DeleteTask removes a single task. No cascading effects.
func (w *Workspace) DeleteTask(ctx context.Context, taskID string) error {
	if !w.Authenticated() {
		return ErrNotAuthenticated
	}

	if err := w.store.Delete(ctx, model.CollectionTasks, taskID); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}

	w.mu.Lock()
	delete(w.tasks, taskID)
	w.mu.Unlock()

	w.notify(Event{Type: EventTaskChange, Action: "deleted", ID: taskID})
	return nil
}

// UpdateProfile changes the display name and optionally the avatar. A
// present avatar is uploaded to the content store first and its public
// URL becomes the new reference; otherwise the prior reference is kept.
//
// The identity provider's profile record and the user document are both
// written with the same pair. The two writes are not transactional: a
// failure after the provider write returns a PartialFailureError, and
// the in-memory user changes only after both succeed.
func (w *Workspace) UpdateProfile(ctx context.Context, name string, avatarName string, avatarData []byte) error {
	user := w.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	if name == "" {
		return &ValidationError{Field: "name", Reason: "display name is required"}
	}

	avatarURL := user.Avatar
	if len(avatarData) > 0 {
		handle, err := w.blob.Upload(ctx, path.Join("avatars", user.ID, avatarName), avatarData)
		if err != nil {
			return fmt.Errorf("failed to upload avatar: %w", err)
		}
		avatarURL = w.blob.PublicURL(handle)
	}

	if err := w.provider.UpdateProfile(ctx, name, avatarURL); err != nil {
		return fmt.Errorf("failed to update identity profile: %w", err)
	}

	err := w.store.Set(ctx, model.CollectionUsers, user.ID, map[string]any{
		"name":   name,
		"avatar": avatarURL,
	}, true)
	if err != nil {
		return &PartialFailureError{
			Op:        "update profile",
			Completed: "identity provider profile updated",
			Failed:    "user record was not updated",
			Err:       err,
		}
	}

	w.mu.Lock()
	if w.user != nil {
		w.user.Name = name
		w.user.Avatar = avatarURL
	}
	w.mu.Unlock()

	w.notify(Event{Type: EventProfileChange, Action: "updated", ID: user.ID})
	return nil
}

// accountFields flattens an account for persistence with the derived
// task list stripped; tasks are never stored as a field of the account.
func accountFields(account *model.Account) (map[string]any, error) {
	stored := *account
	stored.Tasks = nil
	fields, err := store.Fields(&stored)
	if err != nil {
		return nil, err
	}
	delete(fields, "tasks")
	return fields, nil
}
