package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harlowe/clientdesk/internal/export"
	"github.com/harlowe/clientdesk/internal/model"
	"github.com/harlowe/clientdesk/internal/workspace"
)

// snapshotPayload is the full published view in one response.
type snapshotPayload struct {
	User     *model.User      `json:"user"`
	Accounts []*model.Account `json:"accounts"`
	Tasks    []*model.Task    `json:"tasks"`
	Stats    workspace.Stats  `json:"stats"`
}

// createAccountRequest mirrors the account form: account fields plus
// bundled draft tasks.
type createAccountRequest struct {
	Name        string    `json:"name"`
	Client      string    `json:"client"`
	Description *string   `json:"description,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Tasks       []draftIn `json:"tasks,omitempty"`
}

type draftIn struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Version     int    `json:"version"`
	DueDate     string `json:"dueDate"` // 2006-01-02
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotPayload{
		User:     s.ws.User(),
		Accounts: s.ws.Accounts(),
		Tasks:    s.ws.Tasks(),
		Stats:    s.ws.Stats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Stats())
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Accounts())
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account := s.ws.Account(chi.URLParam(r, "id"))
	if account == nil {
		writeError(w, http.StatusNotFound, errors.New("account not found"))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	input := workspace.CreateAccountInput{
		Name:        req.Name,
		Client:      req.Client,
		Description: req.Description,
		Notes:       req.Notes,
	}
	for _, d := range req.Tasks {
		due, err := time.Parse("2006-01-02", d.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		input.Tasks = append(input.Tasks, model.DraftTask{
			Title:       d.Title,
			Description: d.Description,
			Status:      model.TaskStatus(d.Status),
			Priority:    model.Priority(d.Priority),
			Version:     d.Version,
			DueDate:     due,
		})
	}

	account, err := s.ws.CreateAccount(r.Context(), input)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var account model.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account.ID = chi.URLParam(r, "id")

	updated, err := s.ws.UpdateAccount(r.Context(), &account)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.ws.Tasks()

	// Optional status filter, e.g. /api/tasks?status=todo&status=inprogress
	statuses := r.URL.Query()["status"]
	if len(statuses) > 0 {
		allowed := make(map[model.TaskStatus]bool, len(statuses))
		for _, st := range statuses {
			allowed[model.TaskStatus(st)] = true
		}
		filtered := tasks[:0]
		for _, t := range tasks {
			if allowed[t.Status] {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	task.ID = chi.URLParam(r, "id")

	updated, err := s.ws.UpdateTask(r.Context(), &task)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportAccounts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="all_accounts.csv"`)
	if err := export.WriteAccounts(w, s.ws.Accounts()); err != nil {
		s.logger.Printf("CSV export failed: %v", err)
	}
}

func (s *Server) handleExportTasks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="all_tasks.csv"`)
	if err := export.WriteTasks(w, s.ws.Tasks()); err != nil {
		s.logger.Printf("CSV export failed: %v", err)
	}
}

// writeWorkspaceError maps the core's error kinds onto HTTP statuses.
func writeWorkspaceError(w http.ResponseWriter, err error) {
	var verr *workspace.ValidationError
	var perr *workspace.PartialFailureError
	switch {
	case errors.Is(err, workspace.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err)
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &perr):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
