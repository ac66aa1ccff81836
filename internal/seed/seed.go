// Package seed loads demo fixtures from YAML and creates them through
// the synchronization layer, so seeded data obeys the same rules as
// user-created data.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harlowe/clientdesk/internal/model"
	"github.com/harlowe/clientdesk/internal/workspace"
)

type fixtureTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
	Version     int    `yaml:"version"`
	DueDate     string `yaml:"dueDate"` // 2006-01-02
}

type fixtureAccount struct {
	Name        string        `yaml:"name"`
	Client      string        `yaml:"client"`
	Description *string       `yaml:"description,omitempty"`
	Notes       *string       `yaml:"notes,omitempty"`
	Tasks       []fixtureTask `yaml:"tasks,omitempty"`
}

type fixture struct {
	Accounts []fixtureAccount `yaml:"accounts"`
}

// LoadFile creates every account in the YAML fixture through the
// workspace. Returns the number of accounts created.
func LoadFile(ctx context.Context, ws *workspace.Workspace, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Load(ctx, ws, raw)
}

// Load creates every account in the YAML document through the workspace.
func Load(ctx context.Context, ws *workspace.Workspace, raw []byte) (int, error) {
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return 0, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}

	created := 0
	for _, fa := range fx.Accounts {
		input := workspace.CreateAccountInput{
			Name:        fa.Name,
			Client:      fa.Client,
			Description: fa.Description,
			Notes:       fa.Notes,
		}
		for _, ft := range fa.Tasks {
			due, err := time.Parse("2006-01-02", ft.DueDate)
			if err != nil {
				return created, fmt.Errorf("account %q: bad due date %q: %w", fa.Name, ft.DueDate, err)
			}
			input.Tasks = append(input.Tasks, model.DraftTask{
				Title:       ft.Title,
				Description: ft.Description,
				Status:      model.TaskStatus(ft.Status),
				Priority:    model.Priority(ft.Priority),
				Version:     ft.Version,
				DueDate:     due,
			})
		}
		if _, err := ws.CreateAccount(ctx, input); err != nil {
			return created, fmt.Errorf("failed to seed account %q: %w", fa.Name, err)
		}
		created++
	}
	return created, nil
}
