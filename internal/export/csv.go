// Package export flattens snapshot rows into CSV. Pure formatting: it
// reads the published snapshot types and has no store dependency.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/harlowe/clientdesk/internal/model"
)

// WriteAccounts writes one row per account with the fields the accounts
// page exports. Optional fields render as empty strings in CSV; absence
// is not distinguishable in this format and does not need to be.
func WriteAccounts(w io.Writer, accounts []*model.Account) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "name", "client", "status", "performance", "description", "notes", "lastModified"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, a := range accounts {
		row := []string{
			a.ID,
			a.Name,
			a.Client,
			string(a.Status),
			strconv.Itoa(a.Performance),
			optional(a.Description),
			optional(a.Notes),
			a.LastModified.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write account row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteTasks writes one row per task.
func WriteTasks(w io.Writer, tasks []*model.Task) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "title", "account", "status", "priority", "version", "dueDate"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, t := range tasks {
		row := []string{
			t.ID,
			t.Title,
			t.AccountName,
			string(t.Status),
			string(t.Priority),
			strconv.Itoa(t.Version),
			t.DueDate.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write task row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
