package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/harlowe/clientdesk/internal/model"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Manage tasks across accounts",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status",
}

func init() {
	tasksListCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		status, _ := tasksListCmd.Flags().GetString("status")

		tasks := a.ws.Tasks()
		shown := 0
		for _, t := range tasks {
			if status != "" && t.Status != model.TaskStatus(status) {
				continue
			}
			fmt.Printf("%-36s  [%-10s] %-8s v%-2d  %-30s  %s  (due %s)\n",
				t.ID, t.Status, t.Priority, t.Version, truncate(t.Title, 30), truncate(t.AccountName, 20), t.DueDate.Format("2006-01-02"))
			shown++
		}
		if shown == 0 {
			fmt.Println("No tasks")
		}
		return nil
	})
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <account-id>",
	Short: "Attach a new task to an account",
	Long: `Attach a new task to an existing account.

The due date accepts natural language:
  cdesk tasks add acc-id --title "Quarterly review" --due "next friday"
  cdesk tasks add acc-id --title "Send invoice" --due 2026-09-15`,
	Args: cobra.ExactArgs(1),
}

func init() {
	tasksAddCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		title, _ := tasksAddCmd.Flags().GetString("title")
		description, _ := tasksAddCmd.Flags().GetString("description")
		priority, _ := tasksAddCmd.Flags().GetString("priority")
		status, _ := tasksAddCmd.Flags().GetString("status")
		version, _ := tasksAddCmd.Flags().GetInt("version")
		due, _ := tasksAddCmd.Flags().GetString("due")

		dueDate, err := parseDue(due)
		if err != nil {
			return err
		}

		task, err := a.ws.CreateTask(ctx, args[0], model.DraftTask{
			Title:       title,
			Description: description,
			Status:      model.TaskStatus(status),
			Priority:    model.Priority(priority),
			Version:     version,
			DueDate:     dueDate,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added task %s (%s) to %s, due %s\n", task.ID, task.Title, task.AccountName, task.DueDate.Format("2006-01-02"))
		return nil
	}),
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		task := a.ws.Task(args[0])
		if task == nil {
			return fmt.Errorf("no task with id %s", args[0])
		}
		task.Status = model.TaskDone
		if _, err := a.ws.UpdateTask(ctx, task); err != nil {
			return err
		}
		fmt.Printf("Marked %s done\n", task.Title)
		return nil
	}),
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		if err := a.ws.DeleteTask(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	}),
}

// parseDue parses a due date, trying the plain date format first and
// falling back to natural language ("tomorrow", "next friday").
func parseDue(s string) (time.Time, error) {
	if s == "" {
		return time.Now().AddDate(0, 0, 7), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("could not understand due date %q", s)
	}
	return r.Time, nil
}

func init() {
	tasksListCmd.Flags().String("status", "", "filter by status (todo, inprogress, done)")

	tasksAddCmd.Flags().String("title", "", "task title")
	tasksAddCmd.Flags().String("description", "", "task description")
	tasksAddCmd.Flags().String("priority", string(model.PriorityMedium), "priority (low, medium, high)")
	tasksAddCmd.Flags().String("status", string(model.TaskTodo), "status (todo, inprogress, done)")
	tasksAddCmd.Flags().Int("version", 1, "version label (1-10)")
	tasksAddCmd.Flags().String("due", "", "due date (2006-01-02 or natural language; default: one week out)")
	_ = tasksAddCmd.MarkFlagRequired("title")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksDeleteCmd)
	rootCmd.AddCommand(tasksCmd)
}
