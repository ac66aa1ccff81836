package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/harlowe/clientdesk/internal/model"
	"github.com/harlowe/clientdesk/internal/workspace"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account"},
	Short:   "Manage client accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		accounts := a.ws.Accounts()
		if len(accounts) == 0 {
			fmt.Println("No accounts yet. Create one with: cdesk accounts new")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-24s  %-18s  %-8s  %5s  %5s", "ID", "NAME", "CLIENT", "STATUS", "PERF", "TASKS")))
		for _, acct := range accounts {
			status := activeStyle.Render(string(acct.Status))
			if acct.Status == model.StatusInactive {
				status = inactiveStyle.Render(string(acct.Status))
			}
			fmt.Printf("%-36s  %-24s  %-18s  %-8s  %4d%%  %5d\n",
				acct.ID, truncate(acct.Name, 24), truncate(acct.Client, 18), status, acct.Performance, len(acct.Tasks))
		}
		return nil
	}),
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <account-id>",
	Short: "Show one account and its tasks",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		acct := a.ws.Account(args[0])
		if acct == nil {
			return fmt.Errorf("no account with id %s", args[0])
		}
		fmt.Printf("%s (%s)\n", acct.Name, acct.Status)
		fmt.Printf("Client:       %s\n", acct.Client)
		fmt.Printf("Performance:  %d%%\n", acct.Performance)
		fmt.Printf("Modified:     %s\n", acct.LastModified.Format("2006-01-02 15:04"))
		if acct.Description != nil {
			fmt.Printf("Description:  %s\n", *acct.Description)
		}
		if acct.Notes != nil {
			fmt.Printf("Notes:        %s\n", *acct.Notes)
		}
		if len(acct.Tasks) > 0 {
			fmt.Println("\nTasks:")
			for _, t := range acct.Tasks {
				fmt.Printf("  [%-10s] %-8s v%-2d  %s  (due %s)\n", t.Status, t.Priority, t.Version, t.Title, t.DueDate.Format("2006-01-02"))
			}
		}
		return nil
	}),
}

var accountsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new account",
	Long: `Create a new client account. Without flags an interactive form is
shown. Up to 10 initial tasks can be attached afterwards with
"cdesk tasks add".`,
}

func init() {
	accountsNewCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		name, _ := accountsNewCmd.Flags().GetString("name")
		client, _ := accountsNewCmd.Flags().GetString("client")
		description, _ := accountsNewCmd.Flags().GetString("description")
		notes, _ := accountsNewCmd.Flags().GetString("notes")

		if name == "" || client == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Account name").Value(&name),
				huh.NewInput().Title("Client (account manager)").Value(&client),
				huh.NewText().Title("Description").Lines(2).Value(&description),
				huh.NewText().Title("Notes").Lines(2).Value(&notes),
			))
			if err := form.Run(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}
		}

		input := workspace.CreateAccountInput{Name: name, Client: client}
		if description != "" {
			input.Description = &description
		}
		if notes != "" {
			input.Notes = &notes
		}

		acct, err := a.ws.CreateAccount(ctx, input)
		if err != nil {
			return err
		}
		fmt.Printf("Created account %s (%s), performance %d%%\n", acct.ID, acct.Name, acct.Performance)
		return nil
	})
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <account-id>",
	Short: "Delete an account and all of its tasks",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		id := args[0]
		if err := a.ws.DeleteAccount(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted account %s and its tasks\n", id)
		return nil
	}),
}

var accountsRenameCmd = &cobra.Command{
	Use:   "rename <account-id> <new-name>",
	Short: "Rename an account",
	Long: `Rename an account. Existing tasks keep the old name in their
accountName column; only new tasks pick up the new name.`,
	Args: cobra.ExactArgs(2),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		acct := a.ws.Account(args[0])
		if acct == nil {
			return fmt.Errorf("no account with id %s", args[0])
		}
		acct.Name = args[1]
		updated, err := a.ws.UpdateAccount(ctx, acct)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed account %s to %q\n", updated.ID, updated.Name)
		return nil
	}),
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	accountsNewCmd.Flags().String("name", "", "account name")
	accountsNewCmd.Flags().String("client", "", "client (account manager) name")
	accountsNewCmd.Flags().String("description", "", "optional description")
	accountsNewCmd.Flags().String("notes", "", "optional notes")

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsShowCmd)
	accountsCmd.AddCommand(accountsNewCmd)
	accountsCmd.AddCommand(accountsDeleteCmd)
	accountsCmd.AddCommand(accountsRenameCmd)
	rootCmd.AddCommand(accountsCmd)
}
