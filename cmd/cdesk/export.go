package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harlowe/clientdesk/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <accounts|tasks>",
	Short: "Write accounts or tasks to a CSV file",
	Args:  cobra.ExactArgs(1),
}

func init() {
	exportCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		out, _ := exportCmd.Flags().GetString("out")

		var write func(f *os.File) error
		switch args[0] {
		case "accounts":
			if out == "" {
				out = "all_accounts.csv"
			}
			write = func(f *os.File) error { return export.WriteAccounts(f, a.ws.Accounts()) }
		case "tasks":
			if out == "" {
				out = "all_tasks.csv"
			}
			write = func(f *os.File) error { return export.WriteTasks(f, a.ws.Tasks()) }
		default:
			return fmt.Errorf("unknown export target %q (want accounts or tasks)", args[0])
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()

		if err := write(f); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	})
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "output file (default: all_<target>.csv)")
	rootCmd.AddCommand(exportCmd)
}
