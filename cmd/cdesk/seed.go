package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harlowe/clientdesk/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed [fixture.yaml]",
	Short: "Create demo accounts and tasks for the signed-in user",
	Long: `Create accounts and tasks from a YAML fixture. Without an argument
the built-in demo data set is used.

Fixture format:

  accounts:
    - name: Innovate Corp
      client: John Smith
      notes: Key account.
      tasks:
        - title: Initial Draft of Q3 Report
          description: Compile all departmental data.
          status: inprogress
          priority: high
          version: 3
          dueDate: "2024-08-15"`,
	Args: cobra.MaximumNArgs(1),
	Run: run(func(ctx context.Context, a *app, args []string) error {
		var (
			n   int
			err error
		)
		if len(args) == 1 {
			n, err = seed.LoadFile(ctx, a.ws, args[0])
		} else {
			n, err = seed.LoadDemo(ctx, a.ws)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d accounts\n", n)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
