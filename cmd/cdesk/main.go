// Command cdesk is the clientdesk CLI: client accounts and their tasks
// over an embedded document store, with an optional live dashboard.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harlowe/clientdesk/internal/blob"
	"github.com/harlowe/clientdesk/internal/config"
	"github.com/harlowe/clientdesk/internal/identity"
	"github.com/harlowe/clientdesk/internal/session"
	"github.com/harlowe/clientdesk/internal/store/sqlite"
	"github.com/harlowe/clientdesk/internal/workspace"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "cdesk",
	Short:         "Manage client accounts and their tasks",
	Long: `cdesk tracks client accounts and the tasks attached to them.

Accounts and tasks are stored in an embedded document database. Sign in
once with "cdesk login" (or "cdesk signup"); the session is shared by
later invocations until "cdesk logout".

Common commands:
  cdesk accounts list            Show all accounts
  cdesk accounts new             Create an account (interactive form)
  cdesk tasks add --account ID   Attach a task to an account
  cdesk serve                    Start the live dashboard server
  cdesk export accounts          Write accounts to CSV`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./clientdesk.yaml or ~/.clientdesk/clientdesk.yaml)")
}

// app bundles the wired application for CLI commands.
type app struct {
	cfg      *config.Config
	viper    *viper.Viper
	store    *sqlite.Store
	provider *identity.Local
	ctrl     *session.Controller
	ws       *workspace.Workspace
}

// openApp loads config, opens the store, and resumes any persisted
// session so the workspace is hydrated before the command body runs.
func openApp(ctx context.Context) (*app, error) {
	cfg, v, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	provider := identity.NewLocal(st)
	ws := workspace.New(workspace.Deps{
		Store:    st,
		Blob:     blob.NewDir(cfg.MediaDir(), cfg.MediaPrefix),
		Provider: provider,
	})
	ctrl := session.NewController(provider, ws, nil)
	ctrl.Start(ctx)

	if err := provider.Resume(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{cfg: cfg, viper: v, store: st, provider: provider, ctrl: ctrl, ws: ws}, nil
}

func (a *app) close() {
	a.ctrl.Stop()
	_ = a.store.Close()
}

// run wires the app for a command body; errors print to stderr with a
// non-zero exit.
func run(body func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if err := body(ctx, a, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
