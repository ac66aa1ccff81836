package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harlowe/clientdesk/internal/config"
	"github.com/harlowe/clientdesk/internal/dashboard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live dashboard server",
	Long: `Start the dashboard HTTP server for the signed-in session.

Endpoints:
  /api/snapshot                 Full snapshot (user, accounts, tasks, stats)
  /api/accounts, /api/tasks     Collection reads and mutations
  /api/export/accounts.csv      CSV download
  /ws                           WebSocket stream of snapshot changes
  /health                       Health check

Changes made through the CLI or the API are broadcast to every connected
WebSocket client. The config file is watched; a port change requires a
restart but data paths apply live.`,
}

func init() {
	serveCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		port, _ := serveCmd.Flags().GetInt("port")
		if port == 0 {
			port = a.cfg.Port
		}

		logger := log.New(os.Stderr, "[serve] ", log.LstdFlags)
		if a.cfg.LogFile != "" {
			logger = log.New(&lumberjack.Logger{
				Filename:   a.cfg.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
			}, "[serve] ", log.LstdFlags)
		}

		server := dashboard.NewServer(a.ctrl, &dashboard.Config{
			Port:        port,
			MediaDir:    a.cfg.MediaDir(),
			MediaPrefix: a.cfg.MediaPrefix,
			Logger:      logger,
		})
		if err := server.Start(); err != nil {
			return err
		}

		if v := a.viper; v != nil {
			config.Watch(v, func(cfg *config.Config) {
				logger.Printf("Config reloaded (data_dir=%s)", cfg.DataDir)
			})
		}

		fmt.Printf("Dashboard listening on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-sigCtx.Done()

		fmt.Println("\nShutting down...")
		return server.Stop()
	})
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}
