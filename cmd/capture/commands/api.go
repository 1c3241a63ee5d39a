package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/internal/api"
	"github.com/wonny/solarcapture/internal/api/handlers"
	"github.com/wonny/solarcapture/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the summary API server",
	Long: `Starts the read-only summary API.

Endpoints:
  GET  /health                              - Health check
  GET  /api/summary/total                   - Cross-zone summary
  GET  /api/summary/yearly                  - Per-zone yearly summary
  GET  /api/summary/monthly?country=        - Per-zone monthly summary
  GET  /api/summary/daily?country=&month=   - Per-zone daily summary
  POST /admin/recompute?secret=&mode=       - Trigger a recompute

Example:
  go run ./cmd/capture api
  go run ./cmd/capture api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the recompute scheduler in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Solar Capture API Server ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	summaryHandler := handlers.NewSummaryHandler(a.metrics, a.catalog, a.cache, cfg.API.CacheTTL, a.log)
	adminHandler := handlers.NewAdminHandler(a.controller, cfg.API.AdminSecret, a.log)
	router := api.NewRouter(summaryHandler, adminHandler, a.db, a.log)
	server := api.New(cfg, a.log, router)

	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched, err = newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
