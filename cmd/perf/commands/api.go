package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestline/perf/internal/api"
	"github.com/crestline/perf/internal/api/handlers"
	"github.com/crestline/perf/internal/stream"
	"github.com/crestline/perf/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the HTTP API server together with the background scheduler.

Endpoints:
  GET  /health                  - Health check
  GET  /api/statistics          - Performance statistics (?period=ytd|1y|2y|all)
  GET  /api/statistics/history  - Daily metric snapshots (database required)
  POST /api/contact             - Contact form submission
  GET  /ws/statistics           - Live statistics (WebSocket)

Example:
  go run ./cmd/perf api
  go run ./cmd/perf api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port":      cfg.Port,
		"env":       cfg.Env,
		"trades":    cfg.Data.TradesSource,
		"benchmark": cfg.Data.BenchmarkSource,
	}).Info("Initializing API server")

	ctx := context.Background()

	// 3. Wire services (redis and database are optional)
	a := newApp(ctx, cfg, log, true)
	defer a.Close()

	// 4. Live statistics hub, fed by every refresh
	hub := stream.NewHub(a.stats, log)
	a.stats.Subscribe(hub.Broadcast)

	// 5. Handlers and router
	var hist handlers.SnapshotLister
	if a.history != nil {
		hist = a.history
	}

	router := api.NewRouter(api.Handlers{
		Health:     handlers.NewHealthHandler(a.db, a.redis, a.stats),
		Statistics: handlers.NewStatisticsHandler(a.stats, hist, log),
		Contact:    handlers.NewContactHandler(a.contact, cfg.TrustedProxies, log),
		Stream:     hub.ServeWS,
	}, log)

	server := api.New(cfg, log, router)

	// 6. Warm the cache. Failure is not fatal: requests get fallback statistics.
	if st, err := a.stats.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial data load failed")
	} else {
		log.WithFields(map[string]interface{}{
			"trades":       st.Metrics.TotalTrades,
			"skipped_rows": st.SkippedRows,
		}).Info("Initial data loaded")
	}

	// 7. Scheduler
	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if cfg.Scheduler.Enabled {
		sched.Start()
	}

	// 8. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	log.Info("Shutting down server...")

	if cfg.Scheduler.Enabled {
		sched.Stop()
	}
	hub.Close()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
