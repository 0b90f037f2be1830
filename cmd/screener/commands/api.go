package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/openscreen/internal/api"
	"github.com/wonny/openscreen/internal/api/handlers"
	"github.com/wonny/openscreen/internal/scheduler"
	"github.com/wonny/openscreen/internal/scheduler/jobs"
	"github.com/wonny/openscreen/internal/screening"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET    /health                          - Health check
  GET    /api/modes                       - Screening modes and pipeline stages
  POST   /api/datasets                    - Upload a CSV (multipart "file" or raw body)
  GET    /api/datasets                    - List uploads
  GET    /api/datasets/{id}               - Current view (?offset=&limit=)
  DELETE /api/datasets/{id}               - Drop an upload
  POST   /api/datasets/{id}/screen        - Run a mode {"mode": "...", "min_gain_pct": 0}
  POST   /api/datasets/{id}/clear         - Restore the full view
  GET    /api/datasets/{id}/export.csv    - Download the current view
  GET    /api/stream                      - WebSocket of session events

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Config, logger, profile, pipeline
	a, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}
	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port":       a.cfg.Port,
		"env":        a.cfg.Env,
		"profile_id": a.snapshot.ProfileID,
	}).Info("Initializing API server")

	// 2. Sessions and event stream
	registry := screening.NewRegistry(a.engine)
	hub := handlers.NewStreamHub(log)
	go hub.Run()
	defer hub.Stop()
	registry.Subscribe(hub.Publish)

	// 3. Idle upload cleanup
	sched := scheduler.New(log, scheduler.DefaultOptions())
	if err := sched.AddJob(jobs.NewSessionCleanupJob(registry, a.cfg.API.SessionTTL, log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// 4. Handlers and router
	datasetHandler := handlers.NewDatasetHandler(registry, a.reader, a.defaultRequest(), a.cfg.API.MaxUploadBytes(), log)
	healthHandler := handlers.NewHealthHandler(registry, hub, a.snapshot.ProfileID, a.snapshot.ProfileHash, a.cfg.API.SessionTTL)
	router := api.NewRouter(datasetHandler, healthHandler, hub, a.cfg.API, log)

	// 5. Server with graceful shutdown
	server := api.New(a.cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
