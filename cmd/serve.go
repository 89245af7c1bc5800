package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apdash/internal/config"
	"apdash/internal/logger"
	"apdash/internal/scheduler"
	"apdash/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger reports as a JSON HTTP API",
	Long: `Start the HTTP API used by the dashboard front end.

The ledger is fetched on the first request and kept for LEDGER_CACHE_TTL.
A background job re-fetches it on REFRESH_SCHEDULE, and POST
/api/ledger/refresh forces a reload at any time.

Environment variables:
  LEDGER_SOURCE - sheets, csv (default) or file
  GOOGLE_SHEET_URL - spreadsheet URL (sheets and csv sources)
  GOOGLE_SHEET_WORKSHEET - worksheet holding the ledger (sheets source)
  LEDGER_FILE - path of a CSV export (file source)
  HTTP_PORT - listen port (default 8080)
  REFRESH_SCHEDULE - cron schedule of the refresh job, empty disables it`,
	Example: `  # Serve on the configured port
  apdash serve

  # Serve a local export on port 9000
  LEDGER_SOURCE=file LEDGER_FILE=ledger.csv apdash serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Listen port (default: HTTP_PORT)")
	serveCmd.Flags().Bool("warm", true, "Load the ledger once before accepting requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetInt("port")
	warm, _ := cmd.Flags().GetBool("warm")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port == 0 {
		port = cfg.HTTPPort
	}

	clk, err := reportClock(cfg, "")
	if err != nil {
		return err
	}

	cache, err := newLedgerCache(context.Background(), cfg, clk, logger.WithComponent("ledger"))
	if err != nil {
		return fmt.Errorf("failed to configure ledger source: %w", err)
	}

	if warm {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		if _, err := cache.Load(ctx); err != nil {
			// The API answers 503 until a later load succeeds
			log.Warn().Err(err).Msg("Initial ledger load failed")
		}
		cancel()
	}

	sched := scheduler.New(logger.GetLogger())
	if cfg.RefreshSchedule != "" {
		job := scheduler.NewLedgerRefreshJob(logger.GetLogger(), cache, cfg.FetchTimeout)
		if err := sched.AddJob(cfg.RefreshSchedule, job); err != nil {
			return fmt.Errorf("failed to register ledger refresh: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:        port,
		Log:         logger.GetLogger(),
		Ledger:      cache,
		Clock:       clk,
		Departments: cfg.DepartmentOrder,
		DevMode:     cfg.DevMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Info().
		Int("port", port).
		Str("source", cache.SourceName()).
		Str("refresh_schedule", cfg.RefreshSchedule).
		Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
