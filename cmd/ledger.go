package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"apdash/internal/clock"
	"apdash/internal/config"
	"apdash/internal/ledger"
	"apdash/internal/sheets"
)

// buildSource creates the ledger source selected by LEDGER_SOURCE.
func buildSource(ctx context.Context, cfg *config.Config) (ledger.Source, error) {
	const op = "buildSource"

	switch cfg.LedgerSource {
	case config.SourceSheets:
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return ledger.NewSheetsSource(svc, cfg.GoogleSheetWorksheet), nil
	case config.SourceCSV:
		src, err := ledger.NewCSVExportSource(cfg.GoogleSheetURL, cfg.FetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return src, nil
	case config.SourceFile:
		return ledger.NewFileSource(cfg.LedgerFile), nil
	}
	return nil, fmt.Errorf("%s: unknown ledger source %q", op, cfg.LedgerSource)
}

// newLedgerCache wires the configured source into a read-through cache.
func newLedgerCache(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*ledger.Cache, error) {
	source, err := buildSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source", source.Name()).
		Dur("ttl", cfg.LedgerCacheTTL).
		Msg("Ledger source configured")

	return ledger.NewCache(source,
		ledger.WithTTL(cfg.LedgerCacheTTL),
		ledger.WithClock(clk),
		ledger.WithFetchTimeout(cfg.FetchTimeout),
		ledger.WithLogger(log),
		ledger.WithReader(ledger.NewReaderWithLogger(log)),
	), nil
}

// reportClock returns the wall clock in the forecast time zone, or a
// fixed date when --today is given.
func reportClock(cfg *config.Config, today string) (clock.Clock, error) {
	loc := cfg.Location()
	if today == "" {
		return clock.System{Location: loc}, nil
	}
	d, err := time.ParseInLocation("2006-01-02", today, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --today date %q, use YYYY-MM-DD: %w", today, err)
	}
	return clock.Fixed(d), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleLedgerError turns ledger failures into messages a user can act on.
func handleLedgerError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Ledger could not be loaded")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("fetching the ledger timed out. Try raising LEDGER_FETCH_TIMEOUT")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("loading the ledger was canceled")
	case errors.Is(err, ledger.ErrMissingColumn):
		return fmt.Errorf("the ledger sheet is missing a required column. Check the header row: %w", err)
	case errors.Is(err, ledger.ErrEmptySheet):
		return fmt.Errorf("the ledger sheet is empty: %w", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "status 403"):
		return fmt.Errorf("access to the spreadsheet was denied. Share it with the service account, " +
			"or publish it for the CSV export")
	case errors.Is(err, ledger.ErrSourceUnavailable):
		return fmt.Errorf("ledger data unavailable: %w", err)
	default:
		return fmt.Errorf("loading the ledger failed: %w", err)
	}
}

// outputJSON writes data as indented JSON to a file or to stdout.
func outputJSON(data interface{}, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal report to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Report written to file")
		return nil
	}

	if _, err := os.Stdout.Write(append(jsonData, '\n')); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
