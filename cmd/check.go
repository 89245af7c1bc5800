package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"apdash/internal/config"
	"apdash/internal/logger"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch the ledger once and report what could not be read",
	Long: `Fetch the ledger from the configured source and print the parse
diagnostics: rows read, rows dropped for a missing vendor or department,
and cells whose date or amount could not be understood.

Exits with an error when the source cannot be reached or the header row
lacks a required column.`,
	Example: `  apdash check
  apdash check -o diagnostics.json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("check")

	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	clk, err := reportClock(cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg.FetchTimeout, log)
	defer cancel()

	snap, err := loadSnapshot(ctx, cfg, clk, log)
	if err != nil {
		return err
	}

	d := snap.Diagnostics
	log.Info().
		Str("source", snap.Source).
		Int("total_rows", d.TotalRows).
		Int("parsed", d.Parsed).
		Int("dropped", d.Dropped).
		Int("malformed_dates", d.MalformedDates).
		Int("malformed_amounts", d.MalformedAmounts).
		Msg("Ledger checked")

	return outputJSON(snap, outputPath, log)
}
