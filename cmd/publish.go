package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"apdash/internal/config"
	"apdash/internal/logger"
	"apdash/internal/payments"
	"apdash/internal/sheets"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write the payment forecast to a tab of the spreadsheet",
	Long: `Compute this week's payment forecast and write it to a worksheet of the
ledger spreadsheet. The tab is created when missing and replaced otherwise;
the header row is set in bold.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL of the ledger`,
	Example: `  # Replace the "Forecast" tab with the invoices due by Sunday
  apdash publish

  # Write every outstanding invoice with its expected payment date
  apdash publish --all --sheet "Outstanding"

  # Show what would be written
  apdash publish --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

var forecastHeaders = []string{
	"Department", "Vendor", "Invoice", "Invoice Date", "Invoice Amount", "Paid Amount",
	"Outstanding", "Median Lag (days)", "Expected Payment", "Cumulative Outstanding",
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("sheet", "", "Target worksheet (default: PUBLISH_WORKSHEET)")
	publishCmd.Flags().String("today", "", "Compute the forecast as of this date (format: YYYY-MM-DD, default: today)")
	publishCmd.Flags().Bool("all", false, "Publish all outstanding invoices, not only those due this week")
	publishCmd.Flags().Bool("dry-run", false, "Compute the rows but don't write to Google Sheets")
}

func runPublish(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("publish")

	sheetName, _ := cmd.Flags().GetString("sheet")
	today, _ := cmd.Flags().GetString("today")
	all, _ := cmd.Flags().GetBool("all")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if sheetName == "" {
		sheetName = cfg.PublishWorksheet
	}
	if cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}

	clk, err := reportClock(cfg, today)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(5*time.Minute, log)
	defer cancel()

	snap, err := loadSnapshot(ctx, cfg, clk, log)
	if err != nil {
		return err
	}

	now := clk.Now()
	records := payments.NewEngineWithLogger(log).Effective(snap.Records, now)
	forecast := payments.Forecast(records, payments.CycleStats(records), now)

	lines := forecast.Detail
	if all {
		lines = forecast.AllOutstanding
	}
	rows := forecastRows(lines)

	log.Info().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Str("total_due", forecast.TotalDue.StringFixed(2)).
		Str("window_end", forecast.Window.End.Format("2006-01-02")).
		Bool("dry_run", dryRun).
		Msg("Forecast computed")

	if dryRun {
		return outputJSON(lines, "", log)
	}

	sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}

	if err := sheetsService.WriteTable(ctx, sheetName, forecastHeaders, rows); err != nil {
		return fmt.Errorf("failed to write to Google Sheet: %w", err)
	}

	fmt.Printf("Sheet: %s\n", sheetName)
	fmt.Printf("Rows written: %d\n", len(rows))
	fmt.Printf("Due by %s: %s\n", forecast.Window.End.Format("2006-01-02"), forecast.TotalDue.StringFixed(2))

	log.Info().Str("sheet", sheetName).Int("rows", len(rows)).Msg("Forecast published")
	return nil
}

// forecastRows lays out forecast lines in the column order of forecastHeaders.
// Amounts go out as numbers so the sheet can sum them; missing values stay blank.
func forecastRows(lines []payments.ForecastLine) [][]interface{} {
	rows := make([][]interface{}, 0, len(lines))
	for _, l := range lines {
		invoiceDate, expected, median := "", "", interface{}("")
		if l.InvoiceDate != nil {
			invoiceDate = l.InvoiceDate.Format("2006-01-02")
		}
		if l.ExpectedPaymentDate != nil {
			expected = l.ExpectedPaymentDate.Format("2006-01-02")
		}
		if l.MedianLagDays != nil {
			median = *l.MedianLagDays
		}

		rows = append(rows, []interface{}{
			l.Department,
			l.VendorName,
			l.InvoiceID,
			invoiceDate,
			l.InvoiceAmount.InexactFloat64(),
			l.PaidAmount.InexactFloat64(),
			l.Outstanding.InexactFloat64(),
			median,
			expected,
			l.CumulativeOutstanding.InexactFloat64(),
		})
	}
	return rows
}
