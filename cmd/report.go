package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"apdash/internal/clock"
	"apdash/internal/config"
	"apdash/internal/ledger"
	"apdash/internal/logger"
	"apdash/internal/payments"
	"apdash/internal/reports"
	"apdash/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a ledger report as JSON",
	Long: `Load the ledger once and print one report as JSON.

All reports work on the effective ledger: void entries are removed and
auto-debit vendors (name ending in "*") count as paid ten days after the
invoice date. --today pins the date the reports are computed for.`,
	Example: `  # What has to be paid by Sunday
  apdash report forecast

  # Payment cycles of the produce department, slowest first
  apdash report cycles --department 菜部 --sort median

  # Purchases per department and week of March, saved to a file
  apdash report trends --period week --month 2025-03 -o trends.json

  # Everything invoiced by one supplier in Q1
  apdash report vendor --q "ferme" --from 2025-01-01 --to 2025-03-31`,
}

// reportInput is the effective ledger a report runs on.
type reportInput struct {
	cfg      *config.Config
	snapshot *ledger.Snapshot
	now      time.Time
	records  []models.InvoiceRecord
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.PersistentFlags().String("today", "", "Compute the report as of this date (format: YYYY-MM-DD, default: today)")
	reportCmd.PersistentFlags().StringP("output", "o", "", "Output file path (default: stdout)")
	reportCmd.PersistentFlags().String("department", "", "Restrict the report to one department")

	unpaidReportCmd := &cobra.Command{
		Use:   "unpaid",
		Short: "Outstanding amounts by department and vendor",
		Args:  cobra.NoArgs,
		RunE: reportRunner("unpaid", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			return payments.UnpaidSummary(in.records), nil
		}),
	}

	monthlyReportCmd := &cobra.Command{
		Use:   "unpaid-monthly",
		Short: "Outstanding amounts per invoice month with a running total",
		Args:  cobra.NoArgs,
		RunE: reportRunner("unpaid-monthly", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			return reports.UnpaidByMonth(in.records), nil
		}),
	}

	statementReportCmd := &cobra.Command{
		Use:   "statement",
		Short: "Invoice statement with paid and outstanding amounts per department",
		Args:  cobra.NoArgs,
		RunE: reportRunner("statement", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			rng, err := rangeFlags(cmd)
			if err != nil {
				return nil, err
			}
			departments, _ := cmd.Flags().GetStringSlice("departments")
			return reports.UnpaidStatement(in.records, reports.StatementQuery{
				Range:       rng,
				Departments: departments,
				Priority:    in.cfg.DepartmentOrder,
			}), nil
		}),
	}
	addRangeFlags(statementReportCmd)
	statementReportCmd.Flags().StringSlice("departments", nil, "Departments to include (default: all)")

	cyclesReportCmd := &cobra.Command{
		Use:   "cycles",
		Short: "Payment lag statistics per department and vendor",
		Args:  cobra.NoArgs,
		RunE: reportRunner("cycles", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			sortBy, _ := cmd.Flags().GetString("sort")
			by := payments.CycleSort(sortBy)
			switch by {
			case payments.SortByDepartment, payments.SortByMedian, payments.SortByAmount:
			default:
				return nil, fmt.Errorf("invalid --sort %q, use department, median or amount", sortBy)
			}
			stats := payments.CycleStats(in.records)
			payments.SortCycleStats(stats, by)
			return stats, nil
		}),
	}
	cyclesReportCmd.Flags().String("sort", string(payments.SortByDepartment), "Ordering: department, median or amount")

	forecastReportCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Invoices expected to be paid by the end of this week",
		Args:  cobra.NoArgs,
		RunE: reportRunner("forecast", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			return payments.Forecast(in.records, payments.CycleStats(in.records), in.now), nil
		}),
	}

	trendsReportCmd := &cobra.Command{
		Use:   "trends",
		Short: "Purchases or payments per department over time",
		Args:  cobra.NoArgs,
		RunE:  reportRunner("trends", runTrendReport),
	}
	trendsReportCmd.Flags().String("metric", string(reports.MetricPurchases), "purchases or payments")
	trendsReportCmd.Flags().String("period", "month", "month, week, or vendor (vendors per week of one department)")
	trendsReportCmd.Flags().String("month", "", "Month for weekly trends (format: YYYY-MM, default: current or latest)")

	distributionReportCmd := &cobra.Command{
		Use:   "distribution",
		Short: "Weekly purchases of the top vendors of one department",
		Args:  cobra.NoArgs,
		RunE: reportRunner("distribution", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			department, _ := cmd.Flags().GetString("department")
			if department == "" {
				return nil, fmt.Errorf("--department is required")
			}
			rng, err := rangeFlags(cmd)
			if err != nil {
				return nil, err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return reports.VendorDistribution(in.records, department, rng, limit), nil
		}),
	}
	addRangeFlags(distributionReportCmd)
	distributionReportCmd.Flags().Int("limit", reports.DefaultVendorLimit, "Number of vendors to keep")

	vendorReportCmd := &cobra.Command{
		Use:   "vendor",
		Short: "Invoices of the vendors matching a keyword",
		Args:  cobra.NoArgs,
		RunE: reportRunner("vendor", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			q, _ := cmd.Flags().GetString("q")
			rng, err := rangeFlags(cmd)
			if err != nil {
				return nil, err
			}
			return reports.VendorQuery(in.records, q, rng)
		}),
	}
	addRangeFlags(vendorReportCmd)
	vendorReportCmd.Flags().String("q", "", "Vendor name keyword, case-insensitive [REQUIRED]")

	checksReportCmd := &cobra.Command{
		Use:   "checks",
		Short: "Payments grouped by check number, filtered on check date",
		Args:  cobra.NoArgs,
		RunE: reportRunner("checks", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			rng, err := rangeFlags(cmd)
			if err != nil {
				return nil, err
			}
			return reports.CheckLedger(in.records, rng)
		}),
	}
	addRangeFlags(checksReportCmd)
	checksReportCmd.Flags().Lookup("from").Usage = "First check date (format: YYYY-MM-DD)"
	checksReportCmd.Flags().Lookup("to").Usage = "Last check date (format: YYYY-MM-DD)"

	summaryReportCmd := &cobra.Command{
		Use:   "summary",
		Short: "Unpaid summary, payment cycles and forecast in one document",
		Args:  cobra.NoArgs,
		RunE: reportRunner("summary", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			// in.records is already effective; imputing again is a no-op
			return payments.NewEngine().Run(in.records, in.now), nil
		}),
	}

	departmentsReportCmd := &cobra.Command{
		Use:   "departments",
		Short: "Departments in display order",
		Args:  cobra.NoArgs,
		RunE: reportRunner("departments", func(cmd *cobra.Command, in *reportInput) (interface{}, error) {
			departments, defaultIndex := reports.OrderedDepartments(in.records, in.cfg.DepartmentOrder)
			return map[string]interface{}{
				"departments":   departments,
				"default_index": defaultIndex,
				"vendors":       reports.VendorNames(in.records),
			}, nil
		}),
	}

	reportCmd.AddCommand(
		summaryReportCmd,
		unpaidReportCmd,
		monthlyReportCmd,
		statementReportCmd,
		cyclesReportCmd,
		forecastReportCmd,
		trendsReportCmd,
		distributionReportCmd,
		vendorReportCmd,
		checksReportCmd,
		departmentsReportCmd,
	)
}

// reportRunner loads the effective ledger, builds one report and writes it.
func reportRunner(name string, build func(cmd *cobra.Command, in *reportInput) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := logger.WithFields(map[string]interface{}{"component": "report", "report": name})

		outputPath, _ := cmd.Flags().GetString("output")

		in, err := loadReportInput(cmd, log)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := build(cmd, in)
		if err != nil {
			return fmt.Errorf("%s report: %w", name, err)
		}

		log.Info().
			Str("source", in.snapshot.Source).
			Int("records", len(in.records)).
			Str("as_of", in.now.Format("2006-01-02")).
			Dur("duration", time.Since(start)).
			Msg("Report computed")

		return outputJSON(result, outputPath, log)
	}
}

func loadReportInput(cmd *cobra.Command, log zerolog.Logger) (*reportInput, error) {
	today, _ := cmd.Flags().GetString("today")
	department, _ := cmd.Flags().GetString("department")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	clk, err := reportClock(cfg, today)
	if err != nil {
		return nil, err
	}

	ctx, cancel := signalContext(cfg.FetchTimeout, log)
	defer cancel()

	snap, err := loadSnapshot(ctx, cfg, clk, log)
	if err != nil {
		return nil, err
	}

	now := clk.Now()
	records := payments.NewEngine().Effective(snap.Records, now)
	if department != "" {
		records = payments.FilterDepartment(records, department)
	}

	return &reportInput{cfg: cfg, snapshot: snap, now: now, records: records}, nil
}

func loadSnapshot(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*ledger.Snapshot, error) {
	cache, err := newLedgerCache(ctx, cfg, clk, logger.WithComponent("ledger"))
	if err != nil {
		return nil, fmt.Errorf("failed to configure ledger source: %w", err)
	}
	snap, err := cache.Load(ctx)
	if err != nil {
		return nil, handleLedgerError(err, log)
	}
	return snap, nil
}

func runTrendReport(cmd *cobra.Command, in *reportInput) (interface{}, error) {
	metricFlag, _ := cmd.Flags().GetString("metric")
	period, _ := cmd.Flags().GetString("period")
	month, _ := cmd.Flags().GetString("month")
	department, _ := cmd.Flags().GetString("department")

	metric, err := reports.ParseMetric(metricFlag)
	if err != nil {
		return nil, err
	}

	if period == "month" {
		return reports.MonthlyTrend(in.records, metric), nil
	}

	if month == "" {
		month = reports.DefaultMonth(reports.Months(in.records, metric), in.now)
	} else if _, err := reports.ParseMonth(month); err != nil {
		return nil, err
	}

	switch period {
	case "week":
		return reports.WeeklyTrend(in.records, metric, month), nil
	case "vendor":
		if department == "" {
			return nil, fmt.Errorf("--department is required for --period vendor")
		}
		return reports.VendorWeekly(in.records, metric, month, department), nil
	}
	return nil, fmt.Errorf("invalid --period %q, use month, week or vendor", period)
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First invoice date (format: YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last invoice date (format: YYYY-MM-DD)")
}

// rangeFlags reads --from and --to into an inclusive date range.
func rangeFlags(cmd *cobra.Command) (reports.DateRange, error) {
	var rng reports.DateRange
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"from", &rng.From}, {"to", &rng.To}} {
		raw, _ := cmd.Flags().GetString(f.name)
		if raw == "" {
			continue
		}
		d, err := ledger.ParseDate(raw)
		if err != nil {
			return reports.DateRange{}, fmt.Errorf("invalid --%s date: %w", f.name, err)
		}
		*f.dst = &d
	}
	return rng, rng.Validate()
}
