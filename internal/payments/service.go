// Package payments derives payment status, payment-cycle statistics and
// near-term payment forecasts from the supplier ledger.
//
// Every report consumes the effective view produced by Impute: void entries
// are removed and auto-debit vendors are treated as settled once their debit
// window has passed. The functions here are pure; they never mutate their
// input and take "now" explicitly so results are reproducible.
//
// Amounts are carried as exact decimals. Values exposed in result structs are
// rounded to cents; sums are always computed before rounding.
package payments

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"apdash/internal/logger"
	"apdash/pkg/models"
)

// Engine bundles the reports computed from one ledger snapshot.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an engine with a component logger.
func NewEngine() *Engine {
	return &Engine{log: logger.WithComponent("payments")}
}

// NewEngineWithLogger is used by callers that manage their own logger.
func NewEngineWithLogger(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "payments").Logger()}
}

// Snapshot is the full set of core reports for one point in time.
type Snapshot struct {
	AsOf     time.Time       `json:"as_of"`
	Unpaid   *UnpaidResult   `json:"unpaid"`
	Cycles   []CycleStat     `json:"cycles"`
	Forecast *ForecastResult `json:"forecast"`
}

// Effective returns the imputed view of the ledger as of now.
func (e *Engine) Effective(records []models.InvoiceRecord, now time.Time) []models.InvoiceRecord {
	effective := Impute(records, now)

	e.log.Debug().
		Int("input_records", len(records)).
		Int("effective_records", len(effective)).
		Int("void_excluded", len(records)-len(effective)).
		Time("as_of", now).
		Msg("Built effective ledger view")

	return effective
}

// Run computes unpaid summary, cycle statistics and forecast in dependency order.
func (e *Engine) Run(records []models.InvoiceRecord, now time.Time) *Snapshot {
	effective := e.Effective(records, now)
	cycles := CycleStats(effective)
	forecast := Forecast(effective, cycles, now)
	unpaid := UnpaidSummary(effective)

	e.log.Info().
		Int("records", len(effective)).
		Int("cycle_groups", len(cycles)).
		Int("outstanding_lines", len(forecast.AllOutstanding)).
		Int("due_lines", len(forecast.Detail)).
		Str("total_due", forecast.TotalDue.StringFixed(2)).
		Str("total_outstanding", unpaid.TotalOutstanding.StringFixed(2)).
		Msg("Payment reports computed")

	return &Snapshot{
		AsOf:     now,
		Unpaid:   unpaid,
		Cycles:   cycles,
		Forecast: forecast,
	}
}

// epsilon below which an amount is read as exactly zero.
var epsilon = decimal.New(1, -6)

// Snap returns zero for amounts smaller in magnitude than 1e-6.
func Snap(v decimal.Decimal) decimal.Decimal {
	if v.Abs().LessThan(epsilon) {
		return decimal.Zero
	}
	return v
}

// Round2 rounds an amount to cents for presentation.
func Round2(v decimal.Decimal) decimal.Decimal {
	return Snap(v).Round(2)
}
