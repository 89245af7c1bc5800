package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"apdash/internal/ledger"
	"apdash/internal/payments"
	"apdash/internal/reports"
	"apdash/pkg/models"
)

// ledgerView is the effective ledger for one request.
type ledgerView struct {
	snapshot *ledger.Snapshot
	now      time.Time
	records  []models.InvoiceRecord
}

// view loads the ledger and builds the effective records as of today, or as
// of the as_of query parameter. It writes the error response itself and
// returns nil when the request cannot continue.
func (s *Server) view(w http.ResponseWriter, r *http.Request) *ledgerView {
	now := s.clock.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := ledger.ParseDate(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid as_of date", err)
			return nil
		}
		now = d
	}

	snap, err := s.ledger.Load(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return nil
	}

	records := s.engine.Effective(snap.Records, now)
	records = payments.FilterDepartment(records, r.URL.Query().Get("department"))

	return &ledgerView{snapshot: snap, now: now, records: records}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "apdash",
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Load(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// handleRefresh drops the cached ledger and fetches it again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Refresh(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	s.log.Info().
		Int("records", len(snap.Records)).
		Time("loaded_at", snap.LoadedAt).
		Msg("Ledger refreshed on request")

	s.writeJSON(w, http.StatusOK, snap)
}

// handleSummary returns unpaid totals, cycles and forecast computed together.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Run(v.records, v.now))
}

func (s *Server) handleUnpaid(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, payments.UnpaidSummary(v.records))
}

func (s *Server) handleUnpaidMonthly(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, reports.UnpaidByMonth(v.records))
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date range", err)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}

	q := reports.StatementQuery{
		Range:       rng,
		Departments: splitList(r.URL.Query().Get("departments")),
		Priority:    s.departments,
	}
	s.writeJSON(w, http.StatusOK, reports.UnpaidStatement(v.records, q))
}

// handleChecks lists payments by check number, filtered on check date.
func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date range", err)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}
	result, err := reports.CheckLedger(v.records, rng)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date range", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	sortBy := payments.CycleSort(r.URL.Query().Get("sort"))
	switch sortBy {
	case "":
		sortBy = payments.SortByDepartment
	case payments.SortByDepartment, payments.SortByMedian, payments.SortByAmount:
	default:
		s.writeError(w, http.StatusBadRequest, "invalid sort, want department, median or amount", nil)
		return
	}

	v := s.view(w, r)
	if v == nil {
		return
	}

	stats := payments.CycleStats(v.records)
	payments.SortCycleStats(stats, sortBy)
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	stats := payments.CycleStats(v.records)
	s.writeJSON(w, http.StatusOK, payments.Forecast(v.records, stats, v.now))
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	metric, err := reports.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid metric", err)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, reports.MonthlyTrend(v.records, metric))
}

func (s *Server) handleWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	metric, err := reports.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid metric", err)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}
	month, ok := s.month(w, r, v, metric)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, reports.WeeklyTrend(v.records, metric, month))
}

func (s *Server) handleVendorTrend(w http.ResponseWriter, r *http.Request) {
	metric, err := reports.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid metric", err)
		return
	}
	department := r.URL.Query().Get("department")
	if department == "" {
		s.writeError(w, http.StatusBadRequest, "department is required", nil)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}
	month, ok := s.month(w, r, v, metric)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, reports.VendorWeekly(v.records, metric, month, department))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	if department == "" {
		s.writeError(w, http.StatusBadRequest, "department is required", nil)
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date range", err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
	}
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, reports.VendorDistribution(v.records, department, rng, limit))
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"vendors": reports.VendorNames(v.records)})
}

func (s *Server) handleVendorQuery(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date range", err)
		return
	}
	v := s.view(w, r)
	if v == nil {
		return
	}

	result, err := reports.VendorQuery(v.records, r.URL.Query().Get("q"), rng)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid vendor query", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	if v == nil {
		return
	}
	departments, defaultIndex := reports.OrderedDepartments(v.records, s.departments)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"departments":   departments,
		"default_index": defaultIndex,
	})
}

// month reads the month parameter, defaulting to the current or latest month with data.
func (s *Server) month(w http.ResponseWriter, r *http.Request, v *ledgerView, metric reports.Metric) (string, bool) {
	month := r.URL.Query().Get("month")
	if month == "" {
		return reports.DefaultMonth(reports.Months(v.records, metric), v.now), true
	}
	if _, err := reports.ParseMonth(month); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid month", err)
		return "", false
	}
	return month, true
}

// dateRange reads the optional from and to parameters.
func dateRange(r *http.Request) (reports.DateRange, error) {
	var rng reports.DateRange
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &rng.From}, {"to", &rng.To}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		d, err := ledger.ParseDate(raw)
		if err != nil {
			return reports.DateRange{}, err
		}
		*p.dst = &d
	}
	return rng, rng.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	s.writeJSON(w, status, body)
}

// writeLoadError reports a ledger that could not be loaded as unavailable.
func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrSourceUnavailable) {
		s.writeError(w, http.StatusServiceUnavailable, "ledger data unavailable", err)
		return
	}
	s.log.Error().Err(err).Msg("Unexpected ledger error")
	s.writeError(w, http.StatusInternalServerError, "internal error", err)
}
