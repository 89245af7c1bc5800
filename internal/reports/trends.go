package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

// Metric selects which money flow a trend follows.
type Metric string

const (
	// MetricPurchases sums invoice amounts by invoice date.
	MetricPurchases Metric = "purchases"
	// MetricPayments sums paid amounts by check date.
	MetricPayments Metric = "payments"
)

// ParseMetric accepts "purchases" (the default) or "payments".
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricPurchases:
		return MetricPurchases, nil
	case MetricPayments:
		return MetricPayments, nil
	}
	return "", fmt.Errorf("%w: metric %q, want purchases or payments", ErrInvalidParameter, s)
}

// DefaultVendorLimit caps the vendors shown in a purchase distribution.
const DefaultVendorLimit = 20

type flow struct {
	date       time.Time
	department string
	vendor     string
	amount     decimal.Decimal
}

// flows extracts the dated amounts a metric follows. Purchases need an
// invoice date; payments need a check date and a paid amount.
func flows(records []models.InvoiceRecord, metric Metric) []flow {
	out := make([]flow, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.IsVoid() {
			continue
		}
		switch metric {
		case MetricPayments:
			if r.CheckDate == nil || !r.PaidAmount.Valid {
				continue
			}
			out = append(out, flow{date: *r.CheckDate, department: r.Department, vendor: r.VendorName, amount: r.PaidAmount.Decimal})
		default:
			if r.InvoiceDate == nil {
				continue
			}
			out = append(out, flow{date: *r.InvoiceDate, department: r.Department, vendor: r.VendorName, amount: r.InvoiceAmount})
		}
	}
	return out
}

// TrendPoint is the amount of one group in one period.
type TrendPoint struct {
	Period      string          `json:"period"`
	PeriodStart time.Time       `json:"period_start"`
	Group       string          `json:"group"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodTotal decimal.Decimal `json:"period_total"`
	Share       decimal.Decimal `json:"share"`
}

// Trend is a time series of amounts per group.
type Trend struct {
	Metric  Metric       `json:"metric"`
	Period  string       `json:"period"`
	GroupBy string       `json:"group_by"`
	Periods []string     `json:"periods"`
	Groups  []string     `json:"groups"`
	Points  []TrendPoint `json:"points"`
}

type periodKey struct {
	label string
	start time.Time
}

func byMonth(f flow) periodKey {
	return periodKey{label: MonthOf(f.date), start: models.Date(f.date.Year(), f.date.Month(), 1)}
}

func byWeek(f flow) periodKey {
	w := WeekOf(f.date)
	return periodKey{label: w.Label, start: w.Start}
}

func byDepartment(f flow) string { return f.department }
func byVendor(f flow) string     { return f.vendor }

// MonthlyTrend sums the metric per department and month, with each month's
// total and every department's share of it.
func MonthlyTrend(records []models.InvoiceRecord, metric Metric) *Trend {
	return buildTrend(flows(records, metric), metric, "month", "department", byMonth, byDepartment)
}

// WeeklyTrend sums the metric per department and Monday to Sunday week,
// over the flows dated in the given YYYY-MM month.
func WeeklyTrend(records []models.InvoiceRecord, metric Metric, month string) *Trend {
	return buildTrend(inMonth(flows(records, metric), month), metric, "week", "department", byWeek, byDepartment)
}

// VendorWeekly sums the metric per vendor and week for one department and month.
func VendorWeekly(records []models.InvoiceRecord, metric Metric, month, department string) *Trend {
	var selected []flow
	for _, f := range inMonth(flows(records, metric), month) {
		if f.department == department {
			selected = append(selected, f)
		}
	}
	return buildTrend(selected, metric, "week", "vendor", byWeek, byVendor)
}

func inMonth(fs []flow, month string) []flow {
	out := make([]flow, 0, len(fs))
	for _, f := range fs {
		if MonthOf(f.date) == month {
			out = append(out, f)
		}
	}
	return out
}

func buildTrend(fs []flow, metric Metric, period, groupBy string, periodOf func(flow) periodKey, groupOf func(flow) string) *Trend {
	type cellKey struct {
		period periodKey
		group  string
	}

	cells := make(map[cellKey]decimal.Decimal)
	periodTotals := make(map[periodKey]decimal.Decimal)
	groups := make(map[string]struct{})
	for _, f := range fs {
		p := periodOf(f)
		g := groupOf(f)
		k := cellKey{period: p, group: g}
		cells[k] = cells[k].Add(f.amount)
		periodTotals[p] = periodTotals[p].Add(f.amount)
		groups[g] = struct{}{}
	}

	trend := &Trend{
		Metric:  metric,
		Period:  period,
		GroupBy: groupBy,
		Periods: []string{},
		Groups:  make([]string, 0, len(groups)),
		Points:  make([]TrendPoint, 0, len(cells)),
	}

	periods := make([]periodKey, 0, len(periodTotals))
	for p := range periodTotals {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].start.Before(periods[j].start) })
	for _, p := range periods {
		trend.Periods = append(trend.Periods, p.label)
	}

	for g := range groups {
		trend.Groups = append(trend.Groups, g)
	}
	sort.Strings(trend.Groups)

	for k, amount := range cells {
		total := periodTotals[k.period]
		trend.Points = append(trend.Points, TrendPoint{
			Period:      k.period.label,
			PeriodStart: k.period.start,
			Group:       k.group,
			Amount:      payments.Round2(amount),
			PeriodTotal: payments.Round2(total),
			Share:       share(amount, total),
		})
	}
	sort.Slice(trend.Points, func(i, j int) bool {
		a, b := trend.Points[i], trend.Points[j]
		if !a.PeriodStart.Equal(b.PeriodStart) {
			return a.PeriodStart.Before(b.PeriodStart)
		}
		return a.Group < b.Group
	})

	return trend
}

// Months lists the YYYY-MM months that carry data for the metric, ascending.
func Months(records []models.InvoiceRecord, metric Metric) []string {
	seen := make(map[string]struct{})
	for _, f := range flows(records, metric) {
		seen[MonthOf(f.date)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// DefaultMonth picks the current month when it has data, else the latest one.
func DefaultMonth(months []string, now time.Time) string {
	current := MonthOf(now)
	for _, m := range months {
		if m == current {
			return m
		}
	}
	if len(months) == 0 {
		return current
	}
	return months[len(months)-1]
}

// VendorTotal is a vendor's purchases over a distribution's range.
type VendorTotal struct {
	VendorName string          `json:"vendor_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// DistributionPoint is one vendor's purchases in one week.
type DistributionPoint struct {
	VendorName string          `json:"vendor_name"`
	Week       Week            `json:"week"`
	Amount     decimal.Decimal `json:"amount"`
}

// Distribution shows when, and how much, a department buys from each vendor.
type Distribution struct {
	Department string              `json:"department"`
	Range      DateRange           `json:"range"`
	Vendors    []VendorTotal       `json:"vendors"`
	Points     []DistributionPoint `json:"points"`
}

// VendorDistribution sums purchases per (vendor, week) for one department
// within the invoice date range. Weeks that net to zero or less are left out,
// and only the limit largest vendors by total are kept.
func VendorDistribution(records []models.InvoiceRecord, department string, rng DateRange, limit int) *Distribution {
	if limit <= 0 {
		limit = DefaultVendorLimit
	}

	type cellKey struct {
		vendor string
		week   time.Time
	}
	cells := make(map[cellKey]decimal.Decimal)
	for _, f := range flows(records, MetricPurchases) {
		d := f.date
		if f.department != department || !rng.Contains(&d) {
			continue
		}
		k := cellKey{vendor: f.vendor, week: WeekOf(f.date).Start}
		cells[k] = cells[k].Add(f.amount)
	}

	totals := make(map[string]decimal.Decimal)
	for k, amount := range cells {
		if payments.Round2(amount).Sign() <= 0 {
			delete(cells, k)
			continue
		}
		totals[k.vendor] = totals[k.vendor].Add(amount)
	}

	vendors := make([]VendorTotal, 0, len(totals))
	for v, amount := range totals {
		vendors = append(vendors, VendorTotal{VendorName: v, Amount: payments.Round2(amount)})
	}
	sort.Slice(vendors, func(i, j int) bool {
		if !vendors[i].Amount.Equal(vendors[j].Amount) {
			return vendors[i].Amount.GreaterThan(vendors[j].Amount)
		}
		return vendors[i].VendorName < vendors[j].VendorName
	})
	if len(vendors) > limit {
		vendors = vendors[:limit]
	}

	rank := make(map[string]int, len(vendors))
	for i, v := range vendors {
		rank[v.VendorName] = i
	}

	dist := &Distribution{Department: department, Range: rng, Vendors: vendors, Points: []DistributionPoint{}}
	for k, amount := range cells {
		if _, ok := rank[k.vendor]; !ok {
			continue
		}
		dist.Points = append(dist.Points, DistributionPoint{VendorName: k.vendor, Week: WeekOf(k.week), Amount: payments.Round2(amount)})
	}
	sort.Slice(dist.Points, func(i, j int) bool {
		a, b := dist.Points[i], dist.Points[j]
		if !a.Week.Start.Equal(b.Week.Start) {
			return a.Week.Start.Before(b.Week.Start)
		}
		return rank[a.VendorName] < rank[b.VendorName]
	})

	return dist
}
