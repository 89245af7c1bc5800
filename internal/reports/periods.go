// Package reports builds the purchasing and payment views of the supplier
// ledger: monthly and weekly trends, unpaid balances by month, the unpaid
// statement and the vendor query.
//
// All functions expect the effective ledger view (see payments.Impute) and
// never modify their input.
package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// Week is a Monday to Sunday calendar week.
type Week struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// WeekOf returns the week containing d.
func WeekOf(d time.Time) Week {
	day := models.DateOf(d)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return Week{
		Start: start,
		End:   end,
		Label: start.Format(dateLayout) + " ~ " + end.Format(dateLayout),
	}
}

// MonthOf returns the YYYY-MM label of d.
func MonthOf(d time.Time) string {
	return d.Format(monthLayout)
}

// ParseMonth validates a YYYY-MM label.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q, want YYYY-MM", ErrInvalidParameter, s)
	}
	return t, nil
}

// DateRange is an inclusive invoice date filter; nil bounds are open.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Bounded reports whether either end is set.
func (r DateRange) Bounded() bool {
	return r.From != nil || r.To != nil
}

// Contains reports whether d falls in the range. A missing date only
// matches an unbounded range.
func (r DateRange) Contains(d *time.Time) bool {
	if d == nil {
		return !r.Bounded()
	}
	if r.From != nil && d.Before(models.DateOf(*r.From)) {
		return false
	}
	if r.To != nil && d.After(models.DateOf(*r.To)) {
		return false
	}
	return true
}

// share returns part/whole rounded to four places, or zero for an empty whole.
func share(part, whole decimal.Decimal) decimal.Decimal {
	if payments.Snap(whole).IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Round(4)
}

// Validate rejects a range whose start is after its end.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidParameter, r.From.Format(dateLayout), r.To.Format(dateLayout))
	}
	return nil
}
