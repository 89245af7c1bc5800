package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"apdash/pkg/models"
)

// Column names the reader understands.
const (
	ColVendorName       = "vendor_name"
	ColDepartment       = "department"
	ColInvoiceID        = "invoice_id"
	ColInvoiceDate      = "invoice_date"
	ColInvoiceAmount    = "invoice_amount"
	ColCheckDate        = "check_date"
	ColPaidAmount       = "paid_amount"
	ColCheckTotalAmount = "check_total_amount"
	ColCheckNumber      = "check_number"
	ColTPS              = "tps"
	ColTVQ              = "tvq"
)

// headerAliases maps each column to the header spellings found in the ledger sheets.
var headerAliases = map[string][]string{
	ColVendorName:       {"公司名称", "vendor_name", "vendor", "company"},
	ColDepartment:       {"部门", "department", "dept"},
	ColInvoiceID:        {"发票号", "invoice_id", "invoice_no", "invoice_number"},
	ColInvoiceDate:      {"发票日期", "invoice_date"},
	ColInvoiceAmount:    {"发票金额", "invoice_amount"},
	ColCheckDate:        {"开支票日期", "check_date", "payment_date"},
	ColPaidAmount:       {"实际支付金额", "paid_amount"},
	ColCheckTotalAmount: {"付款支票总金额", "check_total_amount"},
	ColCheckNumber:      {"付款支票号", "check_number", "check_no"},
	ColTPS:              {"tps"},
	ColTVQ:              {"tvq"},
}

var requiredColumns = []string{ColVendorName, ColDepartment, ColInvoiceAmount}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-1-2",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"02.01.2006",
}

// Dates outside this span are typos such as 0024 for 2024.
var (
	earliestDate = models.Date(1677, time.September, 22)
	latestDate   = models.Date(2262, time.April, 11)
)

// Diagnostics counts what happened to the rows of one load.
type Diagnostics struct {
	TotalRows        int      `json:"total_rows"`
	Parsed           int      `json:"parsed"`
	Blank            int      `json:"blank"`
	Dropped          int      `json:"dropped"`
	DroppedRows      []int    `json:"dropped_rows,omitempty"`
	MalformedDates   int      `json:"malformed_dates"`
	MalformedAmounts int      `json:"malformed_amounts"`
	MissingColumns   []string `json:"missing_optional_columns,omitempty"`
}

// Ledger is one normalized load of the source table.
type Ledger struct {
	Records     []models.InvoiceRecord
	Diagnostics Diagnostics
}

// Reader turns raw rows into typed invoice records.
type Reader struct {
	log zerolog.Logger
}

// NewReaderWithLogger creates a reader logging under the given logger.
func NewReaderWithLogger(log zerolog.Logger) *Reader {
	return &Reader{log: log.With().Str("component", "ledger-reader").Logger()}
}

// Parse maps the header row onto known columns and converts every data row.
// Malformed values become nulls; rows without vendor or department are dropped
// and counted. A bad row never fails the whole load.
func (r *Reader) Parse(rows [][]string) (*Ledger, error) {
	const op = "Parse"

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySheet)
	}

	index := mapHeader(rows[0])

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrMissingColumn, strings.Join(missing, ", "))
	}

	ledger := &Ledger{Records: make([]models.InvoiceRecord, 0, len(rows)-1)}
	diag := &ledger.Diagnostics
	for _, col := range []string{ColInvoiceID, ColInvoiceDate, ColCheckDate, ColPaidAmount, ColCheckTotalAmount, ColCheckNumber, ColTPS, ColTVQ} {
		if _, ok := index[col]; !ok {
			diag.MissingColumns = append(diag.MissingColumns, col)
		}
	}

	for i, row := range rows[1:] {
		rowNum := i + 2 // Account for header and 0-based indexing
		diag.TotalRows++

		if isBlank(row) {
			diag.Blank++
			continue
		}

		rec := models.InvoiceRecord{
			VendorName:  cell(row, index, ColVendorName),
			Department:  cell(row, index, ColDepartment),
			InvoiceID:   cell(row, index, ColInvoiceID),
			CheckNumber: cell(row, index, ColCheckNumber),
			Row:         rowNum,
		}

		if rec.VendorName == "" || rec.Department == "" {
			r.log.Debug().
				Int("row", rowNum).
				Str("vendor", rec.VendorName).
				Str("department", rec.Department).
				Msg("Dropping row without vendor or department")
			diag.Dropped++
			diag.DroppedRows = append(diag.DroppedRows, rowNum)
			continue
		}

		rec.InvoiceDate = r.date(row, index, ColInvoiceDate, rowNum, diag)
		rec.CheckDate = r.date(row, index, ColCheckDate, rowNum, diag)

		invoiceAmount := r.amount(row, index, ColInvoiceAmount, rowNum, diag)
		if invoiceAmount.Valid {
			rec.InvoiceAmount = invoiceAmount.Decimal
		}
		rec.PaidAmount = r.amount(row, index, ColPaidAmount, rowNum, diag)
		rec.CheckTotalAmount = r.amount(row, index, ColCheckTotalAmount, rowNum, diag)
		rec.TPS = r.amount(row, index, ColTPS, rowNum, diag)
		rec.TVQ = r.amount(row, index, ColTVQ, rowNum, diag)

		ledger.Records = append(ledger.Records, rec)
		diag.Parsed++
	}

	event := r.log.Info()
	if diag.Dropped > 0 || diag.MalformedDates > 0 || diag.MalformedAmounts > 0 {
		event = r.log.Warn()
	}
	event.
		Int("total_rows", diag.TotalRows).
		Int("parsed", diag.Parsed).
		Int("dropped", diag.Dropped).
		Int("malformed_dates", diag.MalformedDates).
		Int("malformed_amounts", diag.MalformedAmounts).
		Msg("Ledger parsed")

	return ledger, nil
}

func (r *Reader) date(row []string, index map[string]int, col string, rowNum int, diag *Diagnostics) *time.Time {
	raw := cell(row, index, col)
	if isNullText(raw) {
		return nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		r.log.Debug().Int("row", rowNum).Str("column", col).Str("value", raw).Msg("Malformed date, using null")
		diag.MalformedDates++
		return nil
	}
	return &d
}

func (r *Reader) amount(row []string, index map[string]int, col string, rowNum int, diag *Diagnostics) decimal.NullDecimal {
	raw := cell(row, index, col)
	if isNullText(raw) {
		return decimal.NullDecimal{}
	}
	v, err := ParseAmount(raw)
	if err != nil {
		r.log.Debug().Int("row", rowNum).Str("column", col).Str("value", raw).Msg("Malformed amount, using null")
		diag.MalformedAmounts++
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

// ParseDate parses a calendar date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		d := models.DateOf(t)
		if d.Before(earliestDate) || d.After(latestDate) {
			return time.Time{}, fmt.Errorf("date out of range: %s", s)
		}
		return d, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// ParseAmount parses a money amount such as "1,234.56", "$12", "-3.10" or "(12.50)".
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount string")
	}

	// Accounting notation for negatives
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}

	replacer := strings.NewReplacer("CA$", "", "CAD", "", "$", "", ",", "", " ", "")
	cleaned = replacer.Replace(cleaned)

	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}

// mapHeader resolves header cells to column names. The first matching cell wins.
func mapHeader(header []string) map[string]int {
	lookup := make(map[string]string)
	for col, aliases := range headerAliases {
		for _, alias := range aliases {
			lookup[normalizeHeader(alias)] = col
		}
	}

	index := make(map[string]int)
	for i, h := range header {
		col, ok := lookup[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	return index
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if isNullText(v) {
		return ""
	}
	return v
}

// isNullText reports spreadsheet spellings of an empty cell.
func isNullText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "nat", "none", "null", "-":
		return true
	}
	return false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
