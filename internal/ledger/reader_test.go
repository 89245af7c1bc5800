package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apdash/pkg/models"
)

func newTestReader() *Reader {
	return NewReaderWithLogger(zerolog.Nop())
}

var chineseHeader = []string{"公司名称", "部门", "发票号", "发票日期", "发票金额", "开支票日期", "实际支付金额", "付款支票总金额", "付款支票号", "TPS", "TVQ", "银行对账日期"}

func TestParse_ChineseHeaders(t *testing.T) {
	rows := [][]string{
		chineseHeader,
		{"BETA", "菜部", "INV-1", "2024-06-01", "1,234.56", "2024-06-11", "1234.56", "2000", "10045", "5.00", "9.98", ""},
		{"ACME*", "杂货", "A-9", "2024/06/03", "80", "", "", "", "nan", "", "", ""},
	}

	ledger, err := newTestReader().Parse(rows)
	require.NoError(t, err)
	require.Len(t, ledger.Records, 2)

	beta := ledger.Records[0]
	assert.Equal(t, "BETA", beta.VendorName)
	assert.Equal(t, "菜部", beta.Department)
	assert.Equal(t, "INV-1", beta.InvoiceID)
	require.NotNil(t, beta.InvoiceDate)
	assert.Equal(t, models.Date(2024, time.June, 1), *beta.InvoiceDate)
	require.NotNil(t, beta.CheckDate)
	assert.Equal(t, models.Date(2024, time.June, 11), *beta.CheckDate)
	assert.Equal(t, "1234.56", beta.InvoiceAmount.String())
	assert.True(t, beta.PaidAmount.Valid)
	assert.Equal(t, "2000", beta.CheckTotalAmount.Decimal.String())
	assert.Equal(t, "10045", beta.CheckNumber)
	assert.Equal(t, "9.98", beta.TVQ.Decimal.String())
	assert.Equal(t, 2, beta.Row)

	acme := ledger.Records[1]
	assert.True(t, acme.IsAutoDebit())
	assert.Nil(t, acme.CheckDate)
	assert.False(t, acme.PaidAmount.Valid)
	assert.Empty(t, acme.CheckNumber)
	assert.Equal(t, 3, acme.Row)

	assert.Equal(t, Diagnostics{TotalRows: 2, Parsed: 2}, ledger.Diagnostics)
}

func TestParse_EnglishHeadersAnyOrder(t *testing.T) {
	rows := [][]string{
		{"Invoice Amount", "Department", "Vendor_Name", "invoice_date"},
		{"10", "Meat", "GAMMA", "06/15/2024"},
	}

	ledger, err := newTestReader().Parse(rows)
	require.NoError(t, err)
	require.Len(t, ledger.Records, 1)
	assert.Equal(t, "GAMMA", ledger.Records[0].VendorName)
	assert.Equal(t, models.Date(2024, time.June, 15), *ledger.Records[0].InvoiceDate)
	assert.Contains(t, ledger.Diagnostics.MissingColumns, ColPaidAmount)
	assert.Contains(t, ledger.Diagnostics.MissingColumns, ColCheckDate)
}

func TestParse_RowPolicy(t *testing.T) {
	rows := [][]string{
		chineseHeader,
		{"", "", "", "", "", "", "", "", "", "", "", ""},          // blank
		{"", "菜部", "X", "2024-06-01", "10", "", "", "", "", "", "", ""},  // no vendor
		{"DELTA", "", "X", "2024-06-01", "10", "", "", "", "", "", "", ""}, // no department
		{"EPS", "鱼部", "E-1", "June first", "abc", "2024-13-45", "12.x", "", "", "", "", ""},
		{"ZETA", "肉部"}, // short row
	}

	ledger, err := newTestReader().Parse(rows)
	require.NoError(t, err)

	diag := ledger.Diagnostics
	assert.Equal(t, 5, diag.TotalRows)
	assert.Equal(t, 1, diag.Blank)
	assert.Equal(t, 2, diag.Dropped)
	assert.Equal(t, []int{3, 4}, diag.DroppedRows)
	assert.Equal(t, 2, diag.Parsed)
	assert.Equal(t, 2, diag.MalformedDates)
	assert.Equal(t, 2, diag.MalformedAmounts)

	require.Len(t, ledger.Records, 2)
	eps := ledger.Records[0]
	assert.Nil(t, eps.InvoiceDate)
	assert.Nil(t, eps.CheckDate)
	assert.True(t, eps.InvoiceAmount.IsZero())
	assert.False(t, eps.PaidAmount.Valid)

	zeta := ledger.Records[1]
	assert.Equal(t, "ZETA", zeta.VendorName)
	assert.True(t, zeta.InvoiceAmount.IsZero())
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	rows := [][]string{
		{"公司名称", "发票金额"},
		{"BETA", "10"},
	}

	_, err := newTestReader().Parse(rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), ColDepartment)
}

func TestParse_Empty(t *testing.T) {
	_, err := newTestReader().Parse(nil)
	assert.ErrorIs(t, err, ErrEmptySheet)

	ledger, err := newTestReader().Parse([][]string{chineseHeader})
	require.NoError(t, err)
	assert.Empty(t, ledger.Records)
}

func TestParseDate(t *testing.T) {
	want := models.Date(2024, time.March, 5)
	for _, s := range []string{"2024-03-05", "2024/03/05", "2024/3/5", "2024-03-05 00:00:00", "2024-03-05T13:45:00", "03/05/2024", "3/5/2024", "05.03.2024", "2024-3-5", "2024/03/05 10:00:00", "3/5/24"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	for _, s := range []string{"", "tomorrow", "2024-02-30", "0024-03-05", "9024-03-05", "1600-01-01"} {
		_, err := ParseDate(s)
		assert.Error(t, err, s)
	}
}

func TestParse_TypoYearIsMalformed(t *testing.T) {
	rows := [][]string{
		chineseHeader,
		{"BETA", "菜部", "1", "2024-03-01", "10", "2024-03-06", "10", "", "", "", "", ""},
		{"BETA", "菜部", "2", "0024-03-01", "10", "2024-03-11", "10", "", "", "", "", ""},
	}

	ledger, err := newTestReader().Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.Diagnostics.MalformedDates)
	require.Len(t, ledger.Records, 2)
	assert.Nil(t, ledger.Records[1].InvoiceDate)
	require.NotNil(t, ledger.Records[1].CheckDate)

	_, ok := ledger.Records[1].PaymentLagDays()
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"CA$ 99", "99"},
		{"-12.50", "-12.5"},
		{"(12.50)", "-12.5"},
		{" 0 ", "0"},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}

	for _, s := range []string{"", "abc", "12.x"} {
		_, err := ParseAmount(s)
		assert.Error(t, err, s)
	}
}
