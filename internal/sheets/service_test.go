package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"edit url", "https://docs.google.com/spreadsheets/d/1qH_odKEPlDrLTM8B8Uf-sMzW6Uu9/edit#gid=0", "1qH_odKEPlDrLTM8B8Uf-sMzW6Uu9", false},
		{"export url", "https://docs.google.com/spreadsheets/d/abc123/export?format=csv", "abc123", false},
		{"bare id", "1qH_odKEPlDrLTM8B8UfsMzW6Uu9ciDUW", "1qH_odKEPlDrLTM8B8UfsMzW6Uu9ciDUW", false},
		{"not a sheet", "https://example.com/file.csv", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpreadsheetID(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportURL(t *testing.T) {
	got, err := ExportURL("https://docs.google.com/spreadsheets/d/abc123/edit")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc123/export?format=csv", got)

	_, err = ExportURL("nope")
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", ColumnLetter(1))
	assert.Equal(t, "Q", ColumnLetter(17))
	assert.Equal(t, "Z", ColumnLetter(26))
	assert.Equal(t, "AA", ColumnLetter(27))
	assert.Equal(t, "AZ", ColumnLetter(52))
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "'Forecast'", QuoteSheetName("Forecast"))
	assert.Equal(t, "'Bob''s AP 2024'", QuoteSheetName("Bob's AP 2024"))
}
