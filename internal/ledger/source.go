package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"apdash/internal/sheets"
)

// Source returns the raw ledger table: a header row followed by data rows.
type Source interface {
	Fetch(ctx context.Context) ([][]string, error)
	Name() string
}

// RangeReader reads A1 ranges from a spreadsheet.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// SheetsSource reads one worksheet through the Google Sheets API.
type SheetsSource struct {
	reader    RangeReader
	worksheet string
}

// NewSheetsSource creates a source over the given worksheet (tab) name.
func NewSheetsSource(reader RangeReader, worksheet string) *SheetsSource {
	return &SheetsSource{reader: reader, worksheet: worksheet}
}

func (s *SheetsSource) Name() string {
	return "sheets:" + s.worksheet
}

// Fetch reads columns A:Z of the worksheet.
func (s *SheetsSource) Fetch(ctx context.Context) ([][]string, error) {
	const op = "SheetsSource.Fetch"

	rangeSpec := sheets.QuoteSheetName(s.worksheet) + "!A:Z"
	values, err := s.reader.ReadRange(ctx, rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j := range row {
			cells[j] = getString(row, j)
		}
		rows[i] = cells
	}
	return rows, nil
}

// CSVExportSource downloads the public CSV export of a Google Sheet.
type CSVExportSource struct {
	URL    string
	Client *http.Client
}

// NewCSVExportSource builds the export address from a sheet URL or ID.
func NewCSVExportSource(sheetURL string, timeout time.Duration) (*CSVExportSource, error) {
	const op = "NewCSVExportSource"

	exportURL, err := sheets.ExportURL(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CSVExportSource{
		URL:    exportURL,
		Client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *CSVExportSource) Name() string {
	return s.URL
}

func (s *CSVExportSource) Fetch(ctx context.Context) ([][]string, error) {
	const op = "CSVExportSource.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	rows, err := readCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// FileSource reads a CSV file from disk.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Fetch(ctx context.Context) ([][]string, error) {
	const op = "FileSource.Fetch"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	rows, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// readCSV reads a whole CSV document, tolerating ragged rows and stray quotes.
func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
