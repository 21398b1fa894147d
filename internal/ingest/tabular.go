package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// headerLookahead is how many leading lines a flat CSV export is scanned for
// the real header row. Amazon prepends banner/metadata rows of varying length.
const headerLookahead = 10

// table is a parsed spreadsheet with canonicalized column names. Columns not
// present in a loader's alias map keep their external name and simply go
// unused.
type table struct {
	headers []string
	rows    [][]string
	index   map[string]int
}

func newTable(headers []string, rows [][]string, aliases map[string]string) *table {
	canonical := make([]string, len(headers))
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if mapped, ok := aliases[name]; ok {
			name = mapped
		}
		canonical[i] = name
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return &table{headers: canonical, rows: rows, index: index}
}

// has reports whether the canonical column exists in this table.
func (t *table) has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// cell returns the trimmed value of the canonical column in the given row,
// or "" when the column is absent or the row is short.
func (t *table) cell(row []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// loadTable reads a CSV or XLSX export into a table. For CSVs the real header
// row is located by scanning for any of the marker column names within the
// lookahead window; not finding one is a hard error so an ambiguous partial
// parse is never returned silently.
func loadTable(path string, markers []string, aliases map[string]string) (*table, error) {
	if isSpreadsheet(path) {
		return loadXLSXTable(path, aliases)
	}
	return loadCSVTable(path, markers, aliases)
}

func isSpreadsheet(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

func loadCSVTable(path string, markers []string, aliases map[string]string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	lines := strings.Split(text, "\n")
	headerLine := -1
	for i, line := range lines {
		if i >= headerLookahead {
			break
		}
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				headerLine = i
				break
			}
		}
		if headerLine >= 0 {
			break
		}
	}
	if headerLine < 0 {
		return nil, fmt.Errorf("%s: no header row containing %q found in first %d lines",
			path, markers, headerLookahead)
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerLine:], "\n")))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return newTable(nil, nil, aliases), nil
	}
	return newTable(records[0], records[1:], aliases), nil
}

func loadXLSXTable(path string, aliases map[string]string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return newTable(nil, nil, aliases), nil
	}
	return sheetTable(f, sheets[0], aliases)
}

// sheetTable reads one named worksheet into a table. A missing sheet is not
// an error here; callers decide whether an absent sheet degrades or fails.
func sheetTable(f *excelize.File, sheet string, aliases map[string]string) (*table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return newTable(nil, nil, aliases), nil
	}
	return newTable(rows[0], rows[1:], aliases), nil
}

// --- Cell coercion ---
//
// Business data here is manually-exported spreadsheets: malformed numeric
// cells coerce to zero rather than raising. Representation is detected per
// cell ("2.50%" vs "0.025", "$0.72" vs "0.72") so a transform is never
// applied twice.

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func blankOrNaN(s string) bool {
	switch normalizeLower(s) {
	case "", "nan", "n/a", "-", "—":
		return true
	}
	return false
}

// parseFloatCell coerces a numeric cell, defaulting to 0 on malformed input.
func parseFloatCell(s string) float64 {
	if blankOrNaN(s) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseIntCell coerces an integer cell, accepting float representations
// ("3.0") that spreadsheet round-trips produce.
func parseIntCell(s string) int {
	return int(parseFloatCell(s))
}

// parseCurrencyCell coerces "$1,234.56" or a plain number to a float.
func parseCurrencyCell(s string) float64 {
	s = strings.ReplaceAll(s, "$", "")
	return parseFloatCell(s)
}

// parsePercentCell coerces a percentage to a fraction. "2.50%" becomes 0.025;
// a bare number is taken as an already-converted fraction and passed through.
func parsePercentCell(s string) float64 {
	if strings.Contains(s, "%") {
		return parseFloatCell(strings.ReplaceAll(s, "%", "")) / 100
	}
	return parseFloatCell(s)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01", // KDP royalty months
}

// parseDateCell parses a date cell, returning nil when unparseable. Missing
// dates are tracked as absent, never defaulted.
func parseDateCell(s string) *time.Time {
	s = strings.TrimSpace(s)
	if blankOrNaN(s) {
		return nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// unwrapTargeting strips ASIN targeting wrapper syntax, handling both
// asin="B01K1T4U5U" and asin-expanded="B01K1T4U5U".
func unwrapTargeting(s string) string {
	s = strings.ReplaceAll(s, `asin-expanded="`, "")
	s = strings.ReplaceAll(s, `asin="`, "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
