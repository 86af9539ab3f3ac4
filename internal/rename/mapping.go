// =============================================================================
// NF-e to DANFE Converter - Rename Mapping Loader
// =============================================================================
//
// This module reads the access key -> file name mapping used by the renamer.
// Three sources are supported:
//   1. Two parallel lists (one key per line, one name per line)
//   2. A two-column CSV file (comma or semicolon separated)
//   3. A two-column XLSX workbook (first sheet unless one is named)
//
// A first row whose key cell holds no digit at all is taken as a header and
// skipped.
//
// =============================================================================

package rename

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMappingMismatch reports keys and names that cannot be paired.
var ErrMappingMismatch = errors.New("keys and names do not match")

// Entry pairs an access key with the desired file name.
type Entry struct {
	Key  string
	Name string
}

// FromLists pairs keys[i] with names[i]. Blank lines are dropped from both
// lists before pairing.
//
// RETURNS:
//   - The entries in input order.
//   - ErrMappingMismatch (wrapped) when the counts differ.
func FromLists(keys, names []string) ([]Entry, error) {
	keys, names = nonBlank(keys), nonBlank(names)
	if len(keys) != len(names) {
		return nil, fmt.Errorf("%w: %d key(s), %d name(s)", ErrMappingMismatch, len(keys), len(names))
	}

	entries := make([]Entry, len(keys))
	for i := range keys {
		entries[i] = Entry{Key: keys[i], Name: names[i]}
	}
	return entries, nil
}

// Load reads a mapping file, choosing the format by extension.
func Load(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, "")
	case ".csv", ".txt":
		return LoadCSV(path)
	}
	return nil, fmt.Errorf("unsupported mapping file %s (use .csv or .xlsx)", filepath.Base(path))
}

// =============================================================================
// CSV
// =============================================================================

// LoadCSV reads a two-column CSV mapping.
func LoadCSV(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	configureReader(reader, detectDelimiter(string(data)))

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse mapping file: %w", err)
		}
		rows = append(rows, record)
	}
	return fromRows(rows)
}

// configureReader sets up the CSV reader for hand-edited mapping files.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Allow variable number of fields per row; short rows are reported by
	// fromRows with their line number.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Trim leading space from fields.
	reader.TrimLeadingSpace = true
}

// detectDelimiter picks ';' when the first line uses it and has no comma.
// Spreadsheet exports with a Brazilian locale separate with semicolons.
func detectDelimiter(data string) rune {
	first, _, _ := strings.Cut(data, "\n")
	if strings.Contains(first, ";") && !strings.Contains(first, ",") {
		return ';'
	}
	return ','
}

// =============================================================================
// XLSX
// =============================================================================

// LoadXLSX reads a two-column mapping from sheet, or from the first sheet
// when sheet is empty.
func LoadXLSX(path, sheet string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("mapping workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return fromRows(rows)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func fromRows(rows [][]string) ([]Entry, error) {
	var entries []Entry

	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if i == 0 && NormalizeKey(row[0]) == "" {
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			return nil, fmt.Errorf("%w: row %d needs a key and a name", ErrMappingMismatch, i+1)
		}
		entries = append(entries, Entry{
			Key:  strings.TrimSpace(row[0]),
			Name: strings.TrimSpace(row[1]),
		})
	}
	return entries, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
