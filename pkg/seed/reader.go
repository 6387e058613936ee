package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rubiojr/fmcsa/pkg/records"
)

var (
	ErrEmptySource       = errors.New("source contains no records")
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrMissingColumn     = errors.New("required column missing from header")
)

// ParseError reports a cell that could not be coerced into its column type.
// Row is the 1-based spreadsheet row, the header being row 1.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadFile reads every record from an .xlsx or .csv file. sheet selects the
// worksheet of a workbook; empty means the first one. Any malformed cell
// fails the whole read.
func ReadFile(path, sheet string) ([]records.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, sheet)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySource
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// normalizeHeader maps "Legal Name" and "LEGAL_NAME" onto legal_name.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// parseRows maps the header row onto record columns and coerces every data
// row. Unknown columns are ignored and blank rows skipped.
func parseRows(rows [][]string) ([]records.Record, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		name := normalizeHeader(h)
		if !records.IsColumn(name) {
			continue
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Row: 1, Column: col, Err: ErrMissingColumn}
		}
	}

	recs := make([]records.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var r records.Record
		for _, col := range records.Columns {
			i, ok := index[col]
			if !ok {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if err := setField(&r, col, value); err != nil {
				return nil, &ParseError{Row: n + 2, Column: col, Value: value, Err: err}
			}
		}
		recs = append(recs, r)
	}
	if len(recs) == 0 {
		return nil, ErrEmptySource
	}
	return recs, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
