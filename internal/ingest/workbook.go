package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrSheetNotFound is returned when a named sheet is absent
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNoDataRows is returned when a sheet has a header but no data
	ErrNoDataRows = errors.New("no data rows")
)

// Table is a sheet as raw cell text. Header holds the first non-empty row,
// Rows the remaining non-empty rows with their 1-based spreadsheet row numbers.
type Table struct {
	Source  string
	Header  []string
	Rows    [][]string
	RowNums []int
}

// ReadTable decodes a workbook (or CSV, by extension) into a Table.
// Cell values are read raw so dates arrive as serial numbers.
func ReadTable(data []byte, location, sheet string) (*Table, error) {
	var rows [][]string
	var err error

	if strings.EqualFold(path.Ext(stripQuery(location)), ".csv") {
		rows, err = readCSV(data)
	} else {
		rows, err = readWorkbook(data, sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	t, err := newTable(location, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return t, nil
}

func readWorkbook(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrSheetNotFound
	}

	if sheet == "" {
		sheet = sheets[0]
	} else if name, ok := findFold(sheets, sheet); ok {
		sheet = name
	} else {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func newTable(source string, rows [][]string) (*Table, error) {
	t := &Table{Source: source}

	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
		t.RowNums = append(t.RowNums, i+1)
	}

	if len(t.Rows) < 1 {
		return nil, ErrNoDataRows
	}

	return t, nil
}

// Cell returns the trimmed value at column idx of data row i, "" if absent
func (t *Table) Cell(i, idx int) string {
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func findFold(list []string, s string) (string, bool) {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}
