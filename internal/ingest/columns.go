package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMissingColumn is wrapped by MissingColumnError
var ErrMissingColumn = errors.New("required column not found")

// Field is a logical column, independent of how the sheet spells it
type Field string

const (
	FieldTicker      Field = "ticker"
	FieldPosition    Field = "position"
	FieldEntryDate   Field = "entry_date"
	FieldExitDate    Field = "exit_date"
	FieldEntryPrice  Field = "entry_price"
	FieldExitPrice   Field = "exit_price"
	FieldPnLPercent  Field = "pnl_percent"
	FieldExposure    Field = "exposure"
	FieldMaxDrawdown Field = "max_drawdown"

	FieldDate  Field = "date"
	FieldValue Field = "value"
)

// MissingColumnError names the logical field that could not be located
type MissingColumnError struct {
	Source string
	Field  Field
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Source, ErrMissingColumn.Error(), e.Field)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

type fieldSpec struct {
	field    Field
	required bool
	synonyms []string
}

// Field order matters: a column claimed by an earlier field is not offered to later ones.
var tradeFields = []fieldSpec{
	{FieldTicker, true, []string{"ticker", "symbol", "stock", "instrument", "security", "name"}},
	{FieldEntryDate, true, []string{"entry date", "open date", "date in", "buy date", "opened", "entry"}},
	{FieldExitDate, true, []string{"exit date", "close date", "date out", "sell date", "closed", "exit"}},
	{FieldEntryPrice, false, []string{"entry price", "open price", "buy price", "avg entry", "cost"}},
	{FieldExitPrice, false, []string{"exit price", "close price", "sell price", "avg exit"}},
	{FieldPnLPercent, true, []string{"pnl %", "p&l %", "pnl percent", "pnl pct", "return %", "gain %", "profit %", "pnl", "p&l", "return"}},
	{FieldExposure, true, []string{"exposure", "portfolio exposure", "portfolio %", "allocation", "position size", "size %", "weight"}},
	{FieldMaxDrawdown, false, []string{"max drawdown", "max dd", "drawdown", "mae"}},
	{FieldPosition, false, []string{"position", "side", "direction", "long/short", "type"}},
}

var benchmarkFields = []fieldSpec{
	{FieldDate, true, []string{"date", "trading day", "day", "as of"}},
	{FieldValue, true, []string{"close", "adj close", "close price", "value", "index", "level", "price"}},
}

// ColumnMap maps logical fields to 0-based column indexes
type ColumnMap map[Field]int

// Index returns the column for f, or -1 when the optional column is absent
func (m ColumnMap) Index(f Field) int {
	if idx, ok := m[f]; ok {
		return idx
	}
	return -1
}

// Has reports whether the column was located
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// MapColumns resolves specs against a header row
func MapColumns(source string, header []string, specs []fieldSpec) (ColumnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	claimed := make(map[int]bool, len(header))
	cols := make(ColumnMap, len(specs))

	for _, spec := range specs {
		idx := findColumn(normalized, claimed, spec.synonyms)
		if idx < 0 {
			if spec.required {
				return nil, &MissingColumnError{Source: source, Field: spec.field}
			}
			continue
		}
		claimed[idx] = true
		cols[spec.field] = idx
	}

	return cols, nil
}

func findColumn(normalized []string, claimed map[int]bool, synonyms []string) int {
	for _, syn := range synonyms {
		want := normalizeHeader(syn)
		for i, h := range normalized {
			if !claimed[i] && h == want {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader lowercases, spells out % and &, and drops everything
// that is not a letter or digit: "P&L %" → "pandlpct"
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '%':
			b.WriteString("pct")
		case r == '&':
			b.WriteString("and")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}
