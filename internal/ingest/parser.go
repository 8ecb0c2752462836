package ingest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/pkg/logger"
)

// ErrNoValidRows is returned when every data row of a sheet was rejected
var ErrNoValidRows = errors.New("no valid rows")

// Parser turns raw tables into normalized records
// ⭐ SSOT: row validation and unit reconciliation happen only here
type Parser struct {
	logger *logger.Logger
}

// NewParser creates a new parser
func NewParser(log *logger.Logger) *Parser {
	return &Parser{logger: log}
}

// ParseTrades normalizes every row of the trade table. Bad rows are skipped
// and reported; the call fails only when no row survives.
func (p *Parser) ParseTrades(t *Table) ([]contracts.TradeRecord, []contracts.SkippedRow, error) {
	cols, err := MapColumns(t.Source, t.Header, tradeFields)
	if err != nil {
		return nil, nil, err
	}

	trades := make([]contracts.TradeRecord, 0, len(t.Rows))
	var skipped []contracts.SkippedRow

	for i := range t.Rows {
		rec, err := p.parseTradeRow(t, cols, i)
		if err != nil {
			skipped = append(skipped, p.skip(t, i, err))
			continue
		}
		trades = append(trades, rec)
	}

	if len(trades) == 0 {
		return nil, skipped, fmt.Errorf("%s: %w (%d rejected)", t.Source, ErrNoValidRows, len(skipped))
	}

	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].ExitDate.Equal(trades[j].ExitDate) {
			return trades[i].EntryDate.Before(trades[j].EntryDate)
		}
		return trades[i].ExitDate.Before(trades[j].ExitDate)
	})

	return trades, skipped, nil
}

func (p *Parser) parseTradeRow(t *Table, cols ColumnMap, i int) (contracts.TradeRecord, error) {
	rec := contracts.TradeRecord{Row: t.RowNums[i]}

	rec.Ticker = strings.ToUpper(t.Cell(i, cols.Index(FieldTicker)))
	if rec.Ticker == "" {
		return rec, errors.New("missing ticker")
	}

	var err error
	if rec.Position, err = ParsePosition(t.Cell(i, cols.Index(FieldPosition))); err != nil {
		return rec, err
	}

	if rec.EntryDate, err = ParseDate(t.Cell(i, cols.Index(FieldEntryDate))); err != nil {
		return rec, fmt.Errorf("entry date: %w", err)
	}

	exitRaw := t.Cell(i, cols.Index(FieldExitDate))
	if exitRaw == "" {
		return rec, errors.New("open position (no exit date)")
	}
	if rec.ExitDate, err = ParseDate(exitRaw); err != nil {
		return rec, fmt.Errorf("exit date: %w", err)
	}
	if rec.ExitDate.Before(rec.EntryDate) {
		return rec, fmt.Errorf("exit date %s before entry date %s",
			rec.ExitDate.Format("2006-01-02"), rec.EntryDate.Format("2006-01-02"))
	}

	if rec.PnLPercent, err = ParseNumber(t.Cell(i, cols.Index(FieldPnLPercent))); err != nil {
		return rec, fmt.Errorf("pnl: %w", err)
	}

	exposure, err := ParseNumber(t.Cell(i, cols.Index(FieldExposure)))
	if err != nil {
		return rec, fmt.Errorf("exposure: %w", err)
	}
	if rec.Exposure, err = NormalizeExposure(exposure); err != nil {
		return rec, err
	}

	// Optional columns: a malformed value is dropped, not fatal
	rec.EntryPrice = p.optionalNumber(t, i, cols.Index(FieldEntryPrice))
	rec.ExitPrice = p.optionalNumber(t, i, cols.Index(FieldExitPrice))

	if raw := t.Cell(i, cols.Index(FieldMaxDrawdown)); raw != "" {
		if dd, err := ParseNumber(raw); err == nil {
			rec.MaxDrawdown = math.Abs(dd)
			rec.HasDrawdown = true
		}
	}

	rec.Derive()
	return rec, nil
}

func (p *Parser) optionalNumber(t *Table, i, idx int) float64 {
	raw := t.Cell(i, idx)
	if raw == "" {
		return 0
	}
	v, err := ParseNumber(raw)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"source": t.Source,
			"row":    t.RowNums[i],
			"value":  raw,
		}).Debug("Ignoring malformed optional value")
		return 0
	}
	return v
}

// ParseBenchmark normalizes the benchmark table into raw (date, value) points
func (p *Parser) ParseBenchmark(t *Table) ([]contracts.BenchmarkPoint, []contracts.SkippedRow, error) {
	cols, err := MapColumns(t.Source, t.Header, benchmarkFields)
	if err != nil {
		return nil, nil, err
	}

	points := make([]contracts.BenchmarkPoint, 0, len(t.Rows))
	var skipped []contracts.SkippedRow

	for i := range t.Rows {
		date, err := ParseDate(t.Cell(i, cols.Index(FieldDate)))
		if err != nil {
			skipped = append(skipped, p.skip(t, i, fmt.Errorf("date: %w", err)))
			continue
		}

		value, err := ParseNumber(t.Cell(i, cols.Index(FieldValue)))
		if err != nil {
			skipped = append(skipped, p.skip(t, i, fmt.Errorf("value: %w", err)))
			continue
		}
		if value <= 0 {
			skipped = append(skipped, p.skip(t, i, fmt.Errorf("non-positive index value %v", value)))
			continue
		}

		points = append(points, contracts.BenchmarkPoint{Date: date, Value: value})
	}

	if len(points) == 0 {
		return nil, skipped, fmt.Errorf("%s: %w (%d rejected)", t.Source, ErrNoValidRows, len(skipped))
	}

	return points, skipped, nil
}

func (p *Parser) skip(t *Table, i int, reason error) contracts.SkippedRow {
	row := contracts.SkippedRow{
		Source: t.Source,
		Row:    t.RowNums[i],
		Reason: reason.Error(),
	}

	p.logger.WithFields(map[string]interface{}{
		"source": row.Source,
		"row":    row.Row,
		"reason": row.Reason,
	}).Warn("Skipping malformed row")

	return row
}
