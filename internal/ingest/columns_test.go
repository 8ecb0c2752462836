package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapColumns_Trades(t *testing.T) {
	header := []string{"Symbol", "Side", "Entry Date", "Exit Date", "Entry Price", "Exit Price", "P&L %", "Portfolio %", "Max DD"}

	cols, err := MapColumns("trades.xlsx", header, tradeFields)
	require.NoError(t, err)

	assert.Equal(t, 0, cols.Index(FieldTicker))
	assert.Equal(t, 1, cols.Index(FieldPosition))
	assert.Equal(t, 2, cols.Index(FieldEntryDate))
	assert.Equal(t, 3, cols.Index(FieldExitDate))
	assert.Equal(t, 4, cols.Index(FieldEntryPrice))
	assert.Equal(t, 5, cols.Index(FieldExitPrice))
	assert.Equal(t, 6, cols.Index(FieldPnLPercent))
	assert.Equal(t, 7, cols.Index(FieldExposure))
	assert.Equal(t, 8, cols.Index(FieldMaxDrawdown))
}

func TestMapColumns_OptionalAbsent(t *testing.T) {
	header := []string{"ticker", "entry date", "exit date", "pnl", "exposure"}

	cols, err := MapColumns("trades.csv", header, tradeFields)
	require.NoError(t, err)

	assert.False(t, cols.Has(FieldMaxDrawdown))
	assert.Equal(t, -1, cols.Index(FieldEntryPrice))
	assert.True(t, cols.Has(FieldExposure))
}

func TestMapColumns_MissingRequired(t *testing.T) {
	header := []string{"Ticker", "Entry Date", "Exit Date", "Return %"}

	_, err := MapColumns("trades.xlsx", header, tradeFields)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)

	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, FieldExposure, mce.Field)
	assert.Contains(t, err.Error(), "trades.xlsx")
}

func TestMapColumns_Benchmark(t *testing.T) {
	cols, err := MapColumns("bench.xlsx", []string{"Date", "Open", "High", "Low", "Close", "Volume"}, benchmarkFields)
	require.NoError(t, err)

	assert.Equal(t, 0, cols.Index(FieldDate))
	assert.Equal(t, 4, cols.Index(FieldValue))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "pandlpct", normalizeHeader("P&L %"))
	assert.Equal(t, "entrydate", normalizeHeader(" Entry_Date "))
	assert.Equal(t, "longshort", normalizeHeader("Long/Short"))
}
