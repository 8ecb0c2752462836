package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/perf/internal/contracts"
)

func TestTradeRange(t *testing.T) {
	d := func(m, day int) time.Time { return time.Date(2024, time.Month(m), day, 0, 0, 0, 0, time.UTC) }

	first, last, ok := tradeRange([]contracts.TradeRecord{
		{EntryDate: d(3, 1), ExitDate: d(3, 5)},
		{EntryDate: d(1, 10), ExitDate: d(2, 1)},
		{EntryDate: d(4, 2), ExitDate: d(6, 30)},
	})

	assert.True(t, ok)
	assert.Equal(t, "2024-01-10", first)
	assert.Equal(t, "2024-06-30", last)

	_, _, ok = tradeRange(nil)
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "12.35%", pct(12.346))
	assert.Equal(t, "-0.50", num(-0.5))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"api", "compute", "check-data", "snapshot", "scheduler"} {
		assert.True(t, names[want], want)
	}
}

func TestCheckDataRetriesFlag(t *testing.T) {
	f := checkDataCmd.Flags().Lookup("retries")
	require.NotNil(t, f)
	assert.Equal(t, "2", f.DefValue)
}
