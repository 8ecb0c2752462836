package contracts

import "time"

// SkippedRow records a spreadsheet row the normalizer rejected
type SkippedRow struct {
	Source string `json:"source"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Dataset is the output of one load cycle
// ⭐ SSOT: Loader → Performance service contract. Never mutated after load.
type Dataset struct {
	Trades    []TradeRecord    `json:"trades"`
	Benchmark []BenchmarkPoint `json:"benchmark"`
	Skipped   []SkippedRow     `json:"skipped"`
	LoadedAt  time.Time        `json:"loaded_at"`
}

// SkippedCount returns how many rows were dropped across both files
func (d *Dataset) SkippedCount() int {
	return len(d.Skipped)
}

// DateRange returns the earliest entry and the latest exit across trades
func (d *Dataset) DateRange() (time.Time, time.Time) {
	var first, last time.Time
	for i, t := range d.Trades {
		if i == 0 || t.EntryDate.Before(first) {
			first = t.EntryDate
		}
		if i == 0 || t.ExitDate.After(last) {
			last = t.ExitDate
		}
	}
	return first, last
}
