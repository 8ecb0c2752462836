package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute statistics once and print them",
	Long: `Loads the trade log and benchmark, computes the statistics for one
period and prints them. No server, cache or database is involved.

Example:
  go run ./cmd/perf compute
  go run ./cmd/perf compute --period 1y
  go run ./cmd/perf compute --trades ./trades.csv --benchmark ./index.xlsx --json`,
	RunE: runCompute,
}

var (
	computePeriod    string
	computeTrades    string
	computeBenchmark string
	computeJSON      bool
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computePeriod, "period", "all", "ytd | 1y | 2y | all")
	computeCmd.Flags().StringVar(&computeTrades, "trades", "", "trade log path or URL (default from TRADES_SOURCE)")
	computeCmd.Flags().StringVar(&computeBenchmark, "benchmark", "", "benchmark path or URL (default from BENCHMARK_SOURCE)")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "print the full statistics as JSON")
}

func runCompute(cmd *cobra.Command, args []string) error {
	period, err := contracts.ParsePeriod(computePeriod)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if computeTrades != "" {
		cfg.Data.TradesSource = computeTrades
	}
	if computeBenchmark != "" {
		cfg.Data.BenchmarkSource = computeBenchmark
	}

	log := logger.Nop()
	if verbose {
		log = logger.New(cfg)
	}

	ctx := context.Background()
	a := newApp(ctx, cfg, log, false)
	defer a.Close()

	ds, err := a.stats.Load(ctx)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	q := performance.DefaultQuery()
	q.Period = period
	st := a.stats.Compute(ds, q)

	if computeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printStatistics(st)
	return nil
}

func printStatistics(st *performance.Statistics) {
	m := st.Metrics

	PrintHeader(fmt.Sprintf("Performance (%s)", st.Period))
	PrintKeyValue("Window", fmt.Sprintf("%s ~ %s", st.StartDate.Format("2006-01-02"), st.EndDate.Format("2006-01-02")), 20)
	PrintKeyValue("Series", string(st.SeriesMode), 20)
	PrintKeyValue("Skipped rows", strconv.Itoa(st.SkippedRows), 20)
	PrintSeparator()

	widths := []int{24, 14}
	PrintTableHeader([]string{"Metric", "Value"}, widths)

	rows := [][]string{
		{"Total return", pct(m.TotalReturn)},
		{"Annualized return", pct(m.AnnualizedReturn)},
		{"Volatility", pct(m.Volatility)},
		{"Sharpe ratio", num(m.SharpeRatio)},
		{"Sortino ratio", num(m.SortinoRatio)},
		{"Max drawdown", fmt.Sprintf("%s (%s)", pct(m.MaxDrawdown), m.DrawdownMethod)},
		{"Trades", strconv.Itoa(m.TotalTrades)},
		{"Win rate", pct(m.WinRate)},
		{"Average win", pct(m.AverageWin)},
		{"Average loss", pct(m.AverageLoss)},
		{"Profit factor", num(m.ProfitFactor)},
		{"Expectancy", pct(m.Expectancy)},
		{"Avg holding days", num(m.AverageHoldingDays)},
		{"Benchmark return", pct(m.BenchmarkReturn)},
		{"Excess return", pct(m.ExcessReturn)},
		{"Alpha", num(m.Alpha)},
		{"Beta", num(m.Beta)},
	}
	for _, row := range rows {
		PrintTableRow(row, widths)
	}
	PrintDoubleSeparator()

	if m.IsOutperforming() {
		PrintSuccess("Outperforming the benchmark")
	}
}
