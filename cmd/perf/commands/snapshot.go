package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/internal/scheduler/jobs"
	"github.com/crestline/perf/pkg/logger"
)

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Metric snapshot history",
	Long: `Saves or lists daily metric snapshots. Requires DATABASE_URL.

Example:
  go run ./cmd/perf snapshot save
  go run ./cmd/perf snapshot list --period all --limit 10`,
}

var (
	snapshotSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save today's snapshot for every period",
		RunE:  runSnapshotSave,
	}

	snapshotListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent snapshots",
		RunE:  runSnapshotList,
	}
)

var (
	snapshotPeriod string
	snapshotLimit  int
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotListCmd)

	snapshotListCmd.Flags().StringVar(&snapshotPeriod, "period", "all", "ytd | 1y | 2y | all")
	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", history.DefaultLimit, "number of snapshots")
}

func openHistory(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := newApp(ctx, cfg, logger.New(cfg), true)
	if a.history == nil {
		a.Close()
		return nil, fmt.Errorf("snapshot history unavailable: check DATABASE_URL")
	}
	return a, nil
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	job := jobs.NewMetricsSnapshotJob(a.stats, a.history, "", a.log)
	date := time.Now()

	widths := []int{8, 8, 14, 12}
	PrintHeader("Metric snapshot " + date.Format("2006-01-02"))
	PrintTableHeader([]string{"Period", "Trades", "Total return", "Sharpe"}, widths)

	for _, period := range contracts.AllPeriods() {
		snap, err := job.SnapshotPeriod(ctx, period, date)
		if err != nil {
			PrintError(err.Error())
			return err
		}
		PrintTableRow([]string{
			string(period),
			strconv.Itoa(snap.TradeCount),
			pct(snap.Metrics.TotalReturn),
			num(snap.Metrics.SharpeRatio),
		}, widths)
	}

	PrintSuccess("Snapshots saved")
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	period, err := contracts.ParsePeriod(snapshotPeriod)
	if err != nil {
		return err
	}

	ctx := context.Background()

	a, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snaps, err := a.history.ListSnapshots(ctx, period, snapshotLimit)
	if err != nil {
		return err
	}

	widths := []int{12, 8, 14, 12, 14}
	PrintHeader(fmt.Sprintf("Snapshots (%s)", period))
	PrintTableHeader([]string{"Date", "Trades", "Total return", "Sharpe", "Max drawdown"}, widths)
	for _, s := range snaps {
		PrintTableRow([]string{
			s.Date.Format("2006-01-02"),
			strconv.Itoa(s.TradeCount),
			pct(s.Metrics.TotalReturn),
			num(s.Metrics.SharpeRatio),
			pct(s.Metrics.MaxDrawdown),
		}, widths)
	}

	if len(snaps) == 0 {
		PrintWarning("No snapshots yet")
	}
	return nil
}
