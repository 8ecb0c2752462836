package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestline/perf/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Inspect or run background jobs",
	Long: `Lists the registered jobs or runs one immediately.

Jobs:
- statistics_refresh: reload sources and notify live clients (REFRESH_SCHEDULE)
- metrics_snapshot:   persist daily metrics, database only (SNAPSHOT_SCHEDULE)
- cache_cleanup:      evict stale cache entries and idle rate limit buckets (CLEANUP_SCHEDULE)

Example:
  go run ./cmd/perf scheduler list
  go run ./cmd/perf scheduler run statistics_refresh`,
}

var (
	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(context.Background(), cfg, logger.Nop(), true)
	defer a.Close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	widths := []int{20, 20}
	PrintHeader("Registered jobs")
	PrintTableHeader([]string{"Job", "Schedule"}, widths)
	stats := s.GetJobStats()
	for _, name := range s.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(context.Background(), cfg, logger.New(cfg), true)
	defer a.Close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.RunNow(ctx, args[0])
	if err != nil {
		return err
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts: %s", result.JobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", result.JobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", result.JobName, result.Duration.Round(time.Millisecond)))
	return nil
}
