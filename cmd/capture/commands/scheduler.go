package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/solarcapture/internal/scheduler"
	"github.com/wonny/solarcapture/internal/scheduler/jobs"
	"github.com/wonny/solarcapture/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the recompute scheduler",
	Long: `Starts the scheduler daemon or runs its jobs by hand.

Subcommands:
  start   - start the scheduler
  list    - list registered jobs and their schedules
  run     - run one job now and wait for it

Example:
  go run ./cmd/capture scheduler start
  go run ./cmd/capture scheduler list
  go run ./cmd/capture scheduler run window_recompute`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler and registers every job.

Registered jobs:
- window_recompute: RECOMPUTE_SCHEDULE (default daily 06:00 UTC)
- full_rollup: FULL_ROLLUP_SCHEDULE (default Sunday 06:30 UTC)

Stop with Ctrl+C; running jobs are canceled and awaited.`,
		RunE: runScheduler,
	}

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
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers the recompute jobs against the app's controller
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewWindowRecomputeJob(a.controller, a.cfg.Recompute.Schedule, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewFullRollupJob(a.controller, a.cfg.Recompute.FullRollupSchedule, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Solar Capture Scheduler ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Listing needs schedules only, so no storage connection is opened.
	sched := scheduler.New(logger.Nop())
	_ = sched.AddJob(jobs.NewWindowRecomputeJob(nil, cfg.Recompute.Schedule, logger.Nop()))
	_ = sched.AddJob(jobs.NewFullRollupJob(nil, cfg.Recompute.FullRollupSchedule, logger.Nop()))

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	widths := []int{18, 16, 20, 38, 6, 6, 6}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "LAST RUN", "RUN ID", "OK", "SKIP", "FAIL"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow(jobRow(name, stats[name]), widths)
	}
}

// jobRow renders a job's schedule and the unit counts of its last run
func jobRow(name string, st scheduler.JobStats) []string {
	row := []string{name, st.Schedule, "-", "-", "-", "-", "-"}
	last := st.LastResult
	if last == nil {
		return row
	}

	row[2] = last.StartTime.UTC().Format("2006-01-02 15:04:05")
	if !last.Success {
		row[2] += " ✗"
	}
	if last.RunID != "" {
		row[3] = last.RunID
	}
	row[4] = strconv.Itoa(last.Succeeded)
	row[5] = strconv.Itoa(last.Skipped)
	row[6] = strconv.Itoa(last.Failed)
	return row
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := sched.RunJobSync(ctx, jobName)
	printJobResult(result)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if result.HasUnitFailures() {
		PrintWarning(fmt.Sprintf("Job %s completed with %d failed unit(s) in %s",
			jobName, result.Failed, result.Duration.Round(time.Millisecond)))
		return nil
	}
	PrintSuccess(fmt.Sprintf("Job %s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

func printJobResult(r scheduler.JobResult) {
	if r.RunID == "" {
		return
	}
	fmt.Println()
	PrintSeparator()
	PrintKeyValue("Run ID", r.RunID, 10)
	PrintKeyValue("Kind", r.Kind, 10)
	PrintKeyValue("Attempts", strconv.Itoa(r.Attempts), 10)
	PrintKeyValue("Succeeded", strconv.Itoa(r.Succeeded), 10)
	PrintKeyValue("Skipped", strconv.Itoa(r.Skipped), 10)
	PrintKeyValue("Failed", strconv.Itoa(r.Failed), 10)
	PrintKeyValue("Daily rows", strconv.Itoa(r.DailyRows), 10)
	PrintSeparator()
}
