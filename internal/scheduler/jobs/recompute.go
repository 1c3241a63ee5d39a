package jobs

import (
	"context"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/pkg/logger"
)

// WindowRunner recomputes the trailing window ending at now
type WindowRunner interface {
	RunTrailing(ctx context.Context, now time.Time) (*contracts.RunSummary, error)
}

// RollupRunner rebuilds monthly, yearly and total summaries from daily rows
type RollupRunner interface {
	RunFullRollup(ctx context.Context) (*contracts.RunSummary, error)
}

// WindowRecomputeJob refreshes the trailing window of daily rows and the
// rollups that depend on them.
type WindowRecomputeJob struct {
	runner   WindowRunner
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewWindowRecomputeJob creates a new window recompute job
func NewWindowRecomputeJob(runner WindowRunner, schedule string, log *logger.Logger) *WindowRecomputeJob {
	return &WindowRecomputeJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *WindowRecomputeJob) Name() string {
	return "window_recompute"
}

// Schedule returns the cron schedule
func (j *WindowRecomputeJob) Schedule() string {
	return j.schedule
}

// Run executes the window recompute. Unit failures are reported in the
// summary and do not fail the job.
func (j *WindowRecomputeJob) Run(ctx context.Context) (*contracts.RunSummary, error) {
	j.logger.Debug("Starting scheduled window recompute")

	summary, err := j.runner.RunTrailing(ctx, j.now().UTC())
	if err != nil {
		return summary, err
	}

	logSummary(j.logger, summary)
	return summary, nil
}

// FullRollupJob rebuilds every rollup from the stored daily rows
type FullRollupJob struct {
	runner   RollupRunner
	schedule string
	logger   *logger.Logger
}

// NewFullRollupJob creates a new full rollup job
func NewFullRollupJob(runner RollupRunner, schedule string, log *logger.Logger) *FullRollupJob {
	return &FullRollupJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *FullRollupJob) Name() string {
	return "full_rollup"
}

// Schedule returns the cron schedule
func (j *FullRollupJob) Schedule() string {
	return j.schedule
}

// Run executes the rollup rebuild
func (j *FullRollupJob) Run(ctx context.Context) (*contracts.RunSummary, error) {
	j.logger.Debug("Starting scheduled full rollup")

	summary, err := j.runner.RunFullRollup(ctx)
	if err != nil {
		return summary, err
	}

	logSummary(j.logger, summary)
	return summary, nil
}

func logSummary(log *logger.Logger, s *contracts.RunSummary) {
	if s == nil {
		return
	}

	entry := log.WithFields(map[string]interface{}{
		"run_id":     s.RunID,
		"kind":       s.Kind,
		"succeeded":  s.Succeeded,
		"skipped":    s.Skipped,
		"failed":     s.Failed,
		"daily_rows": s.DailyRows,
		"duration":   s.Duration.String(),
	})
	if s.HasFailures() {
		for _, f := range s.FailedUnits {
			log.WithFields(map[string]interface{}{
				"run_id": s.RunID,
				"unit":   f.Unit.String(),
				"error":  f.Error,
			}).Warn("Unit failed")
		}
		entry.Warn("Recompute finished with failed units")
		return
	}
	entry.Info("Recompute finished")
}
