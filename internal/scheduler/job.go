package scheduler

import (
	"context"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
)

// Job is a recompute task the scheduler fires on a cron schedule
type Job interface {
	Name() string

	// Run executes the job and returns the summary of the recompute run it
	// drove. A nil summary with a nil error means there was nothing to do.
	Run(ctx context.Context) (*contracts.RunSummary, error)

	// Schedule returns the cron expression, seconds first
	// Examples: "0 0 6 * * *" (every day at 06:00), "@daily"
	Schedule() string
}

// JobResult is one execution of a job. The unit counts come from the last
// attempt's run summary and are zero when the job returned none.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts"`

	RunID     string `json:"run_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	DailyRows int    `json:"daily_rows"`
}

// applySummary copies the run's identity and unit counts into the result
func (r *JobResult) applySummary(s *contracts.RunSummary) {
	if s == nil {
		return
	}
	r.RunID = s.RunID
	r.Kind = s.Kind
	r.Succeeded = s.Succeeded
	r.Skipped = s.Skipped
	r.Failed = s.Failed
	r.DailyRows = s.DailyRows
}

// HasUnitFailures reports whether the run finished with failed units
func (r JobResult) HasUnitFailures() bool {
	return r.Failed > 0
}

const maxHistory = 100

// JobHistory keeps the most recent results of a job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// GetLatestResults returns the latest n results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Latest returns the most recent result, if any
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// GetFailedResults returns the runs that returned an error
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the share of runs without an error (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results))
}

// UnitTotals sums the unit counts over every recorded run
func (h *JobHistory) UnitTotals() (succeeded, skipped, failed int) {
	for _, r := range h.Results {
		succeeded += r.Succeeded
		skipped += r.Skipped
		failed += r.Failed
	}
	return succeeded, skipped, failed
}
