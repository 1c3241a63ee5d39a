// Package recompute drives the daily aggregator and the rollup engine.
//
// A windowed run replaces daily rows for a trailing window only and then
// rebuilds the touched months. A full run walks every (zone, month) unit of
// history, skipping units that are already complete, so an interrupted run can
// simply be started again.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/daily"
	"github.com/wonny/solarcapture/internal/rollup"
	"github.com/wonny/solarcapture/pkg/config"
	"github.com/wonny/solarcapture/pkg/logger"
	"github.com/wonny/solarcapture/pkg/retry"
)

// Run kinds reported in RunSummary.Kind
const (
	KindWindow = "window"
	KindFull   = "full"
	KindRollup = "rollup"
)

// Controller 재계산 컨트롤러
type Controller struct {
	observations contracts.ObservationStore
	metrics      contracts.MetricStore
	aggregator   *daily.Aggregator
	engine       *rollup.Engine
	cfg          config.RecomputeConfig
	log          *logger.Logger

	retryable func(error) bool
	reconnect func(ctx context.Context) error
	afterRun  []func(ctx context.Context, s *contracts.RunSummary)
}

// Option customises a Controller
type Option func(*Controller)

// WithRetryable limits retries to errors the classifier accepts
func WithRetryable(fn func(error) bool) Option {
	return func(c *Controller) { c.retryable = fn }
}

// WithReconnect installs the hook run between failed attempts
func WithReconnect(fn func(ctx context.Context) error) Option {
	return func(c *Controller) { c.reconnect = fn }
}

// WithAfterRun registers a callback invoked after every successful run
func WithAfterRun(fn func(ctx context.Context, s *contracts.RunSummary)) Option {
	return func(c *Controller) { c.afterRun = append(c.afterRun, fn) }
}

// FullOptions tunes a full recompute
type FullOptions struct {
	// Force recomputes units that are already complete
	Force bool
}

// NewController validates cfg and wires the aggregator and rollup engine
func NewController(
	observations contracts.ObservationStore,
	metrics contracts.MetricStore,
	cfg config.RecomputeConfig,
	log *logger.Logger,
	opts ...Option,
) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recompute config: %w", err)
	}

	c := &Controller{
		observations: observations,
		metrics:      metrics,
		aggregator:   daily.NewAggregator(observations, metrics, log.Zerolog()),
		engine:       rollup.NewEngine(metrics, log.Zerolog()),
		cfg:          cfg,
		log:          log.WithModule("recompute"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// policy builds the retry policy for one storage call
func (c *Controller) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.cfg.MaxAttempts,
		Step:        c.cfg.BackoffStep,
		Retryable:   c.retryable,
		OnRetry: func(ctx context.Context, attempt int, err error) error {
			c.log.WithError(err).WithFields(map[string]interface{}{
				"attempt": attempt,
				"backoff": c.cfg.BackoffStep * time.Duration(attempt),
			}).Warn("storage call failed, retrying")
			if c.reconnect != nil {
				if rerr := c.reconnect(ctx); rerr != nil {
					c.log.WithError(rerr).Warn("reconnect failed")
				}
			}
			return nil
		},
	}
}

func (c *Controller) newSummary(kind string) *contracts.RunSummary {
	return &contracts.RunSummary{
		RunID:     uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

// RunTrailing recomputes the configured number of days before now, plus today
func (c *Controller) RunTrailing(ctx context.Context, now time.Time) (*contracts.RunSummary, error) {
	w, err := contracts.TrailingWindow(now, c.cfg.WindowDays)
	if err != nil {
		return nil, err
	}
	return c.RunWindow(ctx, w)
}

// RunWindow deletes every daily row whose day lies in w, re-aggregates each
// zone over w and rebuilds the months the window touches. Per-zone failures
// are reported in the summary; a rollup failure fails the run.
func (c *Controller) RunWindow(ctx context.Context, w contracts.Window) (*contracts.RunSummary, error) {
	summary := c.newSummary(KindWindow)
	summary.Window = &w
	log := c.log.WithFields(map[string]interface{}{"run_id": summary.RunID, "window": w.String()})
	log.Info("window recompute started")

	zones, err := retry.Value(ctx, c.policy(), c.observations.Zones)
	if err != nil {
		return summary, fmt.Errorf("list zones: %w", err)
	}

	var deleted int64
	err = c.policy().Do(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = c.metrics.DeleteDailyInWindow(ctx, w)
		return err
	})
	if err != nil {
		return summary, fmt.Errorf("delete daily rows in %s: %w", w, err)
	}

	tasks := make([]task, 0, len(zones))
	for _, zone := range zones {
		tasks = append(tasks, task{unit: contracts.UnitKey{ZoneID: zone}, windows: []contracts.Window{w}})
	}
	c.collect(summary, c.runPool(ctx, tasks, true))

	scope, err := c.windowScope(ctx, zones, w)
	if err != nil {
		return summary, err
	}
	if err := c.rebuild(ctx, scope); err != nil {
		return summary, err
	}

	c.finish(ctx, summary)
	log.WithFields(map[string]interface{}{
		"deleted":   deleted,
		"zones":     len(zones),
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"rows":      summary.DailyRows,
		"duration":  summary.Duration.String(),
	}).Info("window recompute completed")

	return summary, nil
}

// windowScope lists the monthly keys a window run may have changed: every
// month of the window for every zone that has or had rows
func (c *Controller) windowScope(ctx context.Context, zones []string, w contracts.Window) ([]contracts.MonthKey, error) {
	existing, err := retry.Value(ctx, c.policy(), func(ctx context.Context) ([]contracts.MonthlyMetric, error) {
		return c.metrics.MonthlyMetrics(ctx, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("read monthly rows: %w", err)
	}

	all := make(map[string]bool, len(zones))
	for _, z := range zones {
		all[z] = true
	}
	for _, m := range existing {
		all[m.ZoneID] = true
	}

	var scope []contracts.MonthKey
	for zone := range all {
		for _, ym := range w.Months() {
			scope = append(scope, contracts.MonthKey{ZoneID: zone, Month: ym.Month})
		}
	}
	return rollup.UniqueKeys(scope), nil
}

// RunFullRollup rebuilds monthly, yearly and total rows from all daily rows
func (c *Controller) RunFullRollup(ctx context.Context) (*contracts.RunSummary, error) {
	summary := c.newSummary(KindRollup)

	if err := c.rebuild(ctx, nil); err != nil {
		return summary, err
	}
	summary.Succeeded = 1

	c.finish(ctx, summary)
	c.log.WithFields(map[string]interface{}{
		"run_id":   summary.RunID,
		"duration": summary.Duration.String(),
	}).Info("full rollup completed")
	return summary, nil
}

// RunFull recomputes every (zone, month) unit of history, each covering all
// observed years of that month. Units whose latest year already has a
// non-zero capture price are skipped unless opts.Force is set. A unit
// that exhausts its retries is recorded as failed and the run continues.
func (c *Controller) RunFull(ctx context.Context, opts FullOptions) (*contracts.RunSummary, error) {
	summary := c.newSummary(KindFull)
	log := c.log.WithField("run_id", summary.RunID)

	units, err := retry.Value(ctx, c.policy(), c.observations.Periods)
	if err != nil {
		return summary, fmt.Errorf("list periods: %w", err)
	}

	tasks := groupUnits(units)
	log.WithFields(map[string]interface{}{
		"periods": len(units),
		"units":   len(tasks),
		"workers": c.cfg.Workers,
		"force":   opts.Force,
	}).Info("full recompute started")

	c.collect(summary, c.runPool(ctx, tasks, opts.Force))

	if err := ctx.Err(); err != nil {
		summary.Duration = time.Since(summary.StartedAt)
		return summary, fmt.Errorf("full recompute interrupted: %w", err)
	}

	if err := c.rebuild(ctx, nil); err != nil {
		return summary, err
	}

	c.finish(ctx, summary)
	log.WithFields(map[string]interface{}{
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"duration":  summary.Duration.String(),
	}).Info("full recompute completed")

	return summary, nil
}

// groupUnits merges the years of each (zone, month) into one task. Daily rows
// are keyed without the year, so the years of one month must be written by
// one task, oldest first, for the latest year to win deterministically.
func groupUnits(units []contracts.UnitKey) []task {
	byKey := make(map[contracts.MonthKey][]contracts.UnitKey)
	var order []contracts.MonthKey
	for _, u := range units {
		k := contracts.MonthKey{ZoneID: u.ZoneID, Month: u.Month}
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], u)
	}

	tasks := make([]task, 0, len(order))
	for _, k := range order {
		years := byKey[k]
		sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

		t := task{unit: years[len(years)-1]}
		for _, u := range years {
			t.windows = append(t.windows, u.Period().Window())
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func (c *Controller) collect(summary *contracts.RunSummary, results []taskResult) {
	for _, r := range results {
		switch {
		case r.err != nil:
			summary.Failed++
			summary.FailedUnits = append(summary.FailedUnits, contracts.UnitFailure{Unit: r.unit, Error: r.err.Error()})
		case r.skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
			summary.DailyRows += len(r.rows)
		}
	}
	sort.Slice(summary.FailedUnits, func(i, j int) bool {
		return summary.FailedUnits[i].Unit.String() < summary.FailedUnits[j].Unit.String()
	})
}

func (c *Controller) rebuild(ctx context.Context, scope []contracts.MonthKey) error {
	err := c.policy().Do(ctx, func(ctx context.Context) error {
		_, err := c.engine.Rebuild(ctx, scope)
		return err
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = exhausted.Err
		}
		return fmt.Errorf("rollup: %w", err)
	}
	return nil
}

func (c *Controller) finish(ctx context.Context, summary *contracts.RunSummary) {
	summary.Duration = time.Since(summary.StartedAt)
	for _, fn := range c.afterRun {
		fn(ctx, summary)
	}
}
