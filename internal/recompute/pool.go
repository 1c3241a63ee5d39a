package recompute

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wonny/solarcapture/internal/contracts"
)

// task is one unit of work: recompute a zone's daily rows over windows that
// share daily keys, oldest first
type task struct {
	unit    contracts.UnitKey
	windows []contracts.Window
}

// taskResult reports what happened to a task
type taskResult struct {
	unit    contracts.UnitKey
	rows    []contracts.DailyMetric
	skipped bool
	err     error
}

// runPool fans tasks out to workers and collects one result per dispatched
// task. Once ctx is done no new task starts; undispatched tasks report ctx.Err().
func (c *Controller) runPool(ctx context.Context, tasks []task, force bool) []taskResult {
	workers := c.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var limiter *rate.Limiter
	if c.cfg.UnitsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.UnitsPerSecond), 1)
	}

	resultCh := make(chan taskResult, len(tasks))
	taskCh := make(chan task, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, limiter, force, taskCh, resultCh)
		}(i)
	}

	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]taskResult, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

func (c *Controller) worker(ctx context.Context, workerID int, limiter *rate.Limiter, force bool, taskCh <-chan task, resultCh chan<- taskResult) {
	for t := range taskCh {
		if err := ctx.Err(); err != nil {
			resultCh <- taskResult{unit: t.unit, err: err}
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				resultCh <- taskResult{unit: t.unit, err: err}
				continue
			}
		}

		resultCh <- c.runTask(ctx, workerID, t, force)
	}
}

func (c *Controller) runTask(ctx context.Context, workerID int, t task, force bool) taskResult {
	log := c.log.WithFields(map[string]interface{}{
		"worker": workerID,
		"unit":   t.unit.String(),
	})

	if !force {
		done, err := c.unitCompleted(ctx, t.unit)
		if err != nil {
			log.WithError(err).Error("resume check failed")
			return taskResult{unit: t.unit, err: err}
		}
		if done {
			log.Debug("unit already complete, skipping")
			return taskResult{unit: t.unit, skipped: true}
		}
	}

	var rows []contracts.DailyMetric
	err := c.policy().Do(ctx, func(ctx context.Context) error {
		var err error
		rows, err = c.aggregator.AggregateZoneSpan(ctx, t.unit.ZoneID, t.windows)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("unit canceled")
		} else {
			log.WithError(err).Error("unit failed")
		}
		return taskResult{unit: t.unit, err: err}
	}

	log.WithField("rows", len(rows)).Debug("unit recomputed")
	return taskResult{unit: t.unit, rows: rows}
}

func (c *Controller) unitCompleted(ctx context.Context, unit contracts.UnitKey) (bool, error) {
	if unit.Year == 0 {
		return false, nil
	}
	var done bool
	err := c.policy().Do(ctx, func(ctx context.Context) error {
		var err error
		done, err = c.metrics.UnitCompleted(ctx, unit)
		return err
	})
	return done, err
}
