package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/solarcapture/internal/contracts"
)

// MetricRepository implements contracts.MetricStore
// ⭐ SSOT: summary_* 테이블 쓰기는 여기서만
type MetricRepository struct {
	pool *pgxpool.Pool
}

var _ contracts.MetricStore = (*MetricRepository)(nil)

// NewMetricRepository creates a new metric repository
func NewMetricRepository(pool *pgxpool.Pool) *MetricRepository {
	return &MetricRepository{pool: pool}
}

const metricColumns = `neg_hours, avg_market_price, capture_price, capture_price_floor0, capture_rate, solar_at_neg_price_pct`

func metricArgs(m contracts.Metrics) []any {
	return []any{m.NegHours, m.AvgMarketPrice, m.CapturePrice, m.CapturePriceFloor0, m.CaptureRate, m.SolarAtNegPricePct}
}

func metricDest(m *contracts.Metrics) []any {
	return []any{&m.NegHours, &m.AvgMarketPrice, &m.CapturePrice, &m.CapturePriceFloor0, &m.CaptureRate, &m.SolarAtNegPricePct}
}

func monthDays(days []time.Time) (months, dayNums []int32) {
	for _, d := range days {
		months = append(months, int32(d.Month()))
		dayNums = append(dayNums, int32(d.Day()))
	}
	return months, dayNums
}

// ReplaceDaily deletes the zone's rows for days and inserts rows in one transaction
func (r *MetricRepository) ReplaceDaily(ctx context.Context, zone string, days []time.Time, rows []contracts.DailyMetric) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	months, dayNums := monthDays(days)
	_, err = tx.Exec(ctx, `
		DELETE FROM summary_daily
		WHERE country = $1
		  AND (month, day) IN (SELECT * FROM unnest($2::int[], $3::int[]))
	`, zone, months, dayNums)
	if err != nil {
		return fmt.Errorf("delete daily rows: %w", err)
	}

	query := `
		INSERT INTO summary_daily (country, year, month, day, ` + metricColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (country, month, day) DO UPDATE SET
			year = EXCLUDED.year,
			neg_hours = EXCLUDED.neg_hours,
			avg_market_price = EXCLUDED.avg_market_price,
			capture_price = EXCLUDED.capture_price,
			capture_price_floor0 = EXCLUDED.capture_price_floor0,
			capture_rate = EXCLUDED.capture_rate,
			solar_at_neg_price_pct = EXCLUDED.solar_at_neg_price_pct
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		args := append([]any{row.ZoneID, row.Year, row.Month, row.Day}, metricArgs(row.Metrics)...)
		batch.Queue(query, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert daily rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteDailyInWindow deletes rows of every zone whose (month, day) falls in w
func (r *MetricRepository) DeleteDailyInWindow(ctx context.Context, w contracts.Window) (int64, error) {
	months, dayNums := monthDays(w.Days())

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM summary_daily
		WHERE (month, day) IN (SELECT * FROM unnest($1::int[], $2::int[]))
	`, months, dayNums)
	if err != nil {
		return 0, fmt.Errorf("delete daily rows in window: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DailyMetrics returns rows matching filter sorted by (zone, year, month, day)
func (r *MetricRepository) DailyMetrics(ctx context.Context, filter contracts.DailyFilter) ([]contracts.DailyMetric, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ZoneID != "" {
		args = append(args, filter.ZoneID)
		conds = append(conds, fmt.Sprintf("country = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Month != 0 {
		args = append(args, filter.Month)
		conds = append(conds, fmt.Sprintf("month = $%d", len(args)))
	}

	query := `SELECT country, year, month, day, ` + metricColumns + ` FROM summary_daily`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY country, year, month, day"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily rows: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.DailyMetric, 0)
	for rows.Next() {
		var d contracts.DailyMetric
		dest := append([]any{&d.ZoneID, &d.Year, &d.Month, &d.Day}, metricDest(&d.Metrics)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UnitCompleted reports whether any daily row of the unit has a non-zero capture price
func (r *MetricRepository) UnitCompleted(ctx context.Context, unit contracts.UnitKey) (bool, error) {
	var done bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM summary_daily
			WHERE country = $1 AND year = $2 AND month = $3 AND capture_price <> 0
		)
	`, unit.ZoneID, unit.Year, unit.Month).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("check unit %s: %w", unit, err)
	}
	return done, nil
}

// ReplaceMonthly deletes keys and inserts rows in one transaction. Nil keys clears the table.
func (r *MetricRepository) ReplaceMonthly(ctx context.Context, keys []contracts.MonthKey, rows []contracts.MonthlyMetric) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if keys == nil {
		_, err = tx.Exec(ctx, `DELETE FROM summary_monthly`)
	} else {
		zones := make([]string, len(keys))
		months := make([]int32, len(keys))
		for i, k := range keys {
			zones[i], months[i] = k.ZoneID, int32(k.Month)
		}
		_, err = tx.Exec(ctx, `
			DELETE FROM summary_monthly
			WHERE (country, month) IN (SELECT * FROM unnest($1::text[], $2::int[]))
		`, zones, months)
	}
	if err != nil {
		return fmt.Errorf("delete monthly rows: %w", err)
	}

	query := `INSERT INTO summary_monthly (country, month, ` + metricColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, append([]any{row.ZoneID, row.Month}, metricArgs(row.Metrics)...)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert monthly rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// MonthlyMetrics returns rows for zones, or all rows when zones is empty
func (r *MetricRepository) MonthlyMetrics(ctx context.Context, zones []string) ([]contracts.MonthlyMetric, error) {
	query := `SELECT country, month, ` + metricColumns + ` FROM summary_monthly`
	var args []any
	if len(zones) > 0 {
		query += ` WHERE country = ANY($1)`
		args = append(args, zones)
	}
	query += ` ORDER BY country, month`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query monthly rows: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.MonthlyMetric, 0)
	for rows.Next() {
		var m contracts.MonthlyMetric
		if err := rows.Scan(append([]any{&m.ZoneID, &m.Month}, metricDest(&m.Metrics)...)...); err != nil {
			return nil, fmt.Errorf("scan monthly row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const aggregateColumns = `total_neg_hours, avg_market_price, capture_price, capture_price_floor0, capture_rate, solar_at_neg_price_pct`

// ReplaceYearly replaces the yearly table in one transaction
func (r *MetricRepository) ReplaceYearly(ctx context.Context, rows []contracts.YearlyMetric) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM summary_yearly`); err != nil {
		return fmt.Errorf("delete yearly rows: %w", err)
	}

	query := `INSERT INTO summary_yearly (country, ` + aggregateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, append([]any{row.ZoneID}, metricArgs(row.Metrics)...)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert yearly rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// YearlyMetrics returns every yearly row sorted by zone
func (r *MetricRepository) YearlyMetrics(ctx context.Context) ([]contracts.YearlyMetric, error) {
	rows, err := r.pool.Query(ctx, `SELECT country, `+aggregateColumns+` FROM summary_yearly ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("query yearly rows: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.YearlyMetric, 0)
	for rows.Next() {
		var y contracts.YearlyMetric
		if err := rows.Scan(append([]any{&y.ZoneID}, metricDest(&y.Metrics)...)...); err != nil {
			return nil, fmt.Errorf("scan yearly row: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

// ReplaceTotal upserts the single total row
func (r *MetricRepository) ReplaceTotal(ctx context.Context, row contracts.TotalMetric) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO summary_total (id, `+aggregateColumns+`)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			total_neg_hours = EXCLUDED.total_neg_hours,
			avg_market_price = EXCLUDED.avg_market_price,
			capture_price = EXCLUDED.capture_price,
			capture_price_floor0 = EXCLUDED.capture_price_floor0,
			capture_rate = EXCLUDED.capture_rate,
			solar_at_neg_price_pct = EXCLUDED.solar_at_neg_price_pct
	`, metricArgs(row.Metrics)...)
	if err != nil {
		return fmt.Errorf("upsert total row: %w", err)
	}
	return nil
}

// Total returns the total row or contracts.ErrNotFound
func (r *MetricRepository) Total(ctx context.Context) (contracts.TotalMetric, error) {
	var t contracts.TotalMetric
	err := r.pool.QueryRow(ctx, `SELECT `+aggregateColumns+` FROM summary_total WHERE id = 1`).Scan(metricDest(&t.Metrics)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.TotalMetric{}, contracts.ErrNotFound
	}
	if err != nil {
		return contracts.TotalMetric{}, fmt.Errorf("query total row: %w", err)
	}
	return t, nil
}
