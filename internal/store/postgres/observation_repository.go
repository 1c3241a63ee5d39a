// Package postgres implements the observation and metric stores on pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/solarcapture/internal/contracts"
)

// ObservationRepository implements contracts.ObservationStore
// ⭐ SSOT: 관측 데이터 조회는 여기서만
type ObservationRepository struct {
	pool *pgxpool.Pool
}

var _ contracts.ObservationStore = (*ObservationRepository)(nil)

// NewObservationRepository creates a new observation repository
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

// Zones lists every zone with price or generation observations
func (r *ObservationRepository) Zones(ctx context.Context) ([]string, error) {
	query := `
		SELECT area_code FROM energy_prices
		UNION
		SELECT area_code FROM generation_per_type
		ORDER BY 1
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	zones, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan zones: %w", err)
	}
	return zones, nil
}

// Periods lists every (zone, year, month) with price observations
func (r *ObservationRepository) Periods(ctx context.Context) ([]contracts.UnitKey, error) {
	query := `
		SELECT DISTINCT
			area_code,
			EXTRACT(YEAR FROM datetime_utc AT TIME ZONE 'UTC')::int  AS year,
			EXTRACT(MONTH FROM datetime_utc AT TIME ZONE 'UTC')::int AS month
		FROM energy_prices
		ORDER BY year, month, area_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var units []contracts.UnitKey
	for rows.Next() {
		var u contracts.UnitKey
		if err := rows.Scan(&u.ZoneID, &u.Year, &u.Month); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// PriceObservations returns the zone's prices in [from, to)
func (r *ObservationRepository) PriceObservations(ctx context.Context, zone string, from, to time.Time) ([]contracts.PriceObservation, error) {
	query := `
		SELECT area_code, datetime_utc, resolution_code, price, sequence, contract_type
		FROM energy_prices
		WHERE area_code = $1
		  AND datetime_utc >= $2 AND datetime_utc < $3
		  AND resolution_code IN ('PT60M', 'PT15M')
		ORDER BY datetime_utc, resolution_code
	`

	rows, err := r.pool.Query(ctx, query, zone, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []contracts.PriceObservation
	for rows.Next() {
		var (
			p   contracts.PriceObservation
			res string
		)
		if err := rows.Scan(&p.ZoneID, &p.Timestamp, &res, &p.Price, &p.RevisionSequence, &p.ContractType); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		p.Resolution = contracts.Resolution(res)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GenerationObservations returns the zone's output of productionType in [from, to)
func (r *ObservationRepository) GenerationObservations(ctx context.Context, zone, productionType string, from, to time.Time) ([]contracts.GenerationObservation, error) {
	query := `
		SELECT area_code, datetime_utc, resolution_code, production_type, actual_generation_output
		FROM generation_per_type
		WHERE area_code = $1
		  AND production_type = $2
		  AND datetime_utc >= $3 AND datetime_utc < $4
		ORDER BY datetime_utc
	`

	rows, err := r.pool.Query(ctx, query, zone, productionType, from, to)
	if err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}
	defer rows.Close()

	var out []contracts.GenerationObservation
	for rows.Next() {
		var (
			g   contracts.GenerationObservation
			res string
		)
		if err := rows.Scan(&g.ZoneID, &g.Timestamp, &res, &g.ProductionType, &g.OutputMW); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.Timestamp = g.Timestamp.UTC()
		g.Resolution = contracts.Resolution(res)
		out = append(out, g)
	}
	return out, rows.Err()
}

// SavePrices bulk-loads price observations with COPY
func (r *ObservationRepository) SavePrices(ctx context.Context, obs []contracts.PriceObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"energy_prices"},
		[]string{"area_code", "datetime_utc", "resolution_code", "price", "sequence", "contract_type"},
		pgx.CopyFromSlice(len(obs), func(i int) ([]any, error) {
			o := obs[i]
			return []any{o.ZoneID, o.Timestamp.UTC(), string(o.Resolution), o.Price, o.RevisionSequence, o.ContractType}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy prices: %w", err)
	}
	return n, nil
}

// SaveGeneration bulk-loads generation observations with COPY
func (r *ObservationRepository) SaveGeneration(ctx context.Context, obs []contracts.GenerationObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"generation_per_type"},
		[]string{"area_code", "datetime_utc", "resolution_code", "production_type", "actual_generation_output"},
		pgx.CopyFromSlice(len(obs), func(i int) ([]any, error) {
			o := obs[i]
			return []any{o.ZoneID, o.Timestamp.UTC(), string(o.Resolution), o.ProductionType, o.OutputMW}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy generation: %w", err)
	}
	return n, nil
}
