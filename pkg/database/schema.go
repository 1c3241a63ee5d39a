package database

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
//
// energy_prices / generation_per_type are written by the acquisition jobs and
// only read here. summary_* tables are owned by the recompute engine.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS energy_prices (
		area_code         TEXT             NOT NULL,
		area_display_name TEXT             NOT NULL DEFAULT '',
		datetime_utc      TIMESTAMPTZ      NOT NULL,
		resolution_code   TEXT             NOT NULL,
		price             DOUBLE PRECISION NOT NULL,
		sequence          TEXT,
		contract_type     TEXT             NOT NULL DEFAULT 'Day-ahead',
		currency          TEXT             NOT NULL DEFAULT 'EUR'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_energy_prices_area_dt
		ON energy_prices (area_code, datetime_utc)`,

	`CREATE TABLE IF NOT EXISTS generation_per_type (
		area_code                TEXT             NOT NULL,
		area_display_name        TEXT             NOT NULL DEFAULT '',
		datetime_utc             TIMESTAMPTZ      NOT NULL,
		resolution_code          TEXT             NOT NULL,
		production_type          TEXT             NOT NULL,
		actual_generation_output DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_area_type_dt
		ON generation_per_type (area_code, production_type, datetime_utc)`,

	`CREATE TABLE IF NOT EXISTS summary_daily (
		country                TEXT             NOT NULL,
		year                   SMALLINT         NOT NULL,
		month                  SMALLINT         NOT NULL,
		day                    SMALLINT         NOT NULL,
		neg_hours              DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_market_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price          DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price_floor0   DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
		solar_at_neg_price_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (country, month, day)
	)`,

	`CREATE TABLE IF NOT EXISTS summary_monthly (
		country                TEXT             NOT NULL,
		month                  SMALLINT         NOT NULL,
		neg_hours              DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_market_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price          DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price_floor0   DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
		solar_at_neg_price_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (country, month)
	)`,

	`CREATE TABLE IF NOT EXISTS summary_yearly (
		country                TEXT             PRIMARY KEY,
		total_neg_hours        DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_market_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price          DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price_floor0   DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
		solar_at_neg_price_pct DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS summary_total (
		id                     SMALLINT         PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		total_neg_hours        DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_market_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price          DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_price_floor0   DOUBLE PRECISION NOT NULL DEFAULT 0,
		capture_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
		solar_at_neg_price_pct DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
}

// Migrate creates the observation and summary tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
