package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

const regimeConfigsDDL = `
CREATE TABLE IF NOT EXISTS regime_configs (
	id                   UUID PRIMARY KEY,
	name                 TEXT NOT NULL UNIQUE,
	is_default           BOOLEAN NOT NULL DEFAULT FALSE,
	breakout_cvd_z       DOUBLE PRECISION NOT NULL,
	breakout_price_atr   DOUBLE PRECISION NOT NULL,
	breakout_oi_z        DOUBLE PRECISION NOT NULL,
	breakout_taker_high  DOUBLE PRECISION NOT NULL,
	breakout_taker_low   DOUBLE PRECISION NOT NULL,
	stop_hunt_range_atr  DOUBLE PRECISION NOT NULL,
	stop_hunt_close_atr  DOUBLE PRECISION NOT NULL,
	exhaustion_rsi_high  DOUBLE PRECISION NOT NULL,
	exhaustion_rsi_low   DOUBLE PRECISION NOT NULL,
	trap_oi_z            DOUBLE PRECISION NOT NULL,
	absorption_price_atr DOUBLE PRECISION NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// at most one default config, enforced by the database rather than app logic
const regimeConfigsDefaultIdxDDL = `
CREATE UNIQUE INDEX IF NOT EXISTS regime_configs_one_default
ON regime_configs (is_default) WHERE is_default`

const regimeSnapshotsDDL = `
CREATE TABLE IF NOT EXISTS regime_snapshots (
	id          UUID PRIMARY KEY,
	symbol      TEXT NOT NULL,
	timeframe   TEXT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	regime      TEXT NOT NULL,
	direction   TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	reason      TEXT NOT NULL,
	cvd_ratio   DOUBLE PRECISION NOT NULL,
	oi_delta    DOUBLE PRECISION NOT NULL,
	taker_ratio DOUBLE PRECISION NOT NULL,
	price_atr   DOUBLE PRECISION NOT NULL,
	rsi         DOUBLE PRECISION NOT NULL,
	debug       JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const regimeSnapshotsPairIdxDDL = `
CREATE INDEX IF NOT EXISTS regime_snapshots_pair_time
ON regime_snapshots (symbol, timeframe, timestamp DESC)`

// EnsureSchema creates the regime tables if they do not exist.
// Idempotent, runs at startup.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	ddls := []string{
		regimeConfigsDDL,
		regimeConfigsDefaultIdxDDL,
		regimeSnapshotsDDL,
		regimeSnapshotsPairIdxDDL,
	}

	for _, ddl := range ddls {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return errors.Wrap(err, "ensure postgres schema")
		}
	}
	return nil
}
