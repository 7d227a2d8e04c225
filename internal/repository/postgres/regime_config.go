package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// Compile-time check
var _ regime.ConfigRepository = (*RegimeConfigRepository)(nil)

// RegimeConfigRepository implements regime.ConfigRepository using sqlx
type RegimeConfigRepository struct {
	db DBTX
}

// NewRegimeConfigRepository creates a new regime config repository.
// Accepts DBTX so tests can run against a rolled-back transaction.
func NewRegimeConfigRepository(db DBTX) *RegimeConfigRepository {
	return &RegimeConfigRepository{db: db}
}

// GetDefault retrieves the default threshold config
func (r *RegimeConfigRepository) GetDefault(ctx context.Context) (*regime.Config, error) {
	var cfg regime.Config

	query := `SELECT * FROM regime_configs WHERE is_default = true LIMIT 1`

	err := r.db.GetContext(ctx, &cfg, query)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNoDefaultConfig, "no default regime config")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get default regime config")
	}

	return &cfg, nil
}

// GetByID retrieves a threshold config by ID
func (r *RegimeConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*regime.Config, error) {
	var cfg regime.Config

	query := `SELECT * FROM regime_configs WHERE id = $1`

	err := r.db.GetContext(ctx, &cfg, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "regime config not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get regime config")
	}

	return &cfg, nil
}

// Upsert inserts or updates a threshold config
func (r *RegimeConfigRepository) Upsert(ctx context.Context, cfg *regime.Config) error {
	query := `
		INSERT INTO regime_configs (
			id, name, is_default,
			breakout_cvd_z, breakout_price_atr, breakout_oi_z,
			breakout_taker_high, breakout_taker_low,
			stop_hunt_range_atr, stop_hunt_close_atr,
			exhaustion_rsi_high, exhaustion_rsi_low,
			trap_oi_z, absorption_price_atr,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			name = $2,
			is_default = $3,
			breakout_cvd_z = $4,
			breakout_price_atr = $5,
			breakout_oi_z = $6,
			breakout_taker_high = $7,
			breakout_taker_low = $8,
			stop_hunt_range_atr = $9,
			stop_hunt_close_atr = $10,
			exhaustion_rsi_high = $11,
			exhaustion_rsi_low = $12,
			trap_oi_z = $13,
			absorption_price_atr = $14,
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, cfg.IsDefault,
		cfg.BreakoutCVDZ, cfg.BreakoutPriceATR, cfg.BreakoutOIZ,
		cfg.BreakoutTakerHigh, cfg.BreakoutTakerLow,
		cfg.StopHuntRangeATR, cfg.StopHuntCloseATR,
		cfg.ExhaustionRSIHigh, cfg.ExhaustionRSILow,
		cfg.TrapOIZ, cfg.AbsorptionPriceATR,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert regime config")
	}

	return nil
}
