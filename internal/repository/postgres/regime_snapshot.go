package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
)

// Compile-time check
var _ regime.SnapshotRepository = (*RegimeSnapshotRepository)(nil)

// RegimeSnapshotRepository implements regime.SnapshotRepository using sqlx
type RegimeSnapshotRepository struct {
	db DBTX
}

// NewRegimeSnapshotRepository creates a new regime snapshot repository.
// Accepts DBTX so tests can run against a rolled-back transaction.
func NewRegimeSnapshotRepository(db DBTX) *RegimeSnapshotRepository {
	return &RegimeSnapshotRepository{db: db}
}

// Store persists a classification result
func (r *RegimeSnapshotRepository) Store(ctx context.Context, c *regime.Classification) error {
	debugJSON, err := json.Marshal(c.Debug)
	if err != nil {
		return errors.Wrap(err, "failed to marshal debug payload")
	}

	query := `
		INSERT INTO regime_snapshots (
			id, symbol, timeframe, timestamp, regime, direction, confidence, reason,
			cvd_ratio, oi_delta, taker_ratio, price_atr, rsi, debug
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Symbol, c.Timeframe, c.Timestamp,
		c.Regime.String(), c.Direction.String(), c.Confidence, c.Reason,
		c.Indicators.CVDRatio, c.Indicators.OIDelta, c.Indicators.TakerRatio,
		c.Indicators.PriceATR, c.Indicators.RSI, debugJSON,
	)
	if err != nil {
		return errors.Wrap(err, "failed to store regime snapshot")
	}

	return nil
}

const snapshotColumns = `
	id, symbol, timeframe, timestamp, regime, direction, confidence, reason,
	cvd_ratio, oi_delta, taker_ratio, price_atr, rsi, debug`

// GetLatest retrieves the most recent classification for a symbol/timeframe
func (r *RegimeSnapshotRepository) GetLatest(ctx context.Context, symbol, timeframe string) (*regime.Classification, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM regime_snapshots
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY timestamp DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, symbol, timeframe)

	c, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "no regime snapshot")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest regime snapshot")
	}

	return c, nil
}

// GetHistory retrieves the most recent classifications, newest first
func (r *RegimeSnapshotRepository) GetHistory(ctx context.Context, symbol, timeframe string, limit int) ([]regime.Classification, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM regime_snapshots
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query regime snapshots")
	}
	defer rows.Close()

	var history []regime.Classification
	for rows.Next() {
		c, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan regime snapshot")
		}
		history = append(history, *c)
	}

	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*regime.Classification, error) {
	var c regime.Classification
	var regimeStr, directionStr string
	var debugJSON []byte

	err := row.Scan(
		&c.ID, &c.Symbol, &c.Timeframe, &c.Timestamp,
		&regimeStr, &directionStr, &c.Confidence, &c.Reason,
		&c.Indicators.CVDRatio, &c.Indicators.OIDelta, &c.Indicators.TakerRatio,
		&c.Indicators.PriceATR, &c.Indicators.RSI, &debugJSON,
	)
	if err != nil {
		return nil, err
	}

	c.Regime = regime.Type(regimeStr)
	c.Direction = regime.Direction(directionStr)

	if len(debugJSON) > 0 {
		if err := json.Unmarshal(debugJSON, &c.Debug); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal debug payload")
		}
	}

	return &c, nil
}
