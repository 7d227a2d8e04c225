package regime

import (
	"context"

	"github.com/google/uuid"
)

// ConfigRepository defines access to classification threshold configs (Postgres)
type ConfigRepository interface {
	GetDefault(ctx context.Context) (*Config, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Config, error)
	Upsert(ctx context.Context, cfg *Config) error
}

// SnapshotRepository defines access to stored classification results (Postgres)
type SnapshotRepository interface {
	Store(ctx context.Context, c *Classification) error
	GetLatest(ctx context.Context, symbol, timeframe string) (*Classification, error)
	GetHistory(ctx context.Context, symbol, timeframe string, limit int) ([]Classification, error)
}
