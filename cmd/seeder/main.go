package main

import (
	"context"
	"flag"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/config"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/regime"
	pgrepo "github.com/yekaipow/Hyper-Alpha-Arena2/internal/repository/postgres"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Seeds the baseline classification thresholds. Safe to run repeatedly:
// an existing default config is left alone unless -force is given.
func main() {
	force := flag.Bool("force", false, "Reset the default config thresholds to the baseline values")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infow("Starting seeder",
		"database", cfg.Postgres.Database,
		"force", *force,
	)

	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// the seeder often runs before the service ever started on this database
	if err := pgrepo.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	repo := pgrepo.NewRegimeConfigRepository(db)

	existing, err := repo.GetDefault(ctx)
	switch {
	case err == nil && !*force:
		log.Infow("Default config already present, nothing to do",
			"id", existing.ID,
			"name", existing.Name,
		)
		return

	case err == nil && *force:
		// keep the id so stored snapshots and experiment references survive
		baseline := regime.DefaultConfig()
		baseline.ID = existing.ID
		baseline.Name = existing.Name
		if err := repo.Upsert(ctx, baseline); err != nil {
			log.Fatalf("Failed to reset default config: %v", err)
		}
		log.Infow("✅ Default config reset to baseline", "id", baseline.ID)
		return

	case errors.Is(err, errors.ErrNoDefaultConfig):
		baseline := regime.DefaultConfig()
		if err := repo.Upsert(ctx, baseline); err != nil {
			log.Fatalf("Failed to seed default config: %v", err)
		}
		log.Infow("✅ Default config seeded",
			"id", baseline.ID,
			"name", baseline.Name,
		)
		return

	default:
		log.Fatalf("Failed to look up default config: %v", err)
	}
}
