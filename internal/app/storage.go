package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/vocalia/internal/config"
	"github.com/riskibarqy/vocalia/internal/domain/ledger"
	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/domain/player"
	"github.com/riskibarqy/vocalia/internal/domain/roster"
	cacherepo "github.com/riskibarqy/vocalia/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/postgres"
	basecache "github.com/riskibarqy/vocalia/internal/platform/cache"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

type repositories struct {
	matches match.Repository
	rosters roster.Repository
	ledger  ledger.Repository
	players player.Repository
	close   func(context.Context) error
}

func openRepositories(ctx context.Context, cfg config.Config, logger *logging.Logger) (repositories, error) {
	var repos repositories

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			_ = db.Close()
			return repositories{}, fmt.Errorf("bootstrap seed: %w", err)
		}
		repos = repositories{
			matches: postgres.NewMatchRepository(db),
			rosters: postgres.NewRosterRepository(db),
			ledger:  postgres.NewEventRepository(db),
			players: postgres.NewPlayerRepository(db),
			close: func(context.Context) error {
				return db.Close()
			},
		}
		logger.Info("storage ready", "driver", config.StoragePostgres, "db_name", dbNameFromURL(cfg.DBURL))
	default:
		repos = repositories{
			matches: memory.NewMatchRepository(memory.SeedMatches()),
			rosters: memory.NewRosterRepository(),
			ledger:  memory.NewEventRepository(),
			players: memory.NewPlayerRepository(memory.SeedPlayers()),
		}
		logger.Info("storage ready", "driver", config.StorageMemory)
	}

	if cfg.CacheEnabled {
		repos.players = cacherepo.NewPlayerRepository(repos.players, basecache.NewStore(cfg.CacheTTL))
	}

	return repos, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.ServiceName, cfg.DBBinaryParameters)

	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(cfg.DBURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	otelsql.ReportDBStatsMetrics(db.DB)

	return db, nil
}
