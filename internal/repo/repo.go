// Package repo opens the configured credential and movie stores.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/db"
	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/PeterWorld816/movieapi/internal/repo/memory"
	"github.com/PeterWorld816/movieapi/internal/repo/mongodb"
	"github.com/PeterWorld816/movieapi/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Stores struct {
	Users  user.Repository
	Movies movie.Repository

	// Ping backs the readiness probe.
	Ping  func(ctx context.Context) error
	Close func()
}

// Open connects to the store named by cfg.StoreDriver and prepares its
// schema (migrations or indexes) before returning.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return openMongo(ctx, cfg, prom, log)
	case config.StorePostgres:
		return openPostgres(ctx, cfg, prom, log)
	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return Stores{
			Users:  memory.NewUsersRepo(cfg.EnforceUniqueUsername),
			Movies: memory.NewMoviesRepo(),
			Ping:   func(context.Context) error { return nil },
			Close:  func() {},
		}, nil
	default:
		return Stores{}, fmt.Errorf("repo: unknown store driver %q", cfg.StoreDriver)
	}
}

func openMongo(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (Stores, error) {
	mdb, err := dialWithRetry(ctx, log, cfg.StoreDriver, func(ctx context.Context) (*db.MongoDB, error) {
		return db.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	})
	if err != nil {
		return Stores{}, fmt.Errorf("connect mongo: %w", err)
	}

	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := mongodb.EnsureIndexes(idxCtx, mdb.Database(), cfg.EnforceUniqueUsername); err != nil {
		_ = mdb.Close(context.Background())
		return Stores{}, err
	}
	log.Info("mongo connected", "db", cfg.MongoDB, "unique_username", cfg.EnforceUniqueUsername)

	return Stores{
		Users:  mongodb.NewUsersRepo(mdb.Database(), prom),
		Movies: mongodb.NewMoviesRepo(mdb.Database(), prom),
		Ping:   mdb.Ping,
		Close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mdb.Close(ctx)
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (Stores, error) {
	pool, err := dialWithRetry(ctx, log, cfg.StoreDriver, func(ctx context.Context) (*pgxpool.Pool, error) {
		return db.NewPool(ctx, cfg.DBURL, 10)
	})
	if err != nil {
		return Stores{}, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return Stores{}, err
	}

	users := postgres.NewUsersRepo(pool, prom)
	if cfg.EnforceUniqueUsername {
		if err := users.EnsureUniqueUsername(ctx); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("unique username index: %w", err)
		}
	}
	log.Info("postgres connected", "unique_username", cfg.EnforceUniqueUsername)

	return Stores{
		Users:  users,
		Movies: postgres.NewMoviesRepo(pool, prom),
		Ping:   pool.Ping,
		Close:  pool.Close,
	}, nil
}
