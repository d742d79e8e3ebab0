// Command seed loads movies from a JSON file into the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/db"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/PeterWorld816/movieapi/internal/repo"
)

func main() {
	cfg, err := config.LoadStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	file := flag.String("file", cfg.MoviesSeedFile, "path to a JSON array of movies")
	flag.Parse()

	log := observability.NewLogger(cfg.Env)

	if err := run(cfg, *file, log); err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, file string, log *slog.Logger) error {
	if file == "" {
		return errors.New("no seed file: pass -file or set MOVIES_SEED_FILE")
	}
	if cfg.StoreDriver == config.StoreMemory {
		return errors.New("seeding the memory store has no effect")
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	movies, err := db.DecodeMovies(f)
	if err != nil {
		return err
	}

	ctx, cancel := config.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stores, err := repo.Open(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	n, err := db.SeedMovies(ctx, stores.Movies, movies)
	log.Info("movies seeded", "written", n, "total", len(movies), "store", cfg.StoreDriver)
	return err
}
