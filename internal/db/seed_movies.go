package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PeterWorld816/movieapi/internal/domain/movie"
)

// DecodeMovies reads a JSON array of movies.
func DecodeMovies(r io.Reader) ([]movie.Movie, error) {
	var movies []movie.Movie

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&movies); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}

	for i, m := range movies {
		if strings.TrimSpace(m.Title) == "" {
			return nil, fmt.Errorf("movie #%d: title is required", i)
		}
	}
	return movies, nil
}

// SeedMovies upserts every movie by title and reports how many were written.
// It keeps going after a failure and returns all errors joined.
func SeedMovies(ctx context.Context, repo movie.Repository, movies []movie.Movie) (int, error) {
	var (
		n    int
		errs []error
	)

	for _, m := range movies {
		if _, err := repo.Upsert(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("upsert %q: %w", m.Title, err))
			continue
		}
		n++
	}

	return n, errors.Join(errs...)
}
