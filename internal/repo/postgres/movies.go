package postgres

import (
	"context"
	"errors"

	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const movieColumns = `id, title, description, genre_name, genre_description,
	director_name, director_bio, director_birth_year, director_death_year, image_url, featured`

type MoviesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMoviesRepo(pool *pgxpool.Pool, prom *observability.Prom) *MoviesRepo {
	return &MoviesRepo{pool: pool, prom: prom}
}

func (r *MoviesRepo) List(ctx context.Context) ([]movie.Movie, error) {
	var out []movie.Movie

	err := r.prom.ObserveDB("movies.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMovie(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []movie.Movie{}
	}
	return out, nil
}

func (r *MoviesRepo) FindByID(ctx context.Context, id string) (movie.Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return movie.Movie{}, movie.ErrNotFound
	}
	return r.findOne(ctx, "movies.find_by_id", `WHERE id = $1`, id)
}

func (r *MoviesRepo) FindByTitle(ctx context.Context, title string) (movie.Movie, error) {
	return r.findOne(ctx, "movies.find_by_title", `WHERE title = $1`, title)
}

func (r *MoviesRepo) GenreByName(ctx context.Context, name string) (movie.Genre, error) {
	m, err := r.findOne(ctx, "movies.genre_by_name", `WHERE lower(genre_name) = lower($1) LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, movie.ErrNotFound) {
			return movie.Genre{}, movie.ErrGenreNotFound
		}
		return movie.Genre{}, err
	}
	return m.Genre, nil
}

func (r *MoviesRepo) DirectorByName(ctx context.Context, name string) (movie.Director, error) {
	m, err := r.findOne(ctx, "movies.director_by_name", `WHERE lower(director_name) = lower($1) LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, movie.ErrNotFound) {
			return movie.Director{}, movie.ErrDirectorNotFound
		}
		return movie.Director{}, err
	}
	return m.Director, nil
}

func (r *MoviesRepo) Upsert(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	var out movie.Movie

	err := r.prom.ObserveDB("movies.upsert", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO movies (`+movieColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (title) DO UPDATE SET
				description         = EXCLUDED.description,
				genre_name          = EXCLUDED.genre_name,
				genre_description   = EXCLUDED.genre_description,
				director_name       = EXCLUDED.director_name,
				director_bio        = EXCLUDED.director_bio,
				director_birth_year = EXCLUDED.director_birth_year,
				director_death_year = EXCLUDED.director_death_year,
				image_url           = EXCLUDED.image_url,
				featured            = EXCLUDED.featured
			 RETURNING `+movieColumns,
			uuid.NewString(), m.Title, m.Description, m.Genre.Name, m.Genre.Description,
			m.Director.Name, m.Director.Bio, m.Director.BirthYear, m.Director.DeathYear, m.ImageURL, m.Featured,
		)
		var err error
		out, err = scanMovie(row)
		return err
	})
	if err != nil {
		return movie.Movie{}, err
	}
	return out, nil
}

func (r *MoviesRepo) findOne(ctx context.Context, op, where string, arg any) (movie.Movie, error) {
	var m movie.Movie

	err := r.prom.ObserveDB(op, func() error {
		var err error
		m, err = scanMovie(r.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies `+where, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return movie.Movie{}, movie.ErrNotFound
		}
		return movie.Movie{}, err
	}
	return m, nil
}

func scanMovie(row pgx.Row) (movie.Movie, error) {
	var m movie.Movie
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Genre.Name, &m.Genre.Description,
		&m.Director.Name, &m.Director.Bio, &m.Director.BirthYear, &m.Director.DeathYear,
		&m.ImageURL, &m.Featured,
	)
	return m, err
}
