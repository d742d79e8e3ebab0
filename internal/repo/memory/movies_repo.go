package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/google/uuid"
)

type MoviesRepo struct {
	mu    sync.RWMutex
	items map[string]movie.Movie
}

func NewMoviesRepo() *MoviesRepo {
	return &MoviesRepo{
		items: make(map[string]movie.Movie),
	}
}

func (r *MoviesRepo) List(_ context.Context) ([]movie.Movie, error) {
	r.mu.RLock()
	out := make([]movie.Movie, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *MoviesRepo) FindByID(_ context.Context, id string) (movie.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[id]
	if !ok {
		return movie.Movie{}, movie.ErrNotFound
	}
	return m, nil
}

func (r *MoviesRepo) FindByTitle(_ context.Context, title string) (movie.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.items {
		if m.Title == title {
			return m, nil
		}
	}
	return movie.Movie{}, movie.ErrNotFound
}

func (r *MoviesRepo) GenreByName(_ context.Context, name string) (movie.Genre, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.items {
		if strings.EqualFold(m.Genre.Name, name) {
			return m.Genre, nil
		}
	}
	return movie.Genre{}, movie.ErrGenreNotFound
}

func (r *MoviesRepo) DirectorByName(_ context.Context, name string) (movie.Director, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.items {
		if strings.EqualFold(m.Director.Name, name) {
			return m.Director, nil
		}
	}
	return movie.Director{}, movie.ErrDirectorNotFound
}

func (r *MoviesRepo) Upsert(_ context.Context, m movie.Movie) (movie.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if existing.Title == m.Title {
			m.ID = id
			r.items[id] = m
			return m, nil
		}
	}

	m.ID = uuid.NewString()
	r.items[m.ID] = m
	return m, nil
}
