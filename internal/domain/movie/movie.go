package movie

import (
	"context"
	"errors"
)

type Genre struct {
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

type Director struct {
	Name      string `json:"name" bson:"name"`
	Bio       string `json:"bio,omitempty" bson:"bio,omitempty"`
	BirthYear *int   `json:"birthYear,omitempty" bson:"birthYear,omitempty"`
	DeathYear *int   `json:"deathYear,omitempty" bson:"deathYear,omitempty"`
}

type Movie struct {
	ID          string   `json:"id" bson:"-"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Genre       Genre    `json:"genre" bson:"genre"`
	Director    Director `json:"director" bson:"director"`
	ImageURL    string   `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Featured    bool     `json:"featured" bson:"featured"`
}

var (
	ErrNotFound         = errors.New("movie not found")
	ErrGenreNotFound    = errors.New("genre not found")
	ErrDirectorNotFound = errors.New("director not found")
)

type Repository interface {
	List(ctx context.Context) ([]Movie, error)
	FindByID(ctx context.Context, id string) (Movie, error)
	FindByTitle(ctx context.Context, title string) (Movie, error)
	GenreByName(ctx context.Context, name string) (Genre, error)
	DirectorByName(ctx context.Context, name string) (Director, error)
	// Upsert inserts m or replaces the movie with the same title.
	Upsert(ctx context.Context, m Movie) (Movie, error)
}
