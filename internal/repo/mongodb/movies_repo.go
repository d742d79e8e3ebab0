package mongodb

import (
	"context"
	"errors"
	"regexp"

	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const moviesCollection = "movies"

type movieDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	movie.Movie `bson:",inline"`
}

func (d movieDoc) toDomain() movie.Movie {
	m := d.Movie
	m.ID = d.ID.Hex()
	return m
}

type MoviesRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func NewMoviesRepo(db *mongo.Database, prom *observability.Prom) *MoviesRepo {
	return &MoviesRepo{
		coll: db.Collection(moviesCollection),
		prom: prom,
	}
}

func (r *MoviesRepo) List(ctx context.Context) ([]movie.Movie, error) {
	var docs []movieDoc

	err := r.prom.ObserveDB("movies.list", func() error {
		cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	out := make([]movie.Movie, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MoviesRepo) FindByID(ctx context.Context, id string) (movie.Movie, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return movie.Movie{}, movie.ErrNotFound
	}

	doc, err := r.findOne(ctx, "movies.find_by_id", bson.M{"_id": oid})
	if err != nil {
		return movie.Movie{}, notFound(err, movie.ErrNotFound)
	}
	return doc.toDomain(), nil
}

func (r *MoviesRepo) FindByTitle(ctx context.Context, title string) (movie.Movie, error) {
	doc, err := r.findOne(ctx, "movies.find_by_title", bson.M{"title": title})
	if err != nil {
		return movie.Movie{}, notFound(err, movie.ErrNotFound)
	}
	return doc.toDomain(), nil
}

func (r *MoviesRepo) GenreByName(ctx context.Context, name string) (movie.Genre, error) {
	doc, err := r.findOne(ctx, "movies.genre_by_name", bson.M{"genre.name": equalFold(name)})
	if err != nil {
		return movie.Genre{}, notFound(err, movie.ErrGenreNotFound)
	}
	return doc.Genre, nil
}

func (r *MoviesRepo) DirectorByName(ctx context.Context, name string) (movie.Director, error) {
	doc, err := r.findOne(ctx, "movies.director_by_name", bson.M{"director.name": equalFold(name)})
	if err != nil {
		return movie.Director{}, notFound(err, movie.ErrDirectorNotFound)
	}
	return doc.Director, nil
}

func (r *MoviesRepo) Upsert(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	var doc movieDoc

	err := r.prom.ObserveDB("movies.upsert", func() error {
		opts := options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After)
		return r.coll.FindOneAndReplace(ctx, bson.M{"title": m.Title}, movieDoc{Movie: m}, opts).Decode(&doc)
	})
	if err != nil {
		return movie.Movie{}, err
	}
	return doc.toDomain(), nil
}

func (r *MoviesRepo) findOne(ctx context.Context, op string, filter bson.M) (movieDoc, error) {
	var doc movieDoc
	err := r.prom.ObserveDB(op, func() error {
		return r.coll.FindOne(ctx, filter).Decode(&doc)
	})
	return doc, err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel
	}
	return err
}

// equalFold matches a whole string case-insensitively.
func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
