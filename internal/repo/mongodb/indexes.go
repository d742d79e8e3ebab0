package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	emailUniqueIndex    = "users_email_unique"
	usernameUniqueIndex = "users_username_unique"
	usernameIndex       = "users_username"
)

// EnsureIndexes creates the indexes the stores rely on. Email is always
// unique; username only when uniqueUsername is set.
func EnsureIndexes(ctx context.Context, db *mongo.Database, uniqueUsername bool) error {
	userIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailUniqueIndex).SetUnique(true),
		},
	}

	if uniqueUsername {
		userIdx = append(userIdx, mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(usernameUniqueIndex).SetUnique(true),
		})
	} else {
		userIdx = append(userIdx, mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName(usernameIndex),
		})
	}

	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIdx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	movieIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetName("movies_title_unique").SetUnique(true),
		},
		{Keys: bson.D{{Key: "genre.name", Value: 1}}, Options: options.Index().SetName("movies_genre_name")},
		{Keys: bson.D{{Key: "director.name", Value: 1}}, Options: options.Index().SetName("movies_director_name")},
	}

	if _, err := db.Collection(moviesCollection).Indexes().CreateMany(ctx, movieIdx); err != nil {
		return fmt.Errorf("movies indexes: %w", err)
	}

	return nil
}
