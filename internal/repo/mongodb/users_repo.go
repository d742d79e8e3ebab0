package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	DateOfBirth  time.Time          `bson:"date_of_birth,omitempty"`
	Favorites    []string           `bson:"favorites"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d userDoc) toDomain() user.User {
	favs := d.Favorites
	if favs == nil {
		favs = []string{}
	}
	return user.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		DateOfBirth:  user.Date{Time: d.DateOfBirth.UTC()},
		Favorites:    favs,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type UsersRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		coll: db.Collection(usersCollection),
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	favs := u.Favorites
	if favs == nil {
		favs = []string{}
	}

	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		DateOfBirth:  u.DateOfBirth.Time,
		Favorites:    favs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return user.User{}, mapWriteErr(err)
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, "users.find_by_id", bson.M{"_id": oid})
}

// FindByUsername returns the oldest account with that username. ObjectIDs
// sort by creation time.
func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_username", bson.M{"username": username})
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_email", bson.M{"email": email})
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var doc userDoc

	err := r.observe(op, func() error {
		opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
		return r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) (user.User, error) {
	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if p.Username != nil {
		set["username"] = *p.Username
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.PasswordHash != nil {
		set["password_hash"] = *p.PasswordHash
	}
	if p.DateOfBirth != nil {
		set["date_of_birth"] = p.DateOfBirth.Time
	}

	return r.findAndUpdate(ctx, "users.update", id, bson.M{"$set": set})
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.ErrNotFound
	}

	var res *mongo.DeleteResult
	err = r.observe("users.delete", func() error {
		var err error
		res, err = r.coll.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) AddFavorite(ctx context.Context, id, movieID string) (user.User, error) {
	return r.findAndUpdate(ctx, "users.add_favorite", id, bson.M{
		"$addToSet": bson.M{"favorites": movieID},
		"$set":      bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	})
}

func (r *UsersRepo) RemoveFavorite(ctx context.Context, id, movieID string) (user.User, error) {
	return r.findAndUpdate(ctx, "users.remove_favorite", id, bson.M{
		"$pull": bson.M{"favorites": movieID},
		"$set":  bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	})
}

func (r *UsersRepo) findAndUpdate(ctx context.Context, op, id string, update bson.M) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	err = r.observe(op, func() error {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapWriteErr(err)
	}

	return doc.toDomain(), nil
}

// mapWriteErr turns unique index violations into domain errors. The index
// name in the server message tells which field collided.
func mapWriteErr(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), usernameUniqueIndex) {
		return user.ErrDuplicateUsername
	}
	return user.ErrDuplicateEmail
}
