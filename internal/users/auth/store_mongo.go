// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taibuivan/vidora/internal/platform/dberr"
)

// # MongoDB Repository

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

// MongoUserRepository implements [UserRepository] over a MongoDB collection.
//
// Documents use the string UUIDv7 as _id and the bson tags on [User].
type MongoUserRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

/*
NewMongoUserRepository binds the repository to the users collection and
ensures the unique indexes on userName and email exist.

Parameters:
  - context: context.Context
  - database: *mongo.Database

Returns:
  - *MongoUserRepository
  - error: Index creation failures
*/
func NewMongoUserRepository(context context.Context, database *mongo.Database) (*MongoUserRepository, error) {
	repository := &MongoUserRepository{
		collection: database.Collection(UsersCollection),
		now:        time.Now,
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: FieldUserName, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_username_unique"),
		},
		{
			Keys:    bson.D{{Key: FieldEmail, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	}

	if _, err := repository.collection.Indexes().CreateMany(context, indexes); err != nil {
		return nil, fmt.Errorf("mongo_user_repo_ensure_indexes_failed: %w", err)
	}

	return repository, nil
}

/*
Insert persists a new user document.

Returns:
  - error: apperr.Conflict on duplicate key, or driver errors
*/
func (repository *MongoUserRepository) Insert(context context.Context, user *User) error {
	if _, err := repository.collection.InsertOne(context, user); err != nil {
		return fmt.Errorf("mongo_user_repo_insert_failed: %w", dberr.Wrap(err, "User"))
	}
	return nil
}

// FindByID retrieves a user document by _id.
func (repository *MongoUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: "_id", Value: id}})
}

// FindByUserName retrieves a user document by normalized userName.
func (repository *MongoUserRepository) FindByUserName(context context.Context, userName string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: FieldUserName, Value: userName}})
}

// FindByEmail retrieves a user document by normalized email.
func (repository *MongoUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, bson.D{{Key: FieldEmail, Value: email}})
}

/*
UpdateFields applies a $set (and $unset for a cleared cover image) and returns
the document after the update.

Returns:
  - *User: Updated entity
  - error: apperr.NotFound, apperr.Conflict or driver errors
*/
func (repository *MongoUserRepository) UpdateFields(context context.Context, id string, fields Fields) (*User, error) {
	set := bson.D{{Key: "updatedAt", Value: repository.now().UTC()}}
	unset := bson.D{}

	for key, value := range fields {
		if key == FieldCoverImage {
			if cover, _ := value.(*Asset); cover != nil {
				set = append(set, bson.E{Key: key, Value: cover})
			} else {
				unset = append(unset, bson.E{Key: key, Value: ""})
			}
			continue
		}
		set = append(set, bson.E{Key: key, Value: value})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	user := &User{}
	err := repository.collection.FindOneAndUpdate(
		context,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(user)
	if err != nil {
		return nil, fmt.Errorf("mongo_user_repo_update_failed: %w", dberr.Wrap(err, "User"))
	}

	return user, nil
}

// UpdatePassword replaces the password hash.
func (repository *MongoUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	return repository.setField(context, id, "passwordHash", passwordHash)
}

// SetRefreshHash sets or clears the refresh token hash.
func (repository *MongoUserRepository) SetRefreshHash(context context.Context, id, hash string) error {
	return repository.setField(context, id, "refreshTokenHash", hash)
}

/*
SwapRefreshHash matches on both _id and the expected hash, so the single-document
update is the compare-and-set.

Returns:
  - bool: true if this call replaced the hash
  - error: Driver errors
*/
func (repository *MongoUserRepository) SwapRefreshHash(context context.Context, id, expected, next string) (bool, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "refreshTokenHash", Value: expected},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "refreshTokenHash", Value: next},
		{Key: "updatedAt", Value: repository.now().UTC()},
	}}}

	result, err := repository.collection.UpdateOne(context, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongo_user_repo_swap_refresh_failed: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

// Ping checks the primary.
func (repository *MongoUserRepository) Ping(context context.Context) error {
	return repository.collection.Database().Client().Ping(context, readpref.Primary())
}

// # Helpers

func (repository *MongoUserRepository) findOne(context context.Context, filter bson.D) (*User, error) {
	user := &User{}
	if err := repository.collection.FindOne(context, filter).Decode(user); err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return user, nil
}

func (repository *MongoUserRepository) setField(context context.Context, id, field, value string) error {
	result, err := repository.collection.UpdateOne(
		context,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: field, Value: value},
			{Key: "updatedAt", Value: repository.now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("mongo_user_repo_set_%s_failed: %w", field, err)
	}
	if result.MatchedCount == 0 {
		return dberr.Wrap(mongo.ErrNoDocuments, "User")
	}
	return nil
}
