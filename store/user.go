package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openshelf/bookapp/models"
)

// Typed accessors for the users collection; auth needs real structs rather
// than the loose Document form.

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.collection(Users).FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	err := db.collection(Users).FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.collection(Users).InsertOne(ctx, user, options.InsertOne())
	return err
}

// UpdateUserProfile updates only the profile fields a user may edit.
func (db *DB) UpdateUserProfile(ctx context.Context, uid string, name, profileImage *string) error {
	updates := bson.M{}
	if name != nil {
		updates["name"] = *name
	}
	if profileImage != nil {
		updates["profileImage"] = *profileImage
	}
	if len(updates) == 0 {
		return nil
	}
	_, err := db.collection(Users).UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": updates})
	return err
}
