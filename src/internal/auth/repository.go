package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	RecordFailedLogin(ctx context.Context, id primitive.ObjectID, lockedUntil *time.Time) error
	RecordSuccessfulLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type repository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *clients.MongoDB, collectionName string) Repository {
	return &repository{collection: db.Database.Collection(collectionName)}
}

func (r *repository) Create(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrEmailTaken
		}
		logrus.WithError(err).Error("Failed to insert user")
		return nil, models.ErrDatabaseInsert
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by email")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", id.Hex()).Error("Failed to get user")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		logrus.WithError(err).WithField("user_id", id.Hex()).Error("Failed to update user")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// RecordFailedLogin bumps the attempt counter; a non-nil lockedUntil
// also starts the lockout window.
func (r *repository) RecordFailedLogin(ctx context.Context, id primitive.ObjectID, lockedUntil *time.Time) error {
	update := bson.M{
		"$inc": bson.M{"login_attempts": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if lockedUntil != nil {
		update["$set"].(bson.M)["locked_until"] = *lockedUntil
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logrus.WithError(err).WithField("user_id", id.Hex()).Error("Failed to record failed login")
		return models.ErrDatabaseUpdate
	}
	return nil
}

// RecordSuccessfulLogin resets the counter and clears any lockout.
func (r *repository) RecordSuccessfulLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"login_attempts": 0,
			"last_login_at":  at,
			"updated_at":     at,
		},
		"$unset": bson.M{"locked_until": ""},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logrus.WithError(err).WithField("user_id", id.Hex()).Error("Failed to record successful login")
		return models.ErrDatabaseUpdate
	}
	return nil
}
