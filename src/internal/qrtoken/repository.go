package qrtoken

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, token *Token) (*Token, error)
	GetByToken(ctx context.Context, value string) (*Token, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Token, error)
	// Consume atomically flips used_at from null to now. It returns
	// ErrQRTokenUsed when another caller consumed the token first.
	Consume(ctx context.Context, value string, now time.Time) (*Token, error)
	// Release undoes a consumption whose follow-up write failed.
	Release(ctx context.Context, id primitive.ObjectID) error
	Revoke(ctx context.Context, id, revokedBy primitive.ObjectID, now time.Time) error
	ActiveForMember(ctx context.Context, memberID primitive.ObjectID, now time.Time) ([]*Token, error)
	Stats(ctx context.Context, window *StatsWindow, now time.Time) (*Stats, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewTokenRepository(db *clients.MongoDB, collectionName string) Repository {
	return &repository{collection: db.Database.Collection(collectionName)}
}

func (r *repository) Create(ctx context.Context, token *Token) (*Token, error) {
	token.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, token)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert QR token")
		return nil, models.ErrDatabaseInsert
	}

	token.ID = result.InsertedID.(primitive.ObjectID)
	return token, nil
}

func (r *repository) GetByToken(ctx context.Context, value string) (*Token, error) {
	var token Token
	err := r.collection.FindOne(ctx, bson.M{"token": value}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrQRTokenNotFound
		}
		logrus.WithError(err).Error("Failed to get QR token")
		return nil, models.ErrDatabaseQuery
	}
	return &token, nil
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Token, error) {
	var token Token
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrQRTokenNotFound
		}
		logrus.WithError(err).WithField("token_id", id.Hex()).Error("Failed to get QR token")
		return nil, models.ErrDatabaseQuery
	}
	return &token, nil
}

// Consume is the single-writer gate on a token. The filter matches only
// while used_at is absent, so of two racing scans exactly one gets the
// document back; the loser sees ErrNoDocuments and maps to AlreadyUsed.
func (r *repository) Consume(ctx context.Context, value string, now time.Time) (*Token, error) {
	filter := bson.M{
		"token":   value,
		"used_at": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"used_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var token Token
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrQRTokenUsed
		}
		logrus.WithError(err).Error("Failed to consume QR token")
		return nil, models.ErrDatabaseUpdate
	}
	return &token, nil
}

func (r *repository) Release(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"used_at": ""}})
	if err != nil {
		logrus.WithError(err).WithField("token_id", id.Hex()).Error("Failed to release QR token")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *repository) Revoke(ctx context.Context, id, revokedBy primitive.ObjectID, now time.Time) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"used_at":    now,
			"revoked_by": revokedBy,
		},
	})
	if err != nil {
		logrus.WithError(err).WithField("token_id", id.Hex()).Error("Failed to revoke QR token")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrQRTokenNotFound
	}
	return nil
}

func (r *repository) ActiveForMember(ctx context.Context, memberID primitive.ObjectID, now time.Time) ([]*Token, error) {
	filter := bson.M{
		"member_id":  memberID,
		"expires_at": bson.M{"$gt": now},
		"used_at":    bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find active QR tokens")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var tokens []*Token
	for cursor.Next(ctx) {
		var token Token
		if err := cursor.Decode(&token); err != nil {
			logrus.WithError(err).Error("Failed to decode QR token")
			continue
		}
		tokens = append(tokens, &token)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return tokens, nil
}

func (r *repository) Stats(ctx context.Context, window *StatsWindow, now time.Time) (*Stats, error) {
	base := bson.M{}
	if window != nil {
		created := bson.M{}
		if window.StartDate != nil {
			created["$gte"] = *window.StartDate
		}
		if window.EndDate != nil {
			created["$lte"] = *window.EndDate
		}
		if len(created) > 0 {
			base["created_at"] = created
		}
	}

	totalGenerated, err := r.count(ctx, base)
	if err != nil {
		return nil, err
	}

	totalUsed, err := r.count(ctx, merge(base, bson.M{"used_at": bson.M{"$exists": true}}))
	if err != nil {
		return nil, err
	}

	totalExpired, err := r.count(ctx, merge(base, bson.M{
		"expires_at": bson.M{"$lt": now},
		"used_at":    bson.M{"$exists": false},
	}))
	if err != nil {
		return nil, err
	}

	totalActive, err := r.count(ctx, merge(base, bson.M{
		"expires_at": bson.M{"$gt": now},
		"used_at":    bson.M{"$exists": false},
	}))
	if err != nil {
		return nil, err
	}

	usageRate := 0.0
	if totalGenerated > 0 {
		usageRate = float64(totalUsed) / float64(totalGenerated) * 100
	}

	return &Stats{
		TotalGenerated: totalGenerated,
		TotalUsed:      totalUsed,
		TotalExpired:   totalExpired,
		TotalActive:    totalActive,
		UsageRate:      usageRate,
	}, nil
}

func (r *repository) count(ctx context.Context, filter bson.M) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count QR tokens")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func merge(base, extra bson.M) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
