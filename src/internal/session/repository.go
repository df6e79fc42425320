package session

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
	Create(ctx context.Context, session *Session) (*Session, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Session, error)
	List(ctx context.Context, filter *ListFilter) ([]*Session, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Session, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
	FindActiveSince(ctx context.Context, since time.Time) ([]*Session, error)
	Recent(ctx context.Context, limit int) ([]*Session, error)
	CountByType(ctx context.Context) (map[string]int64, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *clients.MongoDB, collectionName string) Repository {
	return &repository{collection: db.Database.Collection(collectionName)}
}

func (r *repository) Create(ctx context.Context, session *Session) (*Session, error) {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert session")
		return nil, models.ErrDatabaseInsert
	}

	session.ID = result.InsertedID.(primitive.ObjectID)
	return session, nil
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Session, error) {
	var session Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", id.Hex()).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}
	return &session, nil
}

func (r *repository) List(ctx context.Context, req *ListFilter) ([]*Session, int64, error) {
	filter := bson.M{}

	if req.Search != "" {
		filter["name"] = bson.M{"$regex": req.Search, "$options": "i"}
	}
	if req.Type != "" {
		filter["session_type"] = req.Type
	}
	if req.Status != "" {
		filter["status"] = req.Status
	}

	timeRange := bson.M{}
	if req.StartDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.StartDate); err == nil {
			timeRange["$gte"] = parsed
		}
	}
	if req.EndDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.EndDate); err == nil {
			timeRange["$lte"] = parsed
		}
	}
	if len(timeRange) > 0 {
		filter["start_time"] = timeRange
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (req.Page - 1) * req.Limit
	opts := options.Find().
		SetLimit(int64(req.Limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{"start_time": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find sessions")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	for cursor.Next(ctx) {
		var session Session
		if err := cursor.Decode(&session); err != nil {
			logrus.WithError(err).Error("Failed to decode session")
			continue
		}
		sessions = append(sessions, &session)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, 0, models.ErrDatabaseQuery
	}

	return sessions, totalCount, nil
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Session, error) {
	update["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session Session
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update}, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", id.Hex()).Error("Failed to update session")
		return nil, models.ErrDatabaseUpdate
	}
	return &session, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions by status")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	filter := bson.M{
		"start_time": bson.M{"$gte": since},
		"status":     StatusActive,
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count active sessions")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) FindActiveSince(ctx context.Context, since time.Time) ([]*Session, error) {
	filter := bson.M{
		"start_time": bson.M{"$gte": since},
		"status":     StatusActive,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to find active sessions")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	for cursor.Next(ctx) {
		var session Session
		if err := cursor.Decode(&session); err != nil {
			logrus.WithError(err).Error("Failed to decode session")
			continue
		}
		sessions = append(sessions, &session)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return sessions, nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]*Session, error) {
	opts := options.Find().SetSort(bson.M{"start_time": -1}).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find recent sessions")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	for cursor.Next(ctx) {
		var session Session
		if err := cursor.Decode(&session); err != nil {
			logrus.WithError(err).Error("Failed to decode session")
			continue
		}
		sessions = append(sessions, &session)
	}

	return sessions, cursor.Err()
}

func (r *repository) CountByType(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$session_type",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate sessions by type")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Type  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			logrus.WithError(err).Error("Failed to decode type count")
			continue
		}
		counts[row.Type] = row.Count
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return counts, nil
}
