package attendance

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
	// Create inserts a record. The unique (member_id, session_id) index
	// turns a concurrent duplicate into ErrAttendanceDuplicate.
	Create(ctx context.Context, record *Record) (*Record, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Record, error)
	ExistsForMemberSession(ctx context.Context, memberID, sessionID primitive.ObjectID) (bool, error)
	List(ctx context.Context, filter *ListFilter) ([]*Record, int64, error)
	// FindAll applies the filter without pagination, for exports.
	FindAll(ctx context.Context, filter *ListFilter) ([]*Record, error)
	BySession(ctx context.Context, sessionID primitive.ObjectID) ([]*Record, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Record, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	RecentForMember(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*Record, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountForMemberSince(ctx context.Context, memberID primitive.ObjectID, since time.Time, statuses []string) (int64, error)
	CountForSession(ctx context.Context, sessionID primitive.ObjectID) (int64, error)
	CountByDay(ctx context.Context, days int) (map[string]int64, error)
	// CountGrouped buckets records since a point in time using a Mongo
	// $dateToString format, e.g. "%Y-%m-%d" for daily buckets.
	CountGrouped(ctx context.Context, since time.Time, format string) (map[string]int64, error)
	TopAttendees(ctx context.Context, since time.Time, limit int) ([]AttendeeCount, error)
	// CountByCellSince groups check-ins since a point in time by the
	// member's cell, joining through the members collection.
	CountByCellSince(ctx context.Context, since time.Time) ([]CellCount, error)
}

// AttendeeCount is one row of the top-attendees aggregation.
type AttendeeCount struct {
	MemberID primitive.ObjectID `bson:"_id"`
	Count    int64              `bson:"count"`
}

// CellCount is one row of the per-cell aggregation. A nil CellID bucket
// holds check-ins from members who are not in any cell.
type CellCount struct {
	CellID *primitive.ObjectID `bson:"_id"`
	Count  int64               `bson:"count"`
}

type repository struct {
	collection        *mongo.Collection
	membersCollection string
}

func NewAttendanceRepository(db *clients.MongoDB, collectionName, membersCollection string) Repository {
	return &repository{
		collection:        db.Database.Collection(collectionName),
		membersCollection: membersCollection,
	}
}

func (r *repository) Create(ctx context.Context, record *Record) (*Record, error) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrAttendanceDuplicate
		}
		logrus.WithError(err).Error("Failed to insert attendance record")
		return nil, models.ErrDatabaseInsert
	}

	record.ID = result.InsertedID.(primitive.ObjectID)
	return record, nil
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Record, error) {
	var record Record
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAttendanceNotFound
		}
		logrus.WithError(err).WithField("attendance_id", id.Hex()).Error("Failed to get attendance record")
		return nil, models.ErrDatabaseQuery
	}
	return &record, nil
}

func (r *repository) ExistsForMemberSession(ctx context.Context, memberID, sessionID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"member_id":  memberID,
		"session_id": sessionID,
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		logrus.WithError(err).Error("Failed to check existing attendance")
		return false, models.ErrDatabaseQuery
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, req *ListFilter) ([]*Record, int64, error) {
	filter := buildListFilter(req)

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count attendance records")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (req.Page - 1) * req.Limit

	sortOrder := -1
	if req.SortOrder == "asc" {
		sortOrder = 1
	}

	opts := options.Find().
		SetLimit(int64(req.Limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{sortField(req.SortBy): sortOrder})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find attendance records")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	records, err := decodeRecords(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}

	return records, totalCount, nil
}

func buildListFilter(req *ListFilter) bson.M {
	filter := bson.M{}

	if req.SessionID != "" {
		if id, err := primitive.ObjectIDFromHex(req.SessionID); err == nil {
			filter["session_id"] = id
		}
	}
	if req.MemberID != "" {
		if id, err := primitive.ObjectIDFromHex(req.MemberID); err == nil {
			filter["member_id"] = id
		}
	}
	if req.Status != "" {
		filter["status"] = req.Status
	}

	created := bson.M{}
	if req.StartDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.StartDate); err == nil {
			created["$gte"] = parsed
		}
	}
	if req.EndDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.EndDate); err == nil {
			created["$lte"] = parsed
		}
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	return filter
}

func sortField(requested string) string {
	switch requested {
	case "createdAt":
		return "created_at"
	case "status":
		return "status"
	default:
		return "checked_in_at"
	}
}

func (r *repository) FindAll(ctx context.Context, req *ListFilter) ([]*Record, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, buildListFilter(req), opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find attendance records")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	return decodeRecords(ctx, cursor)
}

func (r *repository) BySession(ctx context.Context, sessionID primitive.ObjectID) ([]*Record, error) {
	opts := options.Find().SetSort(bson.M{"checked_in_at": 1})

	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find session attendance")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	return decodeRecords(ctx, cursor)
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Record, error) {
	update["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record Record
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAttendanceNotFound
		}
		logrus.WithError(err).WithField("attendance_id", id.Hex()).Error("Failed to update attendance record")
		return nil, models.ErrDatabaseUpdate
	}
	return &record, nil
}

func (r *repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithError(err).WithField("attendance_id", id.Hex()).Error("Failed to delete attendance record")
		return models.ErrDatabaseDelete
	}
	if result.DeletedCount == 0 {
		return models.ErrAttendanceNotFound
	}
	return nil
}

func (r *repository) RecentForMember(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find recent attendance")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	return decodeRecords(ctx, cursor)
}

func (r *repository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": since}})
	if err != nil {
		logrus.WithError(err).Error("Failed to count attendance records")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountForMemberSince(ctx context.Context, memberID primitive.ObjectID, since time.Time, statuses []string) (int64, error) {
	filter := bson.M{
		"member_id":  memberID,
		"created_at": bson.M{"$gte": since},
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count member attendance")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountForSession(ctx context.Context, sessionID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		logrus.WithError(err).Error("Failed to count session attendance")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

// CountByDay groups the last N days of records by calendar day.
func (r *repository) CountByDay(ctx context.Context, days int) (map[string]int64, error) {
	return r.CountGrouped(ctx, time.Now().AddDate(0, 0, -days), "%Y-%m-%d")
}

func (r *repository) CountGrouped(ctx context.Context, since time.Time, format string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": format,
				"date":   "$created_at",
			}},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate attendance by day")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Day   string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			logrus.WithError(err).Error("Failed to decode day count")
			continue
		}
		counts[row.Day] = row.Count
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return counts, nil
}

func (r *repository) TopAttendees(ctx context.Context, since time.Time, limit int) ([]AttendeeCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"created_at": bson.M{"$gte": since},
			"status":     bson.M{"$in": []string{StatusPresent, StatusLate}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$member_id",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate top attendees")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var rows []AttendeeCount
	for cursor.Next(ctx) {
		var row AttendeeCount
		if err := cursor.Decode(&row); err != nil {
			logrus.WithError(err).Error("Failed to decode attendee count")
			continue
		}
		rows = append(rows, row)
	}

	return rows, cursor.Err()
}

func (r *repository) CountByCellSince(ctx context.Context, since time.Time) ([]CellCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         r.membersCollection,
			"localField":   "member_id",
			"foreignField": "_id",
			"as":           "member",
		}}},
		{{Key: "$unwind", Value: "$member"}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$member.cell_id",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate attendance by cell")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var rows []CellCount
	for cursor.Next(ctx) {
		var row CellCount
		if err := cursor.Decode(&row); err != nil {
			logrus.WithError(err).Error("Failed to decode cell count")
			continue
		}
		rows = append(rows, row)
	}

	return rows, cursor.Err()
}

func decodeRecords(ctx context.Context, cursor *mongo.Cursor) ([]*Record, error) {
	var records []*Record
	for cursor.Next(ctx) {
		var record Record
		if err := cursor.Decode(&record); err != nil {
			logrus.WithError(err).Error("Failed to decode attendance record")
			continue
		}
		records = append(records, &record)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return records, nil
}
