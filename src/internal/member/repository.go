package member

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	regexKey   = "$regex"
	optionsKey = "$options"

	membershipPrefix = "NECF"
)

type Repository interface {
	Create(ctx context.Context, member *Member) (*Member, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context, filter *ListFilter) ([]*Member, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Member, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	NextMembershipID(ctx context.Context) (string, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountJoinedSince(ctx context.Context, since time.Time) (int64, error)
	FindActiveByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Member, error)
	CountByGender(ctx context.Context) (map[string]int64, error)
	CountByAgeGroup(ctx context.Context) (map[string]int64, error)
	// CountJoinedGrouped buckets joins since a point in time using a
	// Mongo $dateToString format.
	CountJoinedGrouped(ctx context.Context, since time.Time, format string) (map[string]int64, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewMemberRepository(db *clients.MongoDB, collectionName string) Repository {
	return &repository{collection: db.Database.Collection(collectionName)}
}

func (r *repository) Create(ctx context.Context, member *Member) (*Member, error) {
	now := time.Now()
	member.CreatedAt = now
	member.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, mapDuplicateKey(err)
		}
		logrus.WithError(err).Error("Failed to insert member")
		return nil, models.ErrDatabaseInsert
	}

	member.ID = result.InsertedID.(primitive.ObjectID)
	return member, nil
}

// mapDuplicateKey tells the two unique indexes on members apart: an
// email collision is a caller error, a membership_id collision means two
// concurrent creates drew the same sequence number.
func mapDuplicateKey(err error) error {
	if strings.Contains(err.Error(), "membership_id") {
		return models.ErrMembershipIDTaken
	}
	return models.ErrEmailTaken
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Member, error) {
	var member Member
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrMemberNotFound
		}
		logrus.WithError(err).WithField("member_id", id.Hex()).Error("Failed to get member")
		return nil, models.ErrDatabaseQuery
	}
	return &member, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	var member Member
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrMemberNotFound
		}
		logrus.WithError(err).Error("Failed to get member by email")
		return nil, models.ErrDatabaseQuery
	}
	return &member, nil
}

func (r *repository) List(ctx context.Context, req *ListFilter) ([]*Member, int64, error) {
	filter := buildListFilter(req)

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count members")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (req.Page - 1) * req.Limit

	sortOrder := 1
	if req.SortOrder == "desc" {
		sortOrder = -1
	}

	opts := options.Find().
		SetLimit(int64(req.Limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{sortField(req.SortBy): sortOrder})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find members")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var members []*Member
	for cursor.Next(ctx) {
		var member Member
		if err := cursor.Decode(&member); err != nil {
			logrus.WithError(err).Error("Failed to decode member")
			continue
		}
		members = append(members, &member)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, 0, models.ErrDatabaseQuery
	}

	logrus.WithFields(logrus.Fields{
		"count": len(members),
		"total": totalCount,
		"page":  req.Page,
		"limit": req.Limit,
	}).Debug("Retrieved members successfully")

	return members, totalCount, nil
}

// buildListFilter maps each ListFilter field to its query clause. Every
// filter variant is handled explicitly here; there is no dynamic
// field-name pass-through.
func buildListFilter(req *ListFilter) bson.M {
	filter := bson.M{}

	if req.Search != "" {
		filter["$or"] = []bson.M{
			{"first_name": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"last_name": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"email": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"membership_id": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"phone": bson.M{regexKey: req.Search, optionsKey: "i"}},
		}
	}

	if req.Status != "" {
		filter["membership_status"] = req.Status
	}

	if req.CellID != "" {
		if cellID, err := primitive.ObjectIDFromHex(req.CellID); err == nil {
			filter["cell_id"] = cellID
		}
	}

	if req.Gender != "" {
		filter["gender"] = req.Gender
	}

	return filter
}

func sortField(requested string) string {
	switch requested {
	case "lastName":
		return "last_name"
	case "joinDate":
		return "join_date"
	case "membershipId":
		return "membership_id"
	case "createdAt":
		return "created_at"
	default:
		return "first_name"
	}
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*Member, error) {
	update["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var member Member
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update}, opts).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrMemberNotFound
		}
		logrus.WithError(err).WithField("member_id", id.Hex()).Error("Failed to update member")
		return nil, models.ErrDatabaseUpdate
	}
	return &member, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"membership_status": status,
			"updated_at":        time.Now(),
		},
	})
	if err != nil {
		logrus.WithError(err).WithField("member_id", id.Hex()).Error("Failed to update member status")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

// NextMembershipID issues the next NECF<year>NNNN identifier by reading
// the highest one assigned this year.
func (r *repository) NextMembershipID(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("%s%d", membershipPrefix, time.Now().Year())

	filter := bson.M{"membership_id": bson.M{regexKey: "^" + prefix}}
	opts := options.FindOne().SetSort(bson.M{"membership_id": -1})

	var last Member
	err := r.collection.FindOne(ctx, filter, opts).Decode(&last)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Sprintf("%s%04d", prefix, 1), nil
		}
		logrus.WithError(err).Error("Failed to look up last membership ID")
		return "", models.ErrDatabaseQuery
	}

	lastNumber, err := strconv.Atoi(strings.TrimPrefix(last.MembershipID, prefix))
	if err != nil {
		logrus.WithError(err).WithField("membership_id", last.MembershipID).Error("Malformed membership ID")
		return "", models.ErrDatabaseQuery
	}

	return fmt.Sprintf("%s%04d", prefix, lastNumber+1), nil
}

func (r *repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"membership_status": status})
	if err != nil {
		logrus.WithError(err).Error("Failed to count members by status")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("Failed to count members")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountJoinedSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"join_date": bson.M{"$gte": since}})
	if err != nil {
		logrus.WithError(err).Error("Failed to count recent members")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) FindActiveByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Member, error) {
	filter := bson.M{
		"_id":               bson.M{"$in": ids},
		"membership_status": StatusActive,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to find members by IDs")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var members []*Member
	for cursor.Next(ctx) {
		var member Member
		if err := cursor.Decode(&member); err != nil {
			logrus.WithError(err).Error("Failed to decode member")
			continue
		}
		members = append(members, &member)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return members, nil
}

func (r *repository) CountByGender(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$gender",
			"count": bson.M{"$sum": 1},
		}}},
	}
	return r.groupCounts(ctx, pipeline)
}

// CountByAgeGroup buckets members by age computed from date_of_birth.
// Members without a date of birth land in the "UNKNOWN" bucket.
func (r *repository) CountByAgeGroup(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{
			"age": bson.M{"$cond": bson.M{
				"if": bson.M{"$ifNull": bson.A{"$date_of_birth", false}},
				"then": bson.M{"$dateDiff": bson.M{
					"startDate": "$date_of_birth",
					"endDate":   "$$NOW",
					"unit":      "year",
				}},
				"else": nil,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$age", nil}}, "then": "UNKNOWN"},
					bson.M{"case": bson.M{"$lt": bson.A{"$age", 18}}, "then": "0-17"},
					bson.M{"case": bson.M{"$lt": bson.A{"$age", 31}}, "then": "18-30"},
					bson.M{"case": bson.M{"$lt": bson.A{"$age", 46}}, "then": "31-45"},
					bson.M{"case": bson.M{"$lt": bson.A{"$age", 61}}, "then": "46-60"},
				},
				"default": "61+",
			}},
			"count": bson.M{"$sum": 1},
		}}},
	}
	return r.groupCounts(ctx, pipeline)
}

func (r *repository) CountJoinedGrouped(ctx context.Context, since time.Time, format string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"join_date": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": format,
				"date":   "$join_date",
			}},
			"count": bson.M{"$sum": 1},
		}}},
	}
	return r.groupCounts(ctx, pipeline)
}

func (r *repository) groupCounts(ctx context.Context, pipeline mongo.Pipeline) (map[string]int64, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate member counts")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Key   string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			logrus.WithError(err).Error("Failed to decode group count")
			continue
		}
		if row.Key == "" {
			row.Key = "UNKNOWN"
		}
		counts[row.Key] = row.Count
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return counts, nil
}
