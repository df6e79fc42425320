package cell

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
	Create(ctx context.Context, cell *Cell) (*Cell, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Cell, error)
	List(ctx context.Context) ([]*Cell, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewCellRepository(db *clients.MongoDB, collectionName string) Repository {
	return &repository{collection: db.Database.Collection(collectionName)}
}

func (r *repository) Create(ctx context.Context, cell *Cell) (*Cell, error) {
	now := time.Now()
	cell.CreatedAt = now
	cell.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, cell)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert cell")
		return nil, models.ErrDatabaseInsert
	}

	cell.ID = result.InsertedID.(primitive.ObjectID)
	return cell, nil
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Cell, error) {
	var cell Cell
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cell)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCellNotFound
		}
		logrus.WithError(err).WithField("cell_id", id.Hex()).Error("Failed to get cell")
		return nil, models.ErrDatabaseQuery
	}
	return &cell, nil
}

func (r *repository) List(ctx context.Context) ([]*Cell, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find cells")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var cells []*Cell
	for cursor.Next(ctx) {
		var cell Cell
		if err := cursor.Decode(&cell); err != nil {
			logrus.WithError(err).Error("Failed to decode cell")
			continue
		}
		cells = append(cells, &cell)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return cells, nil
}
