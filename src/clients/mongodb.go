package clients

import (
	"context"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var log = logrus.StandardLogger()

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	cfg      *config.Database
}

func NewMongoDB(cfg *config.Database) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout)*time.Second)
	defer cancel()

	log.WithField("url", cfg.Url).Info("Connecting to MongoDB...")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Url))
	if err != nil {
		log.WithError(err).Error("Failed to connect to MongoDB")
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.WithError(err).Error("Failed to ping MongoDB")
		return nil, err
	}

	log.Infof("Connected to MongoDB database %s", cfg.DbName)

	db := &MongoDB{
		Client:   client,
		Database: client.Database(cfg.DbName),
		cfg:      cfg,
	}

	if err := db.ensureIndexes(ctx); err != nil {
		log.WithError(err).Error("Failed to ensure indexes")
		return nil, err
	}

	return db, nil
}

// ensureIndexes creates the unique indexes the attendance flow relies on.
// The compound (member_id, session_id) index is the duplicate-attendance
// guard; the unique token index makes token lookups safe.
func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	users := m.Database.Collection(m.cfg.Collections.Users)
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}

	members := m.Database.Collection(m.cfg.Collections.Members)
	if _, err := members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "membership_id", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}

	// partial so members without an email can coexist
	if _, err := members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"email": bson.M{"$exists": true}}),
	}); err != nil {
		return err
	}

	tokens := m.Database.Collection(m.cfg.Collections.QRTokens)
	if _, err := tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}

	attendance := m.Database.Collection(m.cfg.Collections.Attendance)
	if _, err := attendance.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "member_id", Value: 1},
			{Key: "session_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.Client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Failed to disconnect from MongoDB")
		return err
	}
	log.Info("MongoDB connection closed")
	return nil
}
