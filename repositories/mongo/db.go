package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	participantCollection = "participants"
	messageCollection     = "messages"
	counterCollection     = "counters"
)

// NewDB connects to MongoDB, verifies the connection and makes sure the
// indexes the repositories rely on exist.
func NewDB(ctx context.Context, connectionString, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureIndexes creates the unique index on participant names, which is
// what makes a duplicate join fail atomically, and the ordering index on
// message sequence.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(participantCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("participants index: %w", err)
	}
	_, err = db.Collection(messageCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("messages index: %w", err)
	}
	return nil
}

type Pinger struct {
	db *mongo.Database
}

func NewPinger(db *mongo.Database) Pinger {
	return Pinger{db: db}
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.db.Client().Ping(ctx, nil)
}
