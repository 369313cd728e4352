package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"feedback-bot/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	feedbackCollectionName     = "feedback"
	roomCollectionName         = "rooms"
	subscriptionCollectionName = "subscriptions"
	toggleCollectionName       = "feature_toggle"
	counterCollectionName      = "counters"
	actionLogCollectionName    = "action_logs"
)

// ConnectDB establishes a connection to the MongoDB database using the provided configuration.
// It returns the MongoDB client, database object, and an error if connection fails.
func ConnectDB(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.MongoDBURI).SetServerAPIOptions(serverAPI)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Send a ping to confirm a successful connection
	var result bson.M
	if err := client.Database("admin").RunCommand(connectCtx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Successfully connected and pinged MongoDB!")

	return client, client.Database(cfg.MongoDBDatabase), nil
}

// MongoStore implements Store on top of MongoDB. Every write touches a single
// document, so the server's per-document atomicity is all the locking needed.
type MongoStore struct {
	db            *mongo.Database
	feedback      *mongo.Collection
	rooms         *mongo.Collection
	subscriptions *mongo.Collection
	toggles       *mongo.Collection
	counters      *mongo.Collection
	actionLogs    *mongo.Collection
}

// NewMongoStore creates a store over the collections of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:            db,
		feedback:      db.Collection(feedbackCollectionName),
		rooms:         db.Collection(roomCollectionName),
		subscriptions: db.Collection(subscriptionCollectionName),
		toggles:       db.Collection(toggleCollectionName),
		counters:      db.Collection(counterCollectionName),
		actionLogs:    db.Collection(actionLogCollectionName),
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return unavailable("create rooms index", err)
	}
	if _, err := s.toggles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return unavailable("create feature_toggle index", err)
	}
	if _, err := s.feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "card_chat_id", Value: 1}, {Key: "message_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}); err != nil {
		return unavailable("create feedback indexes", err)
	}
	return nil
}

// nextID atomically increments and returns the named sequence.
func (s *MongoStore) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, unavailable("next "+sequence+" id", err)
	}
	return counter.Seq, nil
}
