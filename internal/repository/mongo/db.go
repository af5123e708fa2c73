package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB and verifies it with a ping
// against the primary.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. The
// (parent, order) unique indexes back the ordering guarantees of the hierarchy.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ensure := []struct {
		collection string
		fn         func(context.Context, *mongo.Collection) error
	}{
		{moduleCollectionName, ensureModuleIndexes},
		{sectionCollectionName, ensureSectionIndexes},
		{lessonCollectionName, ensureLessonIndexes},
		{progressCollectionName, ensureProgressIndexes},
		{materialCollectionName, ensureMaterialIndexes},
	}
	for _, e := range ensure {
		if err := e.fn(ctx, db.Collection(e.collection)); err != nil {
			return fmt.Errorf("create indexes for %s: %w", e.collection, err)
		}
	}
	return nil
}
