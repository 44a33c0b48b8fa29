package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the process-wide MongoDB handle. It is created once at startup,
// shared by every request, and torn down with Close on shutdown. Components
// take it (or a collection from it) as a dependency so tests can substitute
// an in-memory implementation.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the connection, pings within timeout, and returns the store.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongo.Database { return s.db }

// Collection returns a collection handle by name.
func (s *Store) Collection(name string) *mongo.Collection { return s.db.Collection(name) }

// Close disconnects the shared client. Call once, at shutdown.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
