// Package store persists transcript documents and answers whether an
// identifier has already been ingested.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

const identifierField = "metadata.identifier"

// documentCollection is the subset of *mongo.Collection used by MongoStore
type documentCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// storedDocument is a Document plus where it was written
type storedDocument struct {
	model.Document `bson:",inline"`
	Namespace      string    `bson:"namespace"`
	Path           string    `bson:"path"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

// MongoStore is the document index. It is both the completion store and a
// sink, keyed by metadata.identifier.
type MongoStore struct {
	client     *mongo.Client
	collection documentCollection
	raw        *mongo.Collection
}

// NewMongoStore connects, pings and ensures the identifier index
func NewMongoStore(ctx context.Context, cfg *config.MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	s := &MongoStore{client: client, collection: coll, raw: coll}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique index on metadata.identifier
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if s.raw == nil {
		return nil
	}
	_, err := s.raw.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: identifierField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("identifier_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create identifier index: %w", err)
	}
	return nil
}

// IsProcessed reports whether a document with exactly this identifier
// exists
func (s *MongoStore) IsProcessed(ctx context.Context, identifier string) (bool, error) {
	if s.collection == nil {
		return false, model.Errorf(model.KindLookupFailure, "is processed", "collection not initialized")
	}

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.collection.FindOne(ctx, bson.M{identifierField: identifier}, opts).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, model.NewError(model.KindLookupFailure, fmt.Sprintf("is processed %s", identifier), err)
	}
}

// Write upserts the document keyed by its identifier
func (s *MongoStore) Write(ctx context.Context, namespace string, doc *model.Document, path string) error {
	if s.collection == nil {
		return model.Errorf(model.KindPersistenceFailure, "write", "collection not initialized")
	}
	if doc.Metadata.Identifier == "" {
		return model.Errorf(model.KindPersistenceFailure, "write", "document %q has no identifier", doc.Title)
	}

	record := storedDocument{
		Document:  *doc,
		Namespace: namespace,
		Path:      path,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{identifierField: doc.Metadata.Identifier},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return model.NewError(model.KindPersistenceFailure, fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// Ping checks the connection
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
