package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docgate/docgate/internal/identity"
	"github.com/docgate/docgate/internal/metadata"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const namespaceExistsCode = 48

// MongoGateway implements Gateway against a MongoDB database. The *mongo.Database
// handle is shared by all requests; concurrency safety is the driver's.
type MongoGateway struct {
	db           *mongo.Database
	defaultLimit int64
	maxLimit     int64
}

// NewMongoGateway wraps db. Find calls default to defaultLimit results and are
// capped at maxLimit regardless of what the caller asks for.
func NewMongoGateway(db *mongo.Database, defaultLimit, maxLimit int64) *MongoGateway {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &MongoGateway{db: db, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

func validateCollection(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "$\x00") || strings.HasPrefix(name, "system.") {
		return ErrInvalidName
	}
	return nil
}

func (g *MongoGateway) ListCollections(ctx context.Context) ([]string, error) {
	names, err := g.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

func (g *MongoGateway) CreateCollection(ctx context.Context, name string) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if err := g.db.CreateCollection(ctx, name); err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) && ce.Code == namespaceExistsCode {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}

func (g *MongoGateway) Insert(ctx context.Context, id identity.Identity, collection string, doc bson.M) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	stamped := metadata.StripReserved(doc)
	for k, v := range metadata.Creation(id) {
		stamped[k] = v
	}
	res, err := g.db.Collection(collection).InsertOne(ctx, stamped)
	if err != nil {
		return "", fmt.Errorf("insert into %q: %w", collection, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (g *MongoGateway) Find(ctx context.Context, collection string, filter bson.M, fo FindOptions) ([]bson.M, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	limit := fo.Limit
	if limit <= 0 {
		limit = g.defaultLimit
	}
	if limit > g.maxLimit {
		limit = g.maxLimit
	}
	opts := options.Find().SetLimit(limit)
	if fo.Skip > 0 {
		opts.SetSkip(fo.Skip)
	}
	if len(fo.Projection) > 0 {
		opts.SetProjection(fo.Projection)
	}
	if len(fo.Sort) > 0 {
		opts.SetSort(fo.Sort)
	}
	cur, err := g.db.Collection(collection).Find(ctx, metadata.WithActiveOnly(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %q: %w", collection, err)
	}
	defer cur.Close(ctx)
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode find results: %w", err)
	}
	return out, nil
}

func (g *MongoGateway) GetByID(ctx context.Context, collection, docID string) (bson.M, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, ErrInvalidID
	}
	var doc bson.M
	err = g.db.Collection(collection).FindOne(ctx, metadata.WithActiveOnly(bson.M{"_id": oid})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}
	return doc, nil
}

func (g *MongoGateway) UpdateByID(ctx context.Context, id identity.Identity, collection, docID string, fields bson.M) (bson.M, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := metadata.StripReserved(fields)
	for k, v := range metadata.Update(id) {
		set[k] = v
	}
	// FindOneAndUpdate restricted to active documents: updating an
	// already-deleted document reports not-found and never touches it.
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated bson.M
	err = g.db.Collection(collection).
		FindOneAndUpdate(ctx, metadata.WithActiveOnly(bson.M{"_id": oid}), bson.M{"$set": set}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s/%s: %w", collection, docID, err)
	}
	return updated, nil
}

func (g *MongoGateway) SoftDeleteByID(ctx context.Context, id identity.Identity, collection, docID string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return ErrInvalidID
	}
	res, err := g.db.Collection(collection).
		UpdateOne(ctx, metadata.WithActiveOnly(bson.M{"_id": oid}), bson.M{"$set": metadata.Deletion(id)})
	if err != nil {
		return fmt.Errorf("soft delete %s/%s: %w", collection, docID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *MongoGateway) SoftDeleteByFilter(ctx context.Context, id identity.Identity, collection string, filter bson.M) (int64, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	res, err := g.db.Collection(collection).
		UpdateMany(ctx, metadata.WithActiveOnly(filter), bson.M{"$set": metadata.Deletion(id)})
	if err != nil {
		return 0, fmt.Errorf("soft delete by filter in %q: %w", collection, err)
	}
	return res.ModifiedCount, nil
}
