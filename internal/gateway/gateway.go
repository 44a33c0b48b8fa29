package gateway

import (
	"context"
	"errors"

	"github.com/docgate/docgate/internal/identity"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound covers missing documents and documents that are already
	// soft-deleted; the two are deliberately indistinguishable.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID means the identifier is not convertible to a store id.
	ErrInvalidID = errors.New("invalid document id")
	// ErrInvalidName means the collection name is empty or reserved.
	ErrInvalidName = errors.New("invalid collection name")
	// ErrAlreadyExists is returned by CreateCollection when the collection
	// exists; callers treat it as an idempotent success.
	ErrAlreadyExists = errors.New("collection already exists")
)

// FindOptions carries the optional shaping parameters of a Find call.
// Limit is capped by the gateway regardless of the requested value.
type FindOptions struct {
	Projection bson.M
	Sort       bson.M
	Skip       int64
	Limit      int64
}

// Gateway exposes CRUD over named document collections with uniform
// soft-delete semantics. Every mutation is stamped with lifecycle metadata
// attributed to the acting identity, and every read excludes soft-deleted
// documents.
type Gateway interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	Insert(ctx context.Context, id identity.Identity, collection string, doc bson.M) (string, error)
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error)
	GetByID(ctx context.Context, collection, docID string) (bson.M, error)
	UpdateByID(ctx context.Context, id identity.Identity, collection, docID string, fields bson.M) (bson.M, error)
	SoftDeleteByID(ctx context.Context, id identity.Identity, collection, docID string) error
	SoftDeleteByFilter(ctx context.Context, id identity.Identity, collection string, filter bson.M) (int64, error)
}
