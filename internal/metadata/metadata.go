package metadata

import (
	"time"

	"github.com/docgate/docgate/internal/identity"
	"go.mongodb.org/mongo-driver/bson"
)

// Reserved lifecycle fields stamped by the gateway on every mutation.
// Caller-supplied values for these keys are always discarded.
const (
	FieldCreatedAt = "created_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedAt = "updated_at"
	FieldUpdatedBy = "updated_by"
	FieldDeletedAt = "deleted_at"
	FieldDeletedBy = "deleted_by"
)

var reserved = []string{
	FieldCreatedAt, FieldCreatedBy,
	FieldUpdatedAt, FieldUpdatedBy,
	FieldDeletedAt, FieldDeletedBy,
}

// Creation returns the fields stamped onto a document at insert time.
func Creation(id identity.Identity) bson.M {
	return bson.M{
		FieldCreatedAt: time.Now().UTC(),
		FieldCreatedBy: id.Attribution(),
	}
}

// Update returns the fields stamped onto a document on every accepted update.
func Update(id identity.Identity) bson.M {
	return bson.M{
		FieldUpdatedAt: time.Now().UTC(),
		FieldUpdatedBy: id.Attribution(),
	}
}

// Deletion returns the fields that mark a document soft-deleted.
func Deletion(id identity.Identity) bson.M {
	return bson.M{
		FieldDeletedAt: time.Now().UTC(),
		FieldDeletedBy: id.Attribution(),
	}
}

// WithActiveOnly returns a copy of filter that additionally requires the
// absence of deleted_at. The clause is applied last: a caller filter that
// mentions deleted_at is overridden, not merged. The input is never mutated.
func WithActiveOnly(filter bson.M) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out[FieldDeletedAt] = bson.M{"$exists": false}
	return out
}

// StripReserved returns a copy of doc without any reserved lifecycle keys.
// Policy fields are merged after this, so they win on every key collision.
func StripReserved(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range reserved {
		delete(out, k)
	}
	return out
}
