package gateway

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/identity"
	"github.com/docgate/docgate/internal/metadata"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	alice = identity.Identity{Username: "alice", Email: "alice@example.com"}
	bob   = identity.Identity{Username: "bob"}
)

func TestInsertStampsCreationMetadata(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	id, err := g.Insert(ctx, alice, "items", bson.M{"name": "Widget"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := g.GetByID(ctx, "items", id)
	require.NoError(t, err)
	require.Equal(t, "Widget", doc["name"])
	require.Equal(t, "alice", doc[metadata.FieldCreatedBy])
	require.NotZero(t, doc[metadata.FieldCreatedAt])
	require.NotContains(t, doc, metadata.FieldDeletedAt)
}

func TestInsertWithoutIdentityAttributesSystem(t *testing.T) {
	g := NewMemoryGateway()
	id, err := g.Insert(context.Background(), identity.Identity{}, "items", bson.M{"name": "x"})
	require.NoError(t, err)
	doc, err := g.GetByID(context.Background(), "items", id)
	require.NoError(t, err)
	require.Equal(t, "system", doc[metadata.FieldCreatedBy])
}

func TestInsertDiscardsReservedFields(t *testing.T) {
	g := NewMemoryGateway()
	id, err := g.Insert(context.Background(), alice, "items", bson.M{
		"name":                   "Widget",
		metadata.FieldCreatedBy:  "mallory",
		metadata.FieldDeletedAt:  "spoofed",
	})
	require.NoError(t, err)
	doc, err := g.GetByID(context.Background(), "items", id)
	require.NoError(t, err)
	require.Equal(t, "alice", doc[metadata.FieldCreatedBy])
	require.NotContains(t, doc, metadata.FieldDeletedAt)
}

func TestSoftDeleteHidesDocumentFromReads(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	id, err := g.Insert(ctx, alice, "items", bson.M{"name": "Widget"})
	require.NoError(t, err)

	require.NoError(t, g.SoftDeleteByID(ctx, bob, "items", id))

	// reads with default filtering never see the document again
	_, err = g.GetByID(ctx, "items", id)
	require.ErrorIs(t, err, ErrNotFound)
	docs, err := g.Find(ctx, "items", bson.M{}, FindOptions{})
	require.NoError(t, err)
	require.Empty(t, docs)

	// direct store inspection still does
	raw, ok := g.Inspect("items", id)
	require.True(t, ok)
	require.Equal(t, "bob", raw[metadata.FieldDeletedBy])
	require.NotZero(t, raw[metadata.FieldDeletedAt])
}

func TestSoftDeleteIsIdempotentInEffect(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	id, err := g.Insert(ctx, alice, "items", bson.M{"name": "Widget"})
	require.NoError(t, err)

	require.NoError(t, g.SoftDeleteByID(ctx, alice, "items", id))
	require.ErrorIs(t, g.SoftDeleteByID(ctx, alice, "items", id), ErrNotFound)
}

func TestUpdateDeletedDocumentIsNotFound(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	id, err := g.Insert(ctx, alice, "items", bson.M{"name": "Widget"})
	require.NoError(t, err)
	require.NoError(t, g.SoftDeleteByID(ctx, bob, "items", id))

	before, _ := g.Inspect("items", id)

	_, err = g.UpdateByID(ctx, alice, "items", id, bson.M{"name": "Widget2"})
	require.ErrorIs(t, err, ErrNotFound)

	after, _ := g.Inspect("items", id)
	require.Equal(t, before["name"], after["name"])
	require.Equal(t, before[metadata.FieldDeletedAt], after[metadata.FieldDeletedAt])
	require.Equal(t, before[metadata.FieldDeletedBy], after[metadata.FieldDeletedBy])
}

func TestUpdateStampsUpdateMetadata(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	id, err := g.Insert(ctx, alice, "items", bson.M{"name": "Widget"})
	require.NoError(t, err)

	doc, err := g.UpdateByID(ctx, bob, "items", id, bson.M{"name": "Widget2"})
	require.NoError(t, err)
	require.Equal(t, "Widget2", doc["name"])
	require.Equal(t, "bob", doc[metadata.FieldUpdatedBy])
	require.Equal(t, "alice", doc[metadata.FieldCreatedBy])
}

func TestSoftDeleteByFilter(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	_, err := g.Insert(ctx, alice, "items", bson.M{"kind": "a"})
	require.NoError(t, err)
	_, err = g.Insert(ctx, alice, "items", bson.M{"kind": "a"})
	require.NoError(t, err)
	_, err = g.Insert(ctx, alice, "items", bson.M{"kind": "b"})
	require.NoError(t, err)

	n, err := g.SoftDeleteByFilter(ctx, bob, "items", bson.M{"kind": "a"})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// second pass matches nothing; zero affected is not an error
	n, err = g.SoftDeleteByFilter(ctx, bob, "items", bson.M{"kind": "a"})
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	docs, err := g.Find(ctx, "items", bson.M{}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "b", docs[0]["kind"])
}

func TestFindPaginationAndProjection(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := g.Insert(ctx, alice, "items", bson.M{"n": i, "secret": "x"})
		require.NoError(t, err)
	}

	docs, err := g.Find(ctx, "items", bson.M{}, FindOptions{
		Sort:       bson.M{"n": -1},
		Skip:       1,
		Limit:      2,
		Projection: bson.M{"n": 1},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, 3, docs[0]["n"])
	require.Equal(t, 2, docs[1]["n"])
	require.NotContains(t, docs[0], "secret")
}

func TestInvalidInputs(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	require.ErrorIs(t, g.CreateCollection(ctx, ""), ErrInvalidName)
	require.ErrorIs(t, g.CreateCollection(ctx, "system.users"), ErrInvalidName)

	_, err := g.GetByID(ctx, "items", "not-an-objectid")
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = g.UpdateByID(ctx, alice, "items", "nope", bson.M{})
	require.ErrorIs(t, err, ErrInvalidID)
	require.ErrorIs(t, g.SoftDeleteByID(ctx, alice, "items", "nope"), ErrInvalidID)
}

func TestCreateCollectionIdempotent(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "items"))
	require.ErrorIs(t, g.CreateCollection(ctx, "items"), ErrAlreadyExists)

	names, err := g.ListCollections(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"items"}, names)
}
