package gateway

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docgate/docgate/internal/identity"
	"github.com/docgate/docgate/internal/metadata"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryGateway is an in-memory Gateway used by unit tests in place of a
// running MongoDB. It implements the same soft-delete semantics; filter
// matching supports equality constraints and the {$exists: bool} operator
// (enough for the active-only clause), and sorting supports a single key.
type MemoryGateway struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	maxLimit    int64
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{collections: map[string][]bson.M{}, maxLimit: 500}
}

func (g *MemoryGateway) ListCollections(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.collections))
	for name := range g.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (g *MemoryGateway) CreateCollection(ctx context.Context, name string) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.collections[name]; ok {
		return ErrAlreadyExists
	}
	g.collections[name] = []bson.M{}
	return nil
}

func (g *MemoryGateway) Insert(ctx context.Context, id identity.Identity, collection string, doc bson.M) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	stamped := metadata.StripReserved(doc)
	for k, v := range metadata.Creation(id) {
		stamped[k] = v
	}
	oid := primitive.NewObjectID()
	stamped["_id"] = oid
	g.mu.Lock()
	g.collections[collection] = append(g.collections[collection], stamped)
	g.mu.Unlock()
	return oid.Hex(), nil
}

func (g *MemoryGateway) Find(ctx context.Context, collection string, filter bson.M, fo FindOptions) ([]bson.M, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	limit := fo.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > g.maxLimit {
		limit = g.maxLimit
	}
	active := metadata.WithActiveOnly(filter)
	g.mu.RLock()
	matched := []bson.M{}
	for _, doc := range g.collections[collection] {
		if matches(doc, active) {
			matched = append(matched, doc)
		}
	}
	g.mu.RUnlock()
	if len(fo.Sort) > 0 {
		sortDocs(matched, fo.Sort)
	}
	if fo.Skip > 0 {
		if fo.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[fo.Skip:]
		}
	}
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	out := make([]bson.M, 0, len(matched))
	for _, doc := range matched {
		out = append(out, project(doc, fo.Projection))
	}
	return out, nil
}

func (g *MemoryGateway) GetByID(ctx context.Context, collection, docID string) (bson.M, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, ErrInvalidID
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	doc := g.findActive(collection, oid)
	if doc == nil {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (g *MemoryGateway) UpdateByID(ctx context.Context, id identity.Identity, collection, docID string, fields bson.M) (bson.M, error) {
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
	g.mu.Lock()
	defer g.mu.Unlock()
	doc := g.findActive(collection, oid)
	if doc == nil {
		return nil, ErrNotFound
	}
	for k, v := range set {
		doc[k] = v
	}
	return copyDoc(doc), nil
}

func (g *MemoryGateway) SoftDeleteByID(ctx context.Context, id identity.Identity, collection, docID string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return ErrInvalidID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	doc := g.findActive(collection, oid)
	if doc == nil {
		return ErrNotFound
	}
	for k, v := range metadata.Deletion(id) {
		doc[k] = v
	}
	return nil
}

func (g *MemoryGateway) SoftDeleteByFilter(ctx context.Context, id identity.Identity, collection string, filter bson.M) (int64, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	active := metadata.WithActiveOnly(filter)
	stamp := metadata.Deletion(id)
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for _, doc := range g.collections[collection] {
		if matches(doc, active) {
			for k, v := range stamp {
				doc[k] = v
			}
			n++
		}
	}
	return n, nil
}

// Inspect returns the raw stored document regardless of deletion state,
// mirroring an operator querying the store directly.
func (g *MemoryGateway) Inspect(collection, docID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, doc := range g.collections[collection] {
		if doc["_id"] == oid {
			return copyDoc(doc), true
		}
	}
	return nil, false
}

func (g *MemoryGateway) findActive(collection string, oid primitive.ObjectID) bson.M {
	for _, doc := range g.collections[collection] {
		if doc["_id"] == oid {
			if _, deleted := doc[metadata.FieldDeletedAt]; deleted {
				return nil
			}
			return doc
		}
	}
	return nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		got, present := doc[k]
		if op, ok := want.(bson.M); ok {
			if exists, ok := op["$exists"]; ok {
				if exists == true && !present || exists == false && present {
					return false
				}
				continue
			}
		}
		if !present || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b interface{}) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	return a == b
}

func sortDocs(docs []bson.M, by bson.M) {
	var key string
	dir := 1
	for k, v := range by {
		key = k
		if d, ok := v.(int); ok && d < 0 {
			dir = -1
		}
		break
	}
	sort.SliceStable(docs, func(i, j int) bool {
		less := lessValues(docs[i][key], docs[j][key])
		if dir < 0 {
			return lessValues(docs[j][key], docs[i][key])
		}
		return less
	})
}

func lessValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int:
		bv, _ := b.(int)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	}
	return false
}

func project(doc, projection bson.M) bson.M {
	if len(projection) == 0 {
		return copyDoc(doc)
	}
	out := bson.M{}
	if projection["_id"] != 0 {
		out["_id"] = doc["_id"]
	}
	for k, v := range projection {
		if k == "_id" {
			continue
		}
		if inc, ok := v.(int); ok && inc == 1 {
			if val, present := doc[k]; present {
				out[k] = val
			}
		}
	}
	return out
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
