package audit

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// Recorder persists audit records. Implementations must be safe for
// concurrent use; callers treat the write as fire-and-forget.
type Recorder interface {
	Record(ctx context.Context, r *Record) error
}

// MongoRecorder writes records to a dedicated audit collection.
type MongoRecorder struct {
	col *mongo.Collection
}

func NewMongoRecorder(col *mongo.Collection) *MongoRecorder {
	return &MongoRecorder{col: col}
}

func (m *MongoRecorder) Record(ctx context.Context, r *Record) error {
	if _, err := m.col.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// MemoryRecorder collects records in memory for tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
	fail    error
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

// FailWith makes subsequent Record calls return err.
func (m *MemoryRecorder) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemoryRecorder) Record(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
