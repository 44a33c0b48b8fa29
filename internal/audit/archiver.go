package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/docgate/docgate/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Source yields expired audit records and removes them once archived.
type Source interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]Record, error)
	Remove(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// Uploader is the slice of the object store the archiver needs.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// MongoSource reads expired records from the audit collection.
type MongoSource struct {
	col *mongo.Collection
}

func NewMongoSource(col *mongo.Collection) *MongoSource { return &MongoSource{col: col} }

func (s *MongoSource) OlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]Record, error) {
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"created_at": 1})
	cur, err := s.col.Find(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find expired audit records: %w", err)
	}
	defer cur.Close(ctx)
	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode expired audit records: %w", err)
	}
	return out, nil
}

func (s *MongoSource) Remove(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("remove archived audit records: %w", err)
	}
	return res.DeletedCount, nil
}

// Archiver periodically exports audit records older than the retention window
// to object storage as JSON lines, then prunes them from the hot collection.
// It is the only component allowed to remove audit records.
type Archiver struct {
	src       Source
	store     Uploader
	retention time.Duration
	interval  time.Duration
	batch     int64
}

func NewArchiver(src Source, store Uploader, retention, interval time.Duration) *Archiver {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{src: src, store: store, retention: retention, interval: interval, batch: 1000}
}

// Run archives in a loop until ctx is canceled.
func (a *Archiver) Run(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.ArchiveOnce(ctx)
			if err != nil {
				logger.Errorf("audit archive pass failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("archived %d audit records", n)
			}
		}
	}
}

// ArchiveOnce exports and prunes one batch of expired records. Returns the
// number of records archived.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-a.retention)
	records, err := a.src.OlderThan(ctx, cutoff, a.batch)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	body, err := encodeLines(records)
	if err != nil {
		return 0, err
	}
	key := archiveKey(time.Now().UTC())
	if err := a.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("upload audit archive %s: %w", key, err)
	}
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if _, err := a.src.Remove(ctx, ids); err != nil {
		// the archive upload succeeded; records will be retried (and
		// re-uploaded) on the next pass, which is harmless
		return len(records), err
	}
	return len(records), nil
}

func encodeLines(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return nil, fmt.Errorf("encode audit record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func archiveKey(now time.Time) string {
	return fmt.Sprintf("audit/%s/%s.jsonl", now.Format("2006/01/02"), now.Format("150405.000000000"))
}
