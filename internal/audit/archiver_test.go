package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSource struct {
	mu      sync.Mutex
	records []Record
}

func (f *fakeSource) OlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, r := range f.records {
		if r.CreatedAt.Before(cutoff) && int64(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) Remove(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.records[:0]
	var n int64
	for _, r := range f.records {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return n, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = b
	return nil
}

func TestArchiveOnceExportsAndPrunes(t *testing.T) {
	src := &fakeSource{}
	old := Record{ID: primitive.NewObjectID(), Username: "alice", Method: "GET", Path: "/api/v1/collections", StatusCode: 200, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := Record{ID: primitive.NewObjectID(), Username: "bob", Method: "POST", Path: "/api/v1/collections", StatusCode: 201, CreatedAt: time.Now().UTC()}
	src.records = []Record{old, fresh}
	up := &fakeUploader{}

	a := NewArchiver(src, up, 24*time.Hour, time.Hour)
	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// the fresh record stays hot
	require.Len(t, src.records, 1)
	require.Equal(t, fresh.ID, src.records[0].ID)

	// exactly one JSON-lines object uploaded, decodable line by line
	require.Len(t, up.objects, 1)
	for _, body := range up.objects {
		sc := bufio.NewScanner(bytes.NewReader(body))
		var lines int
		for sc.Scan() {
			var r Record
			require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
			require.Equal(t, "alice", r.Username)
			lines++
		}
		require.Equal(t, 1, lines)
	}
}

func TestArchiveOnceNothingExpired(t *testing.T) {
	src := &fakeSource{records: []Record{{ID: primitive.NewObjectID(), CreatedAt: time.Now().UTC()}}}
	up := &fakeUploader{}
	a := NewArchiver(src, up, 24*time.Hour, time.Hour)

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, up.objects)
}

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder()
	require.NoError(t, rec.Record(context.Background(), &Record{Username: "alice"}))
	require.Len(t, rec.Records(), 1)

	rec.FailWith(io.ErrClosedPipe)
	require.Error(t, rec.Record(context.Background(), &Record{}))
	require.Len(t, rec.Records(), 1)
}
