package github

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// fakeContents serves the contents API of a single repository branch from
// memory, enforcing blob SHAs the way GitHub does.
type fakeContents struct {
	mu        sync.Mutex
	files     map[string][]byte
	committer []Author
	// racePuts makes the next n PUTs fail as if another writer won.
	racePuts int
}

func blobSHA(data []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func (f *fakeContents) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/cov/records/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "records", r.URL.Query().Get("ref"))
		data, ok := f.files[r.PathValue("path")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		json.NewEncoder(w).Encode(contentFile{
			SHA:      blobSHA(data),
			Content:  base64.StdEncoding.EncodeToString(data),
			Encoding: "base64",
		})
	})
	mux.HandleFunc("PUT /repos/cov/records/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req putContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "records", req.Branch)
		if req.Committer != nil {
			f.committer = append(f.committer, *req.Committer)
		}

		path := r.PathValue("path")
		current, exists := f.files[path]
		switch {
		case f.racePuts > 0:
			f.racePuts--
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"is at 000 but expected 111"}`))
			return
		case exists && req.SHA == "":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"\"sha\" wasn't supplied."}`))
			return
		case exists && req.SHA != blobSHA(current):
			w.WriteHeader(http.StatusConflict)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		require.NoError(t, err)
		f.files[path] = data
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"content": contentFile{SHA: blobSHA(data)}})
	})
	mux.HandleFunc("DELETE /repos/cov/records/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req deleteContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		path := r.PathValue("path")
		current, exists := f.files[path]
		switch {
		case !exists:
			w.WriteHeader(http.StatusNotFound)
		case req.SHA != blobSHA(current):
			w.WriteHeader(http.StatusConflict)
		default:
			delete(f.files, path)
			w.Write([]byte(`{}`))
		}
	})
	return mux
}

var recordsKey = snapshot.Key{Owner: "acme", Repo: "widgets", Branch: "main"}

func newContentsStore(t *testing.T) (*ContentsStore, *fakeContents) {
	t.Helper()
	fake := &fakeContents{files: map[string][]byte{}}
	c := newTestClient(t, fake.handler(t))
	return NewContentsStore(c, "cov", "records", "records", &Author{Name: "covtrack", Email: "bot@example.com"}), fake
}

func TestContentsStore_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	s, fake := newContentsStore(t)

	_, _, err := s.Read(ctx, recordsKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	id, err := s.Write(ctx, recordsKey, []byte("v1"), "")
	require.NoError(t, err)
	assert.Equal(t, blobSHA([]byte("v1")), id)
	assert.Contains(t, fake.files, "acme/widgets/main.covtrack.json")

	data, readID, err := s.Read(ctx, recordsKey)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, id, readID)

	_, err = s.Write(ctx, recordsKey, []byte("v2"), "")
	assert.ErrorIs(t, err, store.ErrConflict)
	_, err = s.Write(ctx, recordsKey, []byte("v2"), "stale")
	assert.ErrorIs(t, err, store.ErrConflict)

	assert.ErrorIs(t, s.Delete(ctx, recordsKey, "stale"), store.ErrConflict)
	require.NoError(t, store.Remove(ctx, s, recordsKey))
	assert.Empty(t, fake.files)
	assert.Equal(t, "covtrack", fake.committer[0].Name)
}

func TestContentsStore_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	s := NewContentsStore(c, "cov", "records", "records", nil)

	_, _, err := s.Read(context.Background(), recordsKey)
	assert.ErrorIs(t, err, store.ErrUnauthorized)
	_, err = s.Write(context.Background(), recordsKey, []byte("x"), "")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestContentsStore_UpdateRetriesRace(t *testing.T) {
	ctx := context.Background()
	s, fake := newContentsStore(t)
	fake.racePuts = 1

	now := time.Unix(1_700_000_000, 0)
	_, err := store.Update(ctx, s, recordsKey, snapshot.TeamProduct, func(c *snapshot.Collection) error {
		c.Append(64.5, nil, now)
		return nil
	}, store.UpdateOptions{MaxRetries: 2, Backoff: time.Millisecond})
	require.NoError(t, err)

	c, _, err := store.Load(ctx, s, recordsKey)
	require.NoError(t, err)
	assert.Equal(t, snapshot.TeamProduct, c.Team)
	require.Len(t, c.Snapshots, 1)
	assert.Equal(t, int16(6450), c.Snapshots[0].Percentage)
}

func TestUpsertFile(t *testing.T) {
	ctx := context.Background()
	s, fake := newContentsStore(t)
	c := s.client

	require.NoError(t, c.UpsertFile(ctx, "cov", "records", "records", "README.md", "update", []byte("one"), nil))
	require.NoError(t, c.UpsertFile(ctx, "cov", "records", "records", "README.md", "update", []byte("two"), nil))
	assert.Equal(t, "two", string(fake.files["README.md"]))
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "acme/widgets/feature%20x.covtrack.json", escapePath("acme/widgets/feature x.covtrack.json"))
}
