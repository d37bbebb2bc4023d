package store

import (
	"context"
	"errors"

	"github.com/dshills/covtrack/internal/snapshot"
)

var (
	// ErrNotFound is returned by Read and Delete when no blob exists.
	ErrNotFound = errors.New("records file not found")
	// ErrConflict is returned when a conditional write or delete is rejected
	// because the blob changed since it was read. It is safe to retry.
	ErrConflict = errors.New("records file changed concurrently")
	// ErrUnauthorized is returned when the backend rejects the credentials.
	// It is never retried.
	ErrUnauthorized = errors.New("not authorized to access records")
)

// BlobStore is the persistence boundary for records files.
//
// Read returns the content id of the stored bytes. Write succeeds only when
// the stored id still equals expectedID; an empty expectedID means the blob
// must not exist yet.
type BlobStore interface {
	Read(ctx context.Context, key snapshot.Key) (data []byte, contentID string, err error)
	Write(ctx context.Context, key snapshot.Key, data []byte, expectedID string) (newID string, err error)
	Delete(ctx context.Context, key snapshot.Key, expectedID string) error
}

// Load reads and decodes the collection at key. The returned content id is
// the one to pass back to Write.
func Load(ctx context.Context, blobs BlobStore, key snapshot.Key) (*snapshot.Collection, string, error) {
	data, id, err := blobs.Read(ctx, key)
	if err != nil {
		return nil, "", err
	}
	c, err := snapshot.Decode(data)
	if err != nil {
		return nil, "", err
	}
	return c, id, nil
}

// Remove deletes the records file at key, guarded by the content id read
// just before.
func Remove(ctx context.Context, blobs BlobStore, key snapshot.Key) error {
	_, id, err := blobs.Read(ctx, key)
	if err != nil {
		return err
	}
	return blobs.Delete(ctx, key, id)
}
