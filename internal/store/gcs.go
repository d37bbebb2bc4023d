package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dshills/covtrack/internal/snapshot"
)

// GCSStore keeps records files as objects in a Cloud Storage bucket. The
// object generation is the content id.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCSStore. credentialsFile may be empty to use application
// default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs store requires a bucket")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Read(ctx context.Context, key snapshot.Key) ([]byte, string, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, "", classifyGCS(err, key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("reading gs://%s/%s: %w", s.bucket, s.objectName(key), err)
	}
	return data, strconv.FormatInt(r.Attrs.Generation, 10), nil
}

func (s *GCSStore) Write(ctx context.Context, key snapshot.Key, data []byte, expectedID string) (string, error) {
	cond, err := conditions(expectedID)
	if err != nil {
		return "", err
	}

	w := s.object(key).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", classifyGCS(err, key)
	}
	if err := w.Close(); err != nil {
		return "", classifyGCS(err, key)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

func (s *GCSStore) Delete(ctx context.Context, key snapshot.Key, expectedID string) error {
	if expectedID == "" {
		return fmt.Errorf("%w: delete of %s without a generation", ErrConflict, key.Path())
	}
	cond, err := conditions(expectedID)
	if err != nil {
		return err
	}
	if err := s.object(key).If(cond).Delete(ctx); err != nil {
		return classifyGCS(err, key)
	}
	return nil
}

func (s *GCSStore) object(key snapshot.Key) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.objectName(key))
}

func (s *GCSStore) objectName(key snapshot.Key) string {
	if s.prefix == "" {
		return key.Path()
	}
	return path.Join(s.prefix, key.Path())
}

func conditions(expectedID string) (storage.Conditions, error) {
	if expectedID == "" {
		return storage.Conditions{DoesNotExist: true}, nil
	}
	gen, err := strconv.ParseInt(expectedID, 10, 64)
	if err != nil {
		return storage.Conditions{}, fmt.Errorf("invalid object generation %q: %w", expectedID, err)
	}
	return storage.Conditions{GenerationMatch: gen}, nil
}

// classifyGCS maps Cloud Storage failures onto the store error kinds.
func classifyGCS(err error, key snapshot.Key) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key.Path())
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %s", ErrConflict, key.Path())
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, key.Path())
		}
	}
	return fmt.Errorf("gcs %s: %w", key.Path(), err)
}
