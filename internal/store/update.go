package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dshills/covtrack/internal/snapshot"
)

// UpdateOptions tunes Update.
type UpdateOptions struct {
	// MaxRetries is the number of extra attempts after a conflict.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles each attempt.
	// Zero means one second.
	Backoff time.Duration
	Logger  *slog.Logger
}

// Update loads the collection at key (or a new one owned by team), applies
// fn and writes the result back conditionally. A conflicting write reloads
// and reapplies fn, up to opts.MaxRetries times. Other errors, including
// ErrUnauthorized, are returned immediately.
func Update(ctx context.Context, blobs BlobStore, key snapshot.Key, team snapshot.Team, fn func(*snapshot.Collection) error, opts UpdateOptions) (*snapshot.Collection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var result *snapshot.Collection
	err := retryOnConflict(ctx, opts.MaxRetries, backoff, func(attempt int) error {
		c, id, err := Load(ctx, blobs, key)
		if errors.Is(err, ErrNotFound) {
			c, id, err = snapshot.New(team), "", nil
		}
		if err != nil {
			return err
		}

		if err := fn(c); err != nil {
			return err
		}
		data, err := c.Encode()
		if err != nil {
			return err
		}
		newID, err := blobs.Write(ctx, key, data, id)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				logger.Warn("records write conflict", "key", key.Path(), "attempt", attempt+1)
			}
			return err
		}
		logger.Debug("records written", "key", key.Path(), "content_id", newID)
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func retryOnConflict(ctx context.Context, maxRetries int, backoff time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		// Only conflicts are worth another read-modify-write.
		if !errors.Is(lastErr, ErrConflict) {
			return lastErr
		}

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << uint(attempt)):
			}
		}
	}
	return lastErr
}
