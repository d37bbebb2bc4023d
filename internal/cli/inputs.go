package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/covtrack/internal/github"
	"github.com/dshills/covtrack/internal/lcov"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// resolveRepo returns the "owner/repo" to report on: the flag, then
// GITHUB_REPOSITORY as set in Actions, then the origin remote.
func resolveRepo(ctx context.Context, flag string) (owner, repo string, err error) {
	s := flag
	if s == "" {
		s = os.Getenv("GITHUB_REPOSITORY")
	}
	if s == "" {
		owner, repo, err := github.DetectRepo(ctx)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w (use --repo owner/repo)", errUsage, err)
		}
		return owner, repo, nil
	}
	return snapshot.ParseRepo(s)
}

// resolveBranch returns the flag, then GITHUB_REF_NAME.
func resolveBranch(flag string) (string, error) {
	b := flag
	if b == "" {
		b = os.Getenv("GITHUB_REF_NAME")
	}
	b = snapshot.TrimBranch(b)
	if b == "" {
		return "", fmt.Errorf("%w: --branch is required", errUsage)
	}
	return b, nil
}

func loadLCOV(path string) (lcov.Records, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --lcov is required", errUsage)
	}
	return lcov.ParseFile(path)
}

// openStore selects the records backend. coverageOwner and coverageRepo
// name the tracking repository used by the github backend. The returned
// close function is never nil; a failure to close is logged, not returned.
func (a *app) openStore(ctx context.Context, client *github.Client, coverageOwner, coverageRepo string) (store.BlobStore, func(), error) {
	noop := func() {}
	sc := a.cfg.Store
	switch sc.Backend {
	case "github":
		if client == nil {
			return nil, noop, github.ErrMissingToken
		}
		return github.NewContentsStore(client, coverageOwner, coverageRepo, sc.RecordsBranch, a.author()), noop, nil
	case "gcs":
		if sc.Bucket == "" {
			return nil, noop, fmt.Errorf("%w: store.bucket is required for the gcs backend", errUsage)
		}
		s, err := store.NewGCS(ctx, sc.Bucket, sc.Prefix, sc.CredentialsFile)
		if err != nil {
			return nil, noop, err
		}
		return s, a.closer("gcs", s.Close), nil
	case "fs":
		s, err := store.NewFS(sc.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown store backend %q", errUsage, sc.Backend)
	}
}

// closer wraps a store's Close so that deferring it keeps the error in the
// debug log.
func (a *app) closer(backend string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			a.logger.Debug("closing store", "backend", backend, "error", err)
		}
	}
}

func (a *app) updateOptions() store.UpdateOptions {
	return store.UpdateOptions{MaxRetries: a.cfg.Store.MaxRetries, Logger: a.logger}
}
