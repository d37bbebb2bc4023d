package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/covtrack/internal/snapshot"
)

// Entry is one collection found by Walk.
type Entry struct {
	Key        snapshot.Key
	Collection *snapshot.Collection
}

// Walk loads every root/owner/repo/branch.covtrack.json below root. Exactly
// three levels are visited and symlinks are skipped at each of them. Files
// are decoded concurrently; the result is sorted by key.
func Walk(ctx context.Context, root string) ([]Entry, error) {
	var keys []snapshot.Key

	owners, err := readDirs(root)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		repos, err := readDirs(filepath.Join(root, owner))
		if err != nil {
			return nil, err
		}
		for _, repo := range repos {
			branches, err := readRecordFiles(filepath.Join(root, owner, repo))
			if err != nil {
				return nil, err
			}
			for _, branch := range branches {
				keys = append(keys, snapshot.Key{Owner: owner, Repo: repo, Branch: branch})
			}
		}
	}

	entries := make([]Entry, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(root, key.Owner, key.Repo, key.Branch+snapshot.FileSuffix)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			c, err := snapshot.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			entries[i] = Entry{Key: key, Collection: c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int { return a.Key.Compare(b.Key) })
	return entries, nil
}

// Find returns the entry for key from a Walk result.
func Find(entries []Entry, key snapshot.Key) (Entry, bool) {
	i, ok := slices.BinarySearchFunc(entries, key, func(e Entry, k snapshot.Key) int {
		return e.Key.Compare(k)
	})
	if !ok {
		return Entry{}, false
	}
	return entries[i], true
}

// readDirs lists the real directories directly inside dir.
func readDirs(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading records directory: %w", err)
	}
	var names []string
	for _, de := range des {
		if de.Type()&os.ModeSymlink != 0 || !de.IsDir() {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

// readRecordFiles lists branch names of the regular records files in dir.
func readRecordFiles(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading records directory: %w", err)
	}
	var names []string
	for _, de := range des {
		if de.Type()&os.ModeSymlink != 0 || de.IsDir() {
			continue
		}
		branch, ok := strings.CutSuffix(de.Name(), snapshot.FileSuffix)
		if !ok || branch == "" {
			continue
		}
		names = append(names, branch)
	}
	return names, nil
}
