package report

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// BranchEntry is one row of a team table in the tracking README.
type BranchEntry struct {
	Key        snapshot.Key
	Coverage   int16
	LastDelta  int16
	Delta7     int16
	Delta30    int16
	Delta90    int16
	LastUpdate time.Time
}

// NewBranchEntry summarises c. It reports false when any figure is
// unavailable, which only happens for a collection without snapshots.
func NewBranchEntry(key snapshot.Key, c *snapshot.Collection) (BranchEntry, bool) {
	latest, ok := c.Latest()
	if !ok {
		return BranchEntry{}, false
	}
	e := BranchEntry{Key: key, Coverage: latest.Percentage, LastUpdate: latest.Time()}
	for _, f := range []struct {
		dst *int16
		fn  func() (int16, bool)
	}{
		{&e.LastDelta, c.LastDelta},
		{&e.Delta7, c.Delta7Days},
		{&e.Delta30, c.Delta30Days},
		{&e.Delta90, c.Delta90Days},
	} {
		v, ok := f.fn()
		if !ok {
			return BranchEntry{}, false
		}
		*f.dst = v
	}
	return e, true
}

// Readme is the content of the tracking repository front page.
type Readme struct {
	// Owner and Repo identify the tracking repository itself.
	Owner string
	Repo  string
	Teams map[snapshot.Team][]BranchEntry
	Total int
}

// Entries returns the rows of team in key order.
func (r Readme) Entries(team snapshot.Team) []BranchEntry {
	return r.Teams[team]
}

// BuildReadme buckets every walked collection under its team.
func BuildReadme(owner, repo string, entries []store.Entry) Readme {
	r := Readme{Owner: owner, Repo: repo, Teams: make(map[snapshot.Team][]BranchEntry)}
	for _, e := range entries {
		be, ok := NewBranchEntry(e.Key, e.Collection)
		if !ok {
			continue
		}
		r.Teams[e.Collection.Team] = append(r.Teams[e.Collection.Team], be)
		r.Total++
	}
	for team := range r.Teams {
		slices.SortFunc(r.Teams[team], func(a, b BranchEntry) int { return a.Key.Compare(b.Key) })
	}
	return r
}

// BranchFile is one row of a branch report.
type BranchFile struct {
	Path       string
	Percentage int16
	Ranges     []ranges.LineRange
}

// BranchReport is the per-branch page of the tracking repository.
type BranchReport struct {
	Key   snapshot.Key
	Team  snapshot.Team
	Entry BranchEntry
	Files []BranchFile
}

// BuildBranchReport summarises the newest snapshot of key.
func BuildBranchReport(key snapshot.Key, c *snapshot.Collection) (BranchReport, error) {
	entry, ok := NewBranchEntry(key, c)
	if !ok {
		return BranchReport{}, fmt.Errorf("%w %s", ErrMissingHistory, key)
	}
	latest, _ := c.Latest()

	r := BranchReport{Key: key, Team: c.Team, Entry: entry}
	for p, rec := range latest.Files {
		r.Files = append(r.Files, BranchFile{
			Path:       p,
			Percentage: rec.Percentage,
			Ranges:     ranges.CoalesceAdjacent(rec.UntestedLines),
		})
	}
	slices.SortFunc(r.Files, func(a, b BranchFile) int { return strings.Compare(a.Path, b.Path) })
	return r, nil
}

// BranchReportFromWalk finds key in a records walk and builds its report.
func BranchReportFromWalk(entries []store.Entry, key snapshot.Key) (BranchReport, error) {
	e, ok := store.Find(entries, key)
	if !ok {
		return BranchReport{}, fmt.Errorf("%w %s", ErrMissingHistory, key)
	}
	return BuildBranchReport(key, e.Collection)
}

// ReportPath is where the branch report lives in the tracking repository.
func ReportPath(key snapshot.Key) string {
	return path.Join("reports", key.Owner, key.Repo, key.Branch+".md")
}
