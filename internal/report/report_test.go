package report

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/covtrack/internal/lcov"
	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// Added lines in the new file: 11, 12, 14 (first hunk, 10..16) and 43
// (second hunk, 42..45).
const libPatch = `@@ -10,5 +10,7 @@ fn setup() {
 let a = 1;
+let b = 2;
+let c = 3;
 let d = 4;
-let e = 5;
+let e = 6;
 let f = 7;
 let g = 8;
@@ -40,3 +42,4 @@ fn teardown() {
 close();
+log();
 drop(a);
 }
`

func fixture() lcov.Records {
	return lcov.Records{
		lcov.SourceFile("/home/ci/work/src/lib.rs"),
		lcov.LineData(10, 0),
		lcov.LineData(11, 0),
		lcov.LineData(12, 0),
		lcov.LineData(14, 0),
		lcov.LineData(43, 0),
		lcov.LineData(80, 0),
		lcov.LinesHit(4),
		lcov.LinesFound(10),
		lcov.SourceFile("/home/ci/work/src/done.rs"),
		lcov.LineData(1, 3),
		lcov.LinesFound(5),
		lcov.LinesHit(5),
		lcov.SourceFile("/home/ci/work/src/broken.rs"),
		lcov.LineData(2, 0),
		lcov.LinesHit(0),
		lcov.LinesFound(1),
	}
}

func rng(a, b uint32) ranges.LineRange { return ranges.LineRange{Start: a, End: b} }

func TestAttribute(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	a := Attribute(logger, fixture().Group(), "src/", map[string]string{
		"src/lib.rs":    libPatch,
		"src/done.rs":   "@@ -1 +1 @@\n-a\n+b\n",
		"src/broken.rs": "@@ -1,3 +1,x @@\n+a\n",
	})

	require.Len(t, a.Files, 1)
	f := a.Files[0]
	assert.Equal(t, "src/lib.rs", f.Path)
	assert.Equal(t, PathAnchor("src/lib.rs"), f.Anchor)
	assert.InDelta(t, 40.0, f.Percentage, 1e-9)
	// 10 is context and 80 is outside every hunk.
	assert.Equal(t, []uint32{11, 12, 14, 43}, f.Lines)
	assert.Equal(t, []ranges.LineRange{rng(11, 12), rng(14, 14), rng(43, 43)}, f.Ranges)
	assert.Equal(t, []ranges.LineRange{rng(11, 14), rng(43, 43)}, f.ReviewRanges)

	assert.Equal(t, []string{"src/broken.rs"}, a.Skipped)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "src/broken.rs")
}

func TestBuildPullRequest(t *testing.T) {
	base := lcov.Records{lcov.SourceFile("x"), lcov.LinesHit(1), lcov.LinesFound(4)}
	r := BuildPullRequest(slog.New(slog.DiscardHandler), fixture(), PullRequestInput{
		Owner: "acme", Repo: "widgets", Number: 9, CommitID: "abc",
		SourcePrefix: "src/",
		Diffs:        map[string]string{"src/lib.rs": libPatch},
		Base:         base,
	})

	assert.InDelta(t, 9.0/16*100, r.Total, 1e-9)
	require.NotNil(t, r.Delta)
	assert.InDelta(t, 9.0/16*100-25, *r.Delta, 1e-9)
	require.Len(t, r.Files, 1)

	noBase := BuildPullRequest(slog.New(slog.DiscardHandler), fixture(), PullRequestInput{SourcePrefix: "src/"})
	assert.Nil(t, noBase.Delta)
	assert.Empty(t, noBase.Files)
}

func TestBuildPush(t *testing.T) {
	r := BuildPush(fixture(), "acme", "widgets", "abc", "src/")

	assert.Equal(t, []string{"src/done.rs"}, r.TestedFiles)
	require.Len(t, r.Files, 2)
	assert.Equal(t, "src/lib.rs", r.Files[0].Path)
	assert.Equal(t, []uint32{10, 11, 12, 14, 43, 80}, r.Files[0].Lines)
	assert.Equal(t, []ranges.LineRange{rng(10, 12), rng(14, 14), rng(43, 43), rng(80, 80)}, r.Files[0].Ranges)
	assert.Nil(t, r.Files[0].ReviewRanges)

	recs := r.FileRecords()
	assert.Equal(t, snapshot.FileRecord{Percentage: 4000, UntestedLines: []uint32{10, 11, 12, 14, 43, 80}}, recs["src/lib.rs"])
	assert.Equal(t, snapshot.FileRecord{Percentage: 10000, UntestedLines: []uint32{}}, recs["src/done.rs"])
	assert.Equal(t, int16(0), recs["src/broken.rs"].Percentage)
}

func TestSplit_NonFiniteIsResolved(t *testing.T) {
	files := lcov.Records{lcov.SourceFile("a.go"), lcov.LineData(1, 0), lcov.LinesHit(0), lcov.LinesFound(0)}.Group()
	untested, _ := Split(files, "")
	require.Len(t, untested, 1)
	assert.Equal(t, 100.0, untested[0].Percentage)
}

func TestBuildLocal(t *testing.T) {
	in := LocalInput{Tool: "covtrack", Version: "1.0.0", RunID: "run-1", SourcePrefix: "src/"}
	r := BuildLocal(slog.New(slog.DiscardHandler), fixture(), in)
	assert.Equal(t, 3, r.FileCount)
	assert.Len(t, r.UntestedFiles, 2)
	assert.Empty(t, r.SkippedFiles)

	in.Base = "main"
	in.Diffs = map[string]string{"src/lib.rs": libPatch, "src/broken.rs": "@@ -1,3 +1,x @@\n"}
	r = BuildLocal(slog.New(slog.DiscardHandler), fixture(), in)
	require.Len(t, r.UntestedFiles, 1)
	assert.Equal(t, []uint32{11, 12, 14, 43}, r.UntestedFiles[0].Lines)
	assert.Equal(t, []string{"src/broken.rs"}, r.SkippedFiles)

	in.Diffs = map[string]string{}
	r = BuildLocal(slog.New(slog.DiscardHandler), fixture(), in)
	assert.NotNil(t, r.UntestedFiles)
	assert.Empty(t, r.UntestedFiles)
}

const day = 24 * time.Hour

func history(t *testing.T, team snapshot.Team, points ...float64) *snapshot.Collection {
	t.Helper()
	c := snapshot.New(team)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range points {
		files := map[string]snapshot.FileRecord{
			"src/b.rs": snapshot.NewFileRecord(p, []uint32{3, 4, 9}),
			"src/a.rs": snapshot.NewFileRecord(100, nil),
		}
		c.Append(p, files, start.Add(time.Duration(i)*day))
	}
	return c
}

func TestNewBranchEntry(t *testing.T) {
	key := snapshot.Key{Owner: "acme", Repo: "widgets", Branch: "main"}
	e, ok := NewBranchEntry(key, history(t, snapshot.TeamProduct, 50, 60, 65))
	require.True(t, ok)
	assert.Equal(t, int16(6500), e.Coverage)
	assert.Equal(t, int16(500), e.LastDelta)
	assert.Equal(t, int16(1500), e.Delta7)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), e.LastUpdate)

	_, ok = NewBranchEntry(key, snapshot.New(snapshot.TeamProduct))
	assert.False(t, ok)
}

func TestBuildReadme(t *testing.T) {
	entries := []store.Entry{
		{Key: snapshot.Key{Owner: "acme", Repo: "api", Branch: "main"}, Collection: history(t, snapshot.TeamSecurity, 10)},
		{Key: snapshot.Key{Owner: "acme", Repo: "web", Branch: "dev"}, Collection: history(t, snapshot.TeamProduct, 10, 20)},
		{Key: snapshot.Key{Owner: "acme", Repo: "web", Branch: "main"}, Collection: history(t, snapshot.TeamProduct, 30)},
		{Key: snapshot.Key{Owner: "acme", Repo: "empty", Branch: "main"}, Collection: snapshot.New(snapshot.TeamOther)},
	}

	r := BuildReadme("acme", "coverage", entries)
	assert.Equal(t, 3, r.Total)
	assert.Len(t, r.Entries(snapshot.TeamSecurity), 1)
	require.Len(t, r.Entries(snapshot.TeamProduct), 2)
	assert.Equal(t, "dev", r.Entries(snapshot.TeamProduct)[0].Key.Branch)
	assert.Empty(t, r.Entries(snapshot.TeamOther))
}

func TestBuildBranchReport(t *testing.T) {
	key := snapshot.Key{Owner: "acme", Repo: "widgets", Branch: "main"}
	r, err := BuildBranchReport(key, history(t, snapshot.TeamWorkflow, 40, 45))
	require.NoError(t, err)
	assert.Equal(t, snapshot.TeamWorkflow, r.Team)
	assert.Equal(t, int16(4500), r.Entry.Coverage)
	require.Len(t, r.Files, 2)
	assert.Equal(t, "src/a.rs", r.Files[0].Path)
	assert.Empty(t, r.Files[0].Ranges)
	assert.Equal(t, []ranges.LineRange{rng(3, 4), rng(9, 9)}, r.Files[1].Ranges)

	_, err = BuildBranchReport(key, snapshot.New(snapshot.TeamWorkflow))
	assert.ErrorIs(t, err, ErrMissingHistory)

	_, err = BranchReportFromWalk(nil, key)
	assert.ErrorIs(t, err, ErrMissingHistory)

	r, err = BranchReportFromWalk([]store.Entry{{Key: key, Collection: history(t, snapshot.TeamOther, 70)}}, key)
	require.NoError(t, err)
	assert.Equal(t, int16(7000), r.Entry.Coverage)
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "reports/acme/widgets/main.md", ReportPath(snapshot.Key{Owner: "acme", Repo: "widgets", Branch: "main"}))
}

func TestPathAnchor(t *testing.T) {
	assert.Len(t, PathAnchor("src/lib.rs"), 64)
	assert.NotEqual(t, PathAnchor("a"), PathAnchor("b"))
}
