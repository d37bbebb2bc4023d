package report

import (
	"log/slog"

	"github.com/dshills/covtrack/internal/hunk"
	"github.com/dshills/covtrack/internal/lcov"
	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/snapshot"
)

// Attribution is the outcome of matching uncovered lines against diffs.
type Attribution struct {
	Files []UntestedFile
	// Skipped lists files whose diff failed to parse.
	Skipped []string
}

// Attribute keeps, for every file that has a diff, the uncovered lines the
// diff added. diffs maps repository-relative paths to single-file unified
// diffs. A diff that fails to parse is logged and its file skipped.
func Attribute(logger *slog.Logger, files []lcov.FileCoverage, sourcePrefix string, diffs map[string]string) Attribution {
	var out Attribution
	for _, fc := range files {
		path := lcov.SplitPath(fc.Filename, sourcePrefix)
		patch, ok := diffs[path]
		if !ok {
			continue
		}

		hunks, err := hunk.Parse(patch)
		if err != nil {
			logger.Warn("skipping file with unparsable diff", "path", path, "error", err)
			out.Skipped = append(out.Skipped, path)
			continue
		}

		var lines []uint32
		for _, l := range fc.UncoveredLines {
			if hunk.ChangedInAny(hunks, uint64(l)) {
				lines = append(lines, l)
			}
		}
		if len(lines) == 0 {
			continue
		}

		sameHunk := func(a, b uint64) bool { return hunk.LinesInSameHunk(hunks, a, b) }
		out.Files = append(out.Files, UntestedFile{
			Path:         path,
			Anchor:       PathAnchor(path),
			Percentage:   lcov.Resolve(fc.Percentage),
			Lines:        lines,
			Ranges:       ranges.CoalesceAdjacent(lines),
			ReviewRanges: ranges.CoalesceByHunk(lines, sameHunk),
		})
	}
	return out
}

// Split partitions grouped coverage into untested files, with all their
// uncovered lines, and the paths of fully tested files.
func Split(files []lcov.FileCoverage, sourcePrefix string) (untested []UntestedFile, tested []string) {
	for _, fc := range files {
		path := lcov.SplitPath(fc.Filename, sourcePrefix)
		if fc.Tested() {
			tested = append(tested, path)
			continue
		}
		untested = append(untested, UntestedFile{
			Path:       path,
			Anchor:     PathAnchor(path),
			Percentage: lcov.Resolve(fc.Percentage),
			Lines:      fc.UncoveredLines,
			Ranges:     ranges.CoalesceAdjacent(fc.UncoveredLines),
		})
	}
	return untested, tested
}

// PullRequestInput carries what BuildPullRequest needs besides coverage.
type PullRequestInput struct {
	Owner        string
	Repo         string
	Number       int
	CommitID     string
	SourcePrefix string
	// Diffs maps changed paths to single-file unified diffs.
	Diffs map[string]string
	// Base is the coverage of the target branch, if known.
	Base lcov.Records
}

// BuildPullRequest attributes the uncovered lines of current to the pull
// request diffs.
func BuildPullRequest(logger *slog.Logger, current lcov.Records, in PullRequestInput) PullRequestReport {
	r := PullRequestReport{
		Owner:    in.Owner,
		Repo:     in.Repo,
		Number:   in.Number,
		CommitID: in.CommitID,
		Total:    lcov.Resolve(current.Percentage()),
		Files:    Attribute(logger, current.Group(), in.SourcePrefix, in.Diffs).Files,
	}
	if in.Base != nil {
		d := in.Base.PercentageDifference(current)
		r.Delta = &d
	}
	return r
}

// BuildPush lists every uncovered line of current.
func BuildPush(current lcov.Records, owner, repo, commit, sourcePrefix string) PushReport {
	untested, tested := Split(current.Group(), sourcePrefix)
	return PushReport{
		Owner:       owner,
		Repo:        repo,
		Commit:      commit,
		Total:       lcov.Resolve(current.Percentage()),
		Files:       untested,
		TestedFiles: tested,
	}
}

// FileRecords is the per-file detail stored with a push snapshot. Fully
// tested files are recorded at 100% with no lines.
func (r PushReport) FileRecords() map[string]snapshot.FileRecord {
	out := make(map[string]snapshot.FileRecord, len(r.Files)+len(r.TestedFiles))
	for _, f := range r.Files {
		out[f.Path] = snapshot.NewFileRecord(f.Percentage, f.Lines)
	}
	for _, p := range r.TestedFiles {
		out[p] = snapshot.NewFileRecord(100, nil)
	}
	return out
}

// LocalInput carries what BuildLocal needs besides coverage.
type LocalInput struct {
	Tool         string
	Version      string
	RunID        string
	Repo         RepoInfo
	SourcePrefix string
	Base         string
	// Diffs, when non-nil, restricts untested lines to those the diffs
	// added.
	Diffs map[string]string
}

// BuildLocal assembles the report for a local run.
func BuildLocal(logger *slog.Logger, current lcov.Records, in LocalInput) LocalReport {
	groups := current.Group()
	untested, tested := Split(groups, in.SourcePrefix)
	r := LocalReport{
		Tool:          in.Tool,
		Version:       in.Version,
		RunID:         in.RunID,
		Repo:          in.Repo,
		Base:          in.Base,
		Total:         lcov.Resolve(current.Percentage()),
		FileCount:     current.FileCount(),
		TestedFiles:   tested,
		UntestedFiles: untested,
	}
	if in.Diffs != nil {
		a := Attribute(logger, groups, in.SourcePrefix, in.Diffs)
		r.UntestedFiles = a.Files
		r.SkippedFiles = a.Skipped
	}
	if r.TestedFiles == nil {
		r.TestedFiles = []string{}
	}
	if r.UntestedFiles == nil {
		r.UntestedFiles = []UntestedFile{}
	}
	return r
}
