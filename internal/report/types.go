package report

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/dshills/covtrack/internal/ranges"
)

// ErrMissingHistory is returned when a branch report is requested for a
// branch without retained snapshots.
var ErrMissingHistory = errors.New("no coverage history for branch")

// UntestedFile lists the uncovered lines of one file.
type UntestedFile struct {
	Path string `json:"path"`
	// Anchor is the hex SHA-256 of Path, as used by GitHub diff anchors.
	Anchor     string   `json:"-"`
	Percentage float64  `json:"percentage"`
	Lines      []uint32 `json:"lines"`
	// Ranges coalesces Lines by adjacency for display.
	Ranges []ranges.LineRange `json:"ranges"`
	// ReviewRanges coalesces Lines by diff hunk; set only when Lines were
	// attributed to a diff.
	ReviewRanges []ranges.LineRange `json:"reviewRanges,omitempty"`
}

// PullRequestReport is the result of a pull request scoped run.
type PullRequestReport struct {
	Owner    string
	Repo     string
	Number   int
	CommitID string
	Total    float64
	// Delta is the total change against the base report, when one was given.
	Delta *float64
	Files []UntestedFile
}

// PushReport is the result of a push scoped run.
type PushReport struct {
	Owner       string
	Repo        string
	Commit      string
	Total       float64
	Files       []UntestedFile
	TestedFiles []string
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// LocalReport is the top-level output of a local run.
type LocalReport struct {
	Tool    string   `json:"tool"`
	Version string   `json:"version"`
	RunID   string   `json:"runId"`
	Repo    RepoInfo `json:"repo"`
	// Base is the revision diffed against; empty when lines were not
	// attributed to a diff.
	Base          string         `json:"base,omitempty"`
	Total         float64        `json:"total"`
	FileCount     int            `json:"fileCount"`
	TestedFiles   []string       `json:"testedFiles"`
	UntestedFiles []UntestedFile `json:"untestedFiles"`
	// SkippedFiles holds paths whose diff could not be parsed.
	SkippedFiles []string `json:"skippedFiles,omitempty"`
}

// PathAnchor returns the hex SHA-256 of path.
func PathAnchor(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:])
}
