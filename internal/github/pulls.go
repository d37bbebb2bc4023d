package github

import (
	"context"
	"fmt"
	"net/url"
)

const perPage = 100

// PullFile is a file changed in a pull request.
type PullFile struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename,omitempty"`
	Status           string `json:"status"`
	// Patch holds the hunks of the file's diff, without file headers. It is
	// empty for binary files and very large diffs.
	Patch string `json:"patch,omitempty"`
}

// UnifiedDiff wraps Patch in ---/+++ headers so it parses as a single-file
// unified diff.
func (f PullFile) UnifiedDiff() string {
	old := f.PreviousFilename
	if old == "" {
		old = f.Filename
	}
	return fmt.Sprintf("--- a/%s\n+++ b/%s\n%s\n", old, f.Filename, f.Patch)
}

// ListPullFiles fetches every file changed in a pull request, following
// pagination.
func (c *Client) ListPullFiles(ctx context.Context, owner, repo string, pr int) ([]PullFile, error) {
	var all []PullFile
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", fmt.Sprint(perPage))
		q.Set("page", fmt.Sprint(page))
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?%s", owner, repo, pr, q.Encode())

		var files []PullFile
		if err := c.do(ctx, "GET", path, nil, &files); err != nil {
			return nil, fmt.Errorf("listing files of PR #%d: %w", pr, err)
		}
		all = append(all, files...)
		if len(files) < perPage {
			return all, nil
		}
	}
}

// ReviewComment anchors a comment to a line range of the PR head.
type ReviewComment struct {
	CommitID  string
	Path      string
	StartLine uint32
	Line      uint32
	Body      string
}

type reviewCommentRequest struct {
	Body      string  `json:"body"`
	CommitID  string  `json:"commit_id"`
	Path      string  `json:"path"`
	StartLine *uint32 `json:"start_line,omitempty"`
	StartSide string  `json:"start_side,omitempty"`
	Line      uint32  `json:"line"`
	Side      string  `json:"side"`
}

// CreateReviewComment posts a single review comment. A comment whose start
// and end line match is posted as a single-line comment.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, pr int, rc ReviewComment) error {
	body := rc.Body
	if body == "" {
		body = "Untested Lines"
		if rc.StartLine == rc.Line {
			body = "Untested Line"
		}
	}
	req := reviewCommentRequest{
		Body:     body,
		CommitID: rc.CommitID,
		Path:     rc.Path,
		Line:     rc.Line,
		Side:     "RIGHT",
	}
	if rc.StartLine != rc.Line {
		start := rc.StartLine
		req.StartLine = &start
		req.StartSide = "RIGHT"
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, pr)
	if err := c.do(ctx, "POST", path, req, nil); err != nil {
		return fmt.Errorf("posting review comment on %s:%d: %w", rc.Path, rc.Line, err)
	}
	return nil
}
