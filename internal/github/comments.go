package github

import (
	"context"
	"fmt"
)

type commentRequest struct {
	Body string `json:"body"`
}

// CreateIssueComment posts body on an issue or pull request conversation.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := c.do(ctx, "POST", path, commentRequest{Body: body}, nil); err != nil {
		return fmt.Errorf("posting comment on #%d: %w", number, err)
	}
	return nil
}

// CreateCommitComment posts body on a commit.
func (c *Client) CreateCommitComment(ctx context.Context, owner, repo, sha, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/comments", owner, repo, sha)
	if err := c.do(ctx, "POST", path, commentRequest{Body: body}, nil); err != nil {
		return fmt.Errorf("posting comment on %s: %w", sha, err)
	}
	return nil
}

// DispatchWorkflow triggers a workflow_dispatch event. workflow is the file
// name or id, ref the branch or tag to run on.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflow, ref string, inputs map[string]string) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches", owner, repo, workflow)
	req := struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs,omitempty"`
	}{Ref: ref, Inputs: inputs}
	if err := c.do(ctx, "POST", path, req, nil); err != nil {
		return fmt.Errorf("dispatching %s on %s/%s: %w", workflow, owner, repo, err)
	}
	return nil
}
