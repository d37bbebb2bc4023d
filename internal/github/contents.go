package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

// Author is the committer identity for contents API writes.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contentFile struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putContentRequest struct {
	Message   string  `json:"message"`
	Content   string  `json:"content"`
	SHA       string  `json:"sha,omitempty"`
	Branch    string  `json:"branch,omitempty"`
	Committer *Author `json:"committer,omitempty"`
}

type deleteContentRequest struct {
	Message   string  `json:"message"`
	SHA       string  `json:"sha"`
	Branch    string  `json:"branch,omitempty"`
	Committer *Author `json:"committer,omitempty"`
}

// GetFile returns the decoded content and blob SHA of path at ref.
func (c *Client) GetFile(ctx context.Context, owner, repo, ref, path string) ([]byte, string, error) {
	p := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}
	var f contentFile
	if err := c.do(ctx, "GET", p, nil, &f); err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", path, err)
	}
	if f.Encoding != "base64" {
		return nil, "", fmt.Errorf("fetching %s: unsupported encoding %q", path, f.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return data, f.SHA, nil
}

// PutFile creates path on branch when sha is empty, or replaces the blob
// with that sha. It returns the new blob SHA.
func (c *Client) PutFile(ctx context.Context, owner, repo, branch, path, message string, content []byte, sha string, author *Author) (string, error) {
	req := putContentRequest{
		Message:   message,
		Content:   base64.StdEncoding.EncodeToString(content),
		SHA:       sha,
		Branch:    branch,
		Committer: author,
	}
	var resp struct {
		Content contentFile `json:"content"`
	}
	p := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if err := c.do(ctx, "PUT", p, req, &resp); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return resp.Content.SHA, nil
}

// DeleteFile removes the blob with sha at path on branch.
func (c *Client) DeleteFile(ctx context.Context, owner, repo, branch, path, message, sha string, author *Author) error {
	req := deleteContentRequest{Message: message, SHA: sha, Branch: branch, Committer: author}
	p := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if err := c.do(ctx, "DELETE", p, req, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

// UpsertFile writes content to path on branch whether or not it exists.
func (c *Client) UpsertFile(ctx context.Context, owner, repo, branch, path, message string, content []byte, author *Author) error {
	_, sha, err := c.GetFile(ctx, owner, repo, branch, path)
	if err != nil && StatusCode(err) != http.StatusNotFound {
		return err
	}
	_, err = c.PutFile(ctx, owner, repo, branch, path, message, content, sha, author)
	return err
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// ContentsStore is a store.BlobStore backed by files on one branch of a
// GitHub repository. The blob SHA is the content id.
type ContentsStore struct {
	client *Client
	owner  string
	repo   string
	branch string
	author *Author
}

// NewContentsStore stores records in owner/repo on branch. author may be nil
// to commit as the token's user.
func NewContentsStore(client *Client, owner, repo, branch string, author *Author) *ContentsStore {
	return &ContentsStore{client: client, owner: owner, repo: repo, branch: branch, author: author}
}

func (s *ContentsStore) Read(ctx context.Context, key snapshot.Key) ([]byte, string, error) {
	data, sha, err := s.client.GetFile(ctx, s.owner, s.repo, s.branch, key.Path())
	if err != nil {
		return nil, "", classify(err, false)
	}
	return data, sha, nil
}

func (s *ContentsStore) Write(ctx context.Context, key snapshot.Key, data []byte, expectedID string) (string, error) {
	msg := fmt.Sprintf("Add report for %s (%s)", key.Repository(), key.Branch)
	sha, err := s.client.PutFile(ctx, s.owner, s.repo, s.branch, key.Path(), msg, data, expectedID, s.author)
	if err != nil {
		return "", classify(err, expectedID != "")
	}
	return sha, nil
}

func (s *ContentsStore) Delete(ctx context.Context, key snapshot.Key, expectedID string) error {
	msg := fmt.Sprintf("Remove report for %s (%s)", key.Repository(), key.Branch)
	if err := s.client.DeleteFile(ctx, s.owner, s.repo, s.branch, key.Path(), msg, expectedID, s.author); err != nil {
		return classify(err, false)
	}
	return nil
}

// classify maps contents API statuses onto store error kinds. A 404 on an
// update of a previously read blob means it vanished, which is a conflict.
func classify(err error, updating bool) error {
	switch StatusCode(err) {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", store.ErrUnauthorized, err)
	case http.StatusNotFound:
		if updating {
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	if errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("%w: %w", store.ErrUnauthorized, err)
	}
	return err
}
