package snapshot

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidRepository is returned for repository identifiers that are not
// of the form "owner/repo".
var ErrInvalidRepository = errors.New("invalid repository identifier")

// FileSuffix is appended to the branch name to form the records file name.
const FileSuffix = ".covtrack.json"

// Key addresses the records file of one branch.
type Key struct {
	Owner  string
	Repo   string
	Branch string
}

// NewKey builds a key from an "owner/repo" identifier and a branch, which
// may carry a "refs/heads/" prefix.
func NewKey(repository, branch string) (Key, error) {
	owner, repo, err := ParseRepo(repository)
	if err != nil {
		return Key{}, err
	}
	return Key{Owner: owner, Repo: repo, Branch: TrimBranch(branch)}, nil
}

// ParseRepo splits "owner/repo" at the first separator.
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, s)
	}
	return owner, repo, nil
}

// TrimBranch strips a leading "refs/heads/".
func TrimBranch(branch string) string {
	return strings.TrimPrefix(branch, "refs/heads/")
}

// Repository returns "owner/repo".
func (k Key) Repository() string {
	return k.Owner + "/" + k.Repo
}

// Path returns the slash separated location of the records file.
func (k Key) Path() string {
	return path.Join(k.Owner, k.Repo, k.Branch+FileSuffix)
}

func (k Key) String() string {
	return k.Repository() + "@" + k.Branch
}

// Compare orders keys by owner, repo, then branch.
func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.Owner, other.Owner); c != 0 {
		return c
	}
	if c := strings.Compare(k.Repo, other.Repo); c != 0 {
		return c
	}
	return strings.Compare(k.Branch, other.Branch)
}
