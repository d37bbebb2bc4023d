// Package gitctx reads repository metadata and per-file diffs from a local
// git checkout.
//
// It shells out to git. [DiffAgainst] returns one zero-context unified diff
// per changed file so uncovered lines can be attributed to local changes
// the same way pull request patches are.
package gitctx
