// Package hunk parses single-file unified diffs and answers two questions
// about the new version of the file: was a given line added by the diff, and
// do two lines fall inside the same hunk.
//
// The second question exists because GitHub's pull request review comment
// API only accepts a line range when both ends sit inside one diff hunk.
package hunk
