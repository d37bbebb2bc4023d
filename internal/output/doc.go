// Package output renders coverage reports.
//
// Local runs are written by a [Writer] obtained from [GetWriter]:
//   - text: human-readable terminal output (default)
//   - json: the full structured [report.LocalReport]
//
// [PullRequestComment] and [PushComment] produce the HTML bodies posted to
// GitHub. [Readme] and [BranchReport] produce the Markdown pages committed to
// the tracking repository.
package output
