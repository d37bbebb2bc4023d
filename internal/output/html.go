package output

import (
	"fmt"
	"html"
	"strings"

	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/report"
)

const allTested = "All changes are tested!"

// PullRequestComment renders the summary issue comment for a pull request.
func PullRequestComment(r *report.PullRequestReport, webURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Coverage</h3>Total: %.2f%%\n\n", r.Total)
	if r.Delta != nil {
		fmt.Fprintf(&b, "Delta: %.2f%%\n\n", *r.Delta)
	}
	if len(r.Files) == 0 {
		b.WriteString(allTested)
		return b.String()
	}
	base := fmt.Sprintf("%s/%s/%s/pull/%d/files", strings.TrimRight(webURL, "/"), r.Owner, r.Repo, r.Number)
	writeSummary(&b, "Untested Changes", base, r.Files)
	return b.String()
}

// PushComment renders the commit comment for a push.
func PushComment(r *report.PushReport, webURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Coverage</h3>Total: %.2f%%\n\n", r.Total)
	if len(r.Files) == 0 {
		b.WriteString(allTested)
		return b.String()
	}
	base := fmt.Sprintf("%s/%s/%s/commit/%s", strings.TrimRight(webURL, "/"), r.Owner, r.Repo, r.Commit)
	writeSummary(&b, "Untested Lines", base, r.Files)
	return b.String()
}

func writeSummary(b *strings.Builder, summary, base string, files []report.UntestedFile) {
	fmt.Fprintf(b, "<details><summary>%s</summary><table><tbody>", summary)
	b.WriteString("<tr><th>File Path</th><th>Lines</th></tr>")
	for _, f := range files {
		fmt.Fprintf(b, `<tr><td><a href="%s">%s</a></td><td>`,
			html.EscapeString(diffLink(base, f.Anchor, nil)), html.EscapeString(f.Path))
		for i, r := range f.Ranges {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, `<a href="%s">%s</a>`, html.EscapeString(diffLink(base, f.Anchor, &r)), r)
		}
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table></details>")
}

// diffLink points at a file in a GitHub diff view, optionally at a line range
// on the right-hand side.
func diffLink(base, anchor string, r *ranges.LineRange) string {
	link := base + "#diff-" + anchor
	switch {
	case r == nil:
		return link
	case r.Single():
		return fmt.Sprintf("%sR%d", link, r.Start)
	default:
		return fmt.Sprintf("%sR%d-R%d", link, r.Start, r.End)
	}
}
