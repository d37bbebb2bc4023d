package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/report"
	"github.com/dshills/covtrack/internal/snapshot"
)

const timeLayout = "2006-01-02 15:04 UTC"

// Readme renders the front page of the tracking repository. Report links
// point at reportBranch of the tracking repository; relative times are
// measured from now.
func Readme(r report.Readme, webURL, reportBranch string, now time.Time) string {
	web := strings.TrimRight(webURL, "/")
	var b strings.Builder

	b.WriteString("# Coverage Reports\n\n")
	fmt.Fprintf(&b, "Tracking coverage of %d branches of repositories.\n\n", r.Total)
	fmt.Fprintf(&b, "Generated %s.\n\n", now.UTC().Format(timeLayout))

	b.WriteString("## Teams\n\n")
	for _, team := range snapshot.Teams() {
		fmt.Fprintf(&b, "- [%s](#%s)\n", team, headingAnchor(team.String()))
	}

	for _, team := range snapshot.Teams() {
		entries := r.Entries(team)
		fmt.Fprintf(&b, "\n## %s\n\n", team)
		fmt.Fprintf(&b, "Tracking coverage of %d branches of repositories in this group.\n\n", len(entries))
		if len(entries) == 0 {
			continue
		}

		tbl := table.NewWriter()
		tbl.AppendHeader(table.Row{
			"Repository (Branch)", "Coverage", "Report",
			"Delta (Last)", "Delta (7 Days)", "Delta (30 Days)", "Delta (90 Days)", "Last Updated",
		})
		for _, e := range entries {
			k := e.Key
			reportURL := fmt.Sprintf("%s/%s/%s/blob/%s/%s", web, r.Owner, r.Repo, reportBranch, report.ReportPath(k))
			tbl.AppendRow(table.Row{
				fmt.Sprintf("[%s (%s)](%s/%s/%s/tree/%s)", k.Repository(), k.Branch, web, k.Owner, k.Repo, k.Branch),
				percent(e.Coverage),
				fmt.Sprintf("[Report](%s)", reportURL),
				percent(e.LastDelta),
				percent(e.Delta7),
				percent(e.Delta30),
				percent(e.Delta90),
				humanize.RelTime(e.LastUpdate, now, "ago", "from now"),
			})
		}
		b.WriteString(tbl.RenderMarkdown())
		b.WriteString("\n")
	}
	return b.String()
}

// BranchReport renders the per-branch page of the tracking repository.
func BranchReport(r report.BranchReport, webURL string, now time.Time) string {
	web := strings.TrimRight(webURL, "/")
	k := r.Key
	e := r.Entry
	var b strings.Builder

	fmt.Fprintf(&b, "# [%s](%s/%s/%s/)\n\n", k.Repository(), web, k.Owner, k.Repo)
	fmt.Fprintf(&b, "### Branch: `%s`\n", k.Branch)
	fmt.Fprintf(&b, "### Responsible Team: %s\n\n", r.Team)
	fmt.Fprintf(&b, "#### Last Updated: %s (%s)\n",
		e.LastUpdate.UTC().Format(timeLayout), humanize.RelTime(e.LastUpdate, now, "ago", "from now"))
	fmt.Fprintf(&b, "#### Coverage: %s\n", percent(e.Coverage))
	fmt.Fprintf(&b, "#### Last Delta: %s\n", percent(e.LastDelta))
	fmt.Fprintf(&b, "#### 7 Day Delta: %s\n", percent(e.Delta7))
	fmt.Fprintf(&b, "#### 30 Day Delta: %s\n", percent(e.Delta30))
	fmt.Fprintf(&b, "#### 90 Day Delta: %s\n\n", percent(e.Delta90))

	if len(r.Files) == 0 {
		b.WriteString("No per-file coverage was recorded for this snapshot.\n")
		return b.String()
	}

	blob := fmt.Sprintf("%s/%s/%s/blob/%s", web, k.Owner, k.Repo, k.Branch)
	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"File Name", "Coverage", "Untested Lines"})
	for _, f := range r.Files {
		fileURL := blob + "/" + f.Path
		tbl.AppendRow(table.Row{
			fmt.Sprintf("[%s](%s)", f.Path, fileURL),
			percent(f.Percentage),
			lineLinks(fileURL, f.Ranges),
		})
	}
	b.WriteString(tbl.RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}

func lineLinks(fileURL string, rs []ranges.LineRange) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		if r.Single() {
			parts[i] = fmt.Sprintf("[%d](%s#L%d)", r.Start, fileURL, r.Start)
		} else {
			parts[i] = fmt.Sprintf("[%d-%d](%s#L%d-L%d)", r.Start, r.End, fileURL, r.Start, r.End)
		}
	}
	return strings.Join(parts, ", ")
}

func percent(bp int16) string {
	return snapshot.FormatBasisPoints(bp) + "%"
}

// headingAnchor mirrors the anchors GitHub generates for Markdown headings.
func headingAnchor(heading string) string {
	return strings.ReplaceAll(strings.ToLower(heading), " ", "-")
}
