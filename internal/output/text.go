package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/report"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	Options Options
}

func (t *TextWriter) Write(w io.Writer, r *report.LocalReport) error {
	ew := &errWriter{w: w}

	ew.printf("%s %s: local coverage\n", r.Tool, r.Version)
	ew.printf("Repository: %s (branch: %s)\n", r.Repo.Root, r.Repo.Branch)
	if r.Base != "" {
		ew.printf("Diff base: %s\n", r.Base)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Total: %s across %d files (%d fully tested)\n",
		percentColor(r.Total).Sprintf("%.2f%%", r.Total), r.FileCount, len(r.TestedFiles))
	ew.println(strings.Repeat("─", 60))

	switch {
	case len(r.UntestedFiles) == 0:
		ew.println(color.New(color.FgGreen).Sprint("\nAll changes are tested!"))
	case t.Options.SummaryOnly:
		ew.printf("\n%d files with untested lines\n", len(r.UntestedFiles))
	default:
		label := "Untested Lines"
		if r.Base != "" {
			label = "Untested Changes"
		}
		ew.printf("\n%s\n", label)
		ew.println(untestedTable(r.UntestedFiles))
		ew.println("")
		for _, f := range r.UntestedFiles {
			if err := writeSource(ew, r.Repo.Root, f); err != nil {
				return err
			}
		}
	}

	if t.Options.ListFiles && len(r.TestedFiles) > 0 {
		ew.println("\nFully tested")
		for _, p := range r.TestedFiles {
			ew.printf("  %s\n", p)
		}
	}

	if len(r.SkippedFiles) > 0 {
		ew.printf("\n%s\n", color.New(color.FgYellow).Sprintf("Skipped %d files with unreadable diffs:", len(r.SkippedFiles)))
		for _, p := range r.SkippedFiles {
			ew.printf("  %s\n", p)
		}
	}

	ew.printf("\nRun: %s\n", r.RunID)
	return ew.err
}

func untestedTable(files []report.UntestedFile) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"File", "Coverage", "Lines"})
	for _, f := range files {
		tbl.AppendRow(table.Row{
			f.Path,
			percentColor(f.Percentage).Sprintf("%.2f%%", f.Percentage),
			joinRanges(f.Ranges),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d files", len(files))})
	return tbl.Render()
}

// sourceGap is the longest run of tested lines printed between two untested
// lines before a new location marker is started instead.
const sourceGap = 5

// writeSource prints the untested lines of f with their source text, read
// relative to root (or the working directory when root is empty).
func writeSource(ew *errWriter, root string, f report.UntestedFile) error {
	if len(f.Lines) == 0 {
		return nil
	}
	path := f.Path
	if root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	src := strings.Split(string(data), "\n")

	red := color.New(color.FgRed)
	blue := color.New(color.FgBlue)
	width := len(fmt.Sprint(f.Lines[len(f.Lines)-1])) + 1
	line := func(n uint32, c *color.Color) {
		ew.printf("%s%s\n", c.Sprintf("%*d | ", width, n), src[n-1])
	}

	bold := color.New(color.FgRed, color.Bold)
	ew.printf("%s %d %s %s\n", bold.Sprint("Found"), len(f.Lines), bold.Sprint("untested lines in"), f.Path)

	var last uint32
	for _, n := range f.Lines {
		if n == 0 || int(n) > len(src) {
			return fmt.Errorf("%s has no line %d", f.Path, n)
		}
		switch {
		case last != 0 && last+sourceGap >= n:
			for g := last + 1; g < n; g++ {
				line(g, blue)
			}
		case last == 0 || last+1 != n:
			ew.printf("%s %s:%d\n", blue.Sprint("-->"), f.Path, n)
		}
		line(n, red)
		last = n
	}
	ew.println("")
	return ew.err
}

// percentColor picks red below 50%, yellow below 80% and green otherwise.
func percentColor(p float64) *color.Color {
	switch {
	case p < 50:
		return color.New(color.FgRed)
	case p < 80:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func joinRanges(rs []ranges.LineRange) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
