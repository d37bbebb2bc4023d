package hunk

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ErrMalformedDiff is returned when a patch cannot be parsed into hunks.
var ErrMalformedDiff = errors.New("malformed diff")

// Kind classifies a hunk body line.
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "context"
	}
}

// Line is one body line of a hunk, without its leading marker.
type Line struct {
	Kind Kind
	Text string
}

// Hunk is one "@@ ... @@" block, anchored in the new version of the file.
type Hunk struct {
	NewStart uint64
	NewCount uint64
	Lines    []Line
}

// Contains reports whether line is inside the hunk's new range
// [NewStart, NewStart+NewCount).
func (h Hunk) Contains(line uint64) bool {
	return line >= h.NewStart && line < h.NewStart+h.NewCount
}

// Parse parses a single-file unified diff. The file header ("--- a/x",
// "+++ b/x") is optional, so GitHub's per-file patch fields can be passed
// directly.
func Parse(patch string) ([]Hunk, error) {
	src := []byte(patch)
	if len(src) > 0 && src[len(src)-1] != '\n' {
		src = append(src, '\n')
	}

	var raw []*diff.Hunk
	if bytes.HasPrefix(bytes.TrimLeft(src, "\n"), []byte("@@")) {
		hunks, err := diff.ParseHunks(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
		}
		raw = hunks
	} else {
		fd, err := diff.ParseFileDiff(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
		}
		raw = fd.Hunks
	}

	hunks := make([]Hunk, 0, len(raw))
	for _, h := range raw {
		if h.NewStartLine < 0 || h.NewLines < 0 {
			return nil, fmt.Errorf("%w: negative range in hunk %q", ErrMalformedDiff, h.Section)
		}
		lines := parseBody(h.Body)
		if n := newSideCount(lines); n != uint64(h.NewLines) {
			return nil, fmt.Errorf("%w: hunk at +%d declares %d new lines, body has %d",
				ErrMalformedDiff, h.NewStartLine, h.NewLines, n)
		}
		hunks = append(hunks, Hunk{
			NewStart: uint64(h.NewStartLine),
			NewCount: uint64(h.NewLines),
			Lines:    lines,
		})
	}
	return hunks, nil
}

// newSideCount counts the body lines present in the new file.
func newSideCount(lines []Line) uint64 {
	var n uint64
	for _, l := range lines {
		if l.Kind != Removed {
			n++
		}
	}
	return n
}

func parseBody(body []byte) []Line {
	text := strings.TrimSuffix(string(body), "\n")
	if text == "" {
		return nil
	}

	var lines []Line
	for _, l := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(l, "+"):
			lines = append(lines, Line{Kind: Added, Text: l[1:]})
		case strings.HasPrefix(l, "-"):
			lines = append(lines, Line{Kind: Removed, Text: l[1:]})
		case strings.HasPrefix(l, `\`):
			// "\ No newline at end of file"
		case strings.HasPrefix(l, " "):
			lines = append(lines, Line{Kind: Context, Text: l[1:]})
		default:
			// Some tools strip the space of blank context lines.
			lines = append(lines, Line{Kind: Context, Text: l})
		}
	}
	return lines
}

// LineChangedInHunk reports whether target, a line number in the new
// version of the file, was added by h. Context lines inside the range do not
// count.
func LineChangedInHunk(h Hunk, target uint64) bool {
	if !h.Contains(target) {
		return false
	}

	current := h.NewStart
	for _, l := range h.Lines {
		switch l.Kind {
		case Added:
			if current == target {
				return true
			}
			current++
		case Context:
			current++
		case Removed:
			// no position in the new file
		}
	}
	return false
}

// ChangedInAny reports whether any hunk added line.
func ChangedInAny(hunks []Hunk, line uint64) bool {
	for _, h := range hunks {
		if LineChangedInHunk(h, line) {
			return true
		}
	}
	return false
}

// LinesInSameHunk reports whether a single hunk's new range contains both a
// and b.
func LinesInSameHunk(hunks []Hunk, a, b uint64) bool {
	for _, h := range hunks {
		if h.Contains(a) && h.Contains(b) {
			return true
		}
	}
	return false
}
