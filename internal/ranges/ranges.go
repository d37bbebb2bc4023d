// Package ranges coalesces line numbers into inclusive line ranges.
//
// Two strategies are provided. [CoalesceAdjacent] merges numerically
// consecutive lines and is used for display. [CoalesceByHunk] merges lines
// that a caller-supplied predicate places in the same diff hunk, regardless
// of the distance between them, and is used for review comments.
package ranges

import (
	"fmt"
	"slices"
)

// LineRange is an inclusive range of line numbers, Start <= End.
type LineRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Single reports whether the range covers exactly one line.
func (r LineRange) Single() bool {
	return r.Start == r.End
}

// Contains reports whether line is inside the range.
func (r LineRange) Contains(line uint32) bool {
	return line >= r.Start && line <= r.End
}

func (r LineRange) String() string {
	if r.Single() {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// CoalesceAdjacent sorts and de-duplicates lines and merges runs of
// consecutive numbers. Line 0 never extends a previous range.
func CoalesceAdjacent(lines []uint32) []LineRange {
	sorted := slices.Clone(lines)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var out []LineRange
	for _, v := range sorted {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Contains(v) {
				continue
			}
			if v != 0 && last.End == v-1 {
				last.End = v
				continue
			}
		}
		out = append(out, LineRange{Start: v, End: v})
	}
	return out
}

// CoalesceByHunk folds ascending, diff-attributed lines into ranges. A line
// extends the previous range when it is not below the previous end and
// sameHunk(previous end, line) holds; otherwise it opens a new range, so
// unsorted input never yields an inverted range.
func CoalesceByHunk(lines []uint32, sameHunk func(a, b uint64) bool) []LineRange {
	var out []LineRange
	for _, v := range lines {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if v >= last.End && sameHunk(uint64(last.End), uint64(v)) {
				last.End = v
				continue
			}
		}
		out = append(out, LineRange{Start: v, End: v})
	}
	return out
}

// Flatten expands ranges back into every line they cover.
func Flatten(ranges []LineRange) []uint32 {
	var out []uint32
	for _, r := range ranges {
		for v := r.Start; ; v++ {
			out = append(out, v)
			if v == r.End {
				break
			}
		}
	}
	return out
}
