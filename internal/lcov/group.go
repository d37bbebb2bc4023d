package lcov

import (
	"math"
	"slices"
	"strings"
)

// FileCoverage is the per-file result of grouping a record stream.
type FileCoverage struct {
	Filename string `json:"filename"`
	// Percentage is hit/found*100; non-finite when the file has no found lines.
	Percentage float64 `json:"percentage"`
	// UncoveredLines is sorted ascending with duplicates removed.
	UncoveredLines []uint32 `json:"uncoveredLines"`
}

// Tested reports whether the file has no uncovered lines.
func (f FileCoverage) Tested() bool {
	return len(f.UncoveredLines) == 0
}

// Group splits the stream into per-file coverage. LH and LF may arrive in
// either order; the percentage is set once both have been seen for the
// current file.
func (r Records) Group() []FileCoverage {
	var files []FileCoverage
	var hit, found *uint32

	for _, rec := range r {
		switch rec.Kind {
		case KindSourceFile:
			hit, found = nil, nil
			files = append(files, FileCoverage{Filename: rec.Path})
		case KindLineData:
			if rec.Count == 0 && len(files) > 0 {
				last := &files[len(files)-1]
				last.UncoveredLines = append(last.UncoveredLines, rec.Line)
			}
		case KindLinesHit:
			n := rec.Total
			hit = &n
		case KindLinesFound:
			n := rec.Total
			found = &n
		}

		if hit != nil && found != nil {
			if len(files) > 0 {
				files[len(files)-1].Percentage = percent(uint64(*hit), uint64(*found))
			}
			hit, found = nil, nil
		}
	}

	for i := range files {
		slices.Sort(files[i].UncoveredLines)
		files[i].UncoveredLines = slices.Compact(files[i].UncoveredLines)
	}

	return files
}

// Percentage returns the report-wide line coverage, sum(LH)/sum(LF)*100.
func (r Records) Percentage() float64 {
	var hit, found uint64
	for _, rec := range r {
		switch rec.Kind {
		case KindLinesHit:
			hit += uint64(rec.Total)
		case KindLinesFound:
			found += uint64(rec.Total)
		}
	}
	return percent(hit, found)
}

// FileCount returns the number of SF records in the stream.
func (r Records) FileCount() int {
	n := 0
	for _, rec := range r {
		if rec.Kind == KindSourceFile {
			n++
		}
	}
	return n
}

// PercentageDifference returns newer's coverage minus r's coverage, each
// side passed through [Resolve] first.
func (r Records) PercentageDifference(newer Records) float64 {
	return Resolve(newer.Percentage()) - Resolve(r.Percentage())
}

func percent(hit, found uint64) float64 {
	return float64(hit) / float64(found) * 100
}

// Resolve maps a non-finite percentage (no instrumented lines) to 100.
// This is the only place that policy lives; storage and rendering both go
// through it.
func Resolve(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 100
	}
	return p
}

// SplitPath trims everything before the first occurrence of prefix, keeping
// the prefix itself. Paths that do not contain prefix are returned as is.
func SplitPath(path, prefix string) string {
	if prefix == "" {
		return path
	}
	if _, after, ok := strings.Cut(path, prefix); ok {
		return prefix + after
	}
	return path
}
