// Package lcov decodes LCOV tracefiles and groups their records by source
// file.
//
// [Parse] turns tracefile text into an ordered [Records] stream. The order is
// significant: every DA, LH and LF record belongs to the most recent SF
// record. [Records.Group] walks the stream once and produces one
// [FileCoverage] per source file with its sorted, de-duplicated uncovered
// lines and its line coverage percentage.
//
// Percentages are hit/found*100 and are NaN or infinite when a file (or the
// whole report) has no instrumented lines. That value is passed through
// unchanged; callers that need a number to store or display use [Resolve].
package lcov
