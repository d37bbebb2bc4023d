package lcov

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedReport is returned when a tracefile line carries a known
// record prefix with a payload that cannot be decoded.
var ErrMalformedReport = errors.New("malformed coverage report")

// Kind identifies the type of an LCOV record.
type Kind int

const (
	KindOther Kind = iota
	KindSourceFile
	KindLineData
	KindLinesHit
	KindLinesFound
	KindEndOfRecord
)

func (k Kind) String() string {
	switch k {
	case KindSourceFile:
		return "SF"
	case KindLineData:
		return "DA"
	case KindLinesHit:
		return "LH"
	case KindLinesFound:
		return "LF"
	case KindEndOfRecord:
		return "end_of_record"
	default:
		return "other"
	}
}

// Record is a single decoded tracefile entry. Only the fields relevant to
// its Kind are set.
type Record struct {
	Kind Kind
	// Path is set for KindSourceFile.
	Path string
	// Line and Count are set for KindLineData.
	Line  uint32
	Count int64
	// Total is set for KindLinesHit and KindLinesFound.
	Total uint32
}

// SourceFile returns an SF record.
func SourceFile(path string) Record { return Record{Kind: KindSourceFile, Path: path} }

// LineData returns a DA record.
func LineData(line uint32, count int64) Record {
	return Record{Kind: KindLineData, Line: line, Count: count}
}

// LinesHit returns an LH record.
func LinesHit(n uint32) Record { return Record{Kind: KindLinesHit, Total: n} }

// LinesFound returns an LF record.
func LinesFound(n uint32) Record { return Record{Kind: KindLinesFound, Total: n} }

// Records is an ordered LCOV record stream.
type Records []Record

// maxLineBytes bounds a single tracefile line (long absolute paths).
const maxLineBytes = 1 << 20

// ParseFile reads and decodes the tracefile at path.
func ParseFile(path string) (Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening coverage report: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes LCOV tracefile text. Blank lines and records other than
// SF, DA, LH, LF and end_of_record are kept as KindOther.
func Parse(r io.Reader) (Records, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var records Records
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedReport, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	return records, nil
}

func parseLine(line string) (Record, error) {
	if line == "end_of_record" {
		return Record{Kind: KindEndOfRecord}, nil
	}

	prefix, payload, ok := strings.Cut(line, ":")
	if !ok {
		return Record{Kind: KindOther}, nil
	}

	switch prefix {
	case "SF":
		if payload == "" {
			return Record{}, errors.New("SF record without a path")
		}
		return SourceFile(payload), nil
	case "DA":
		// DA:<line>,<count>[,<checksum>]
		parts := strings.Split(payload, ",")
		if len(parts) < 2 {
			return Record{}, fmt.Errorf("DA record %q: want line,count", payload)
		}
		n, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("DA line number %q: %w", parts[0], err)
		}
		count, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("DA execution count %q: %w", parts[1], err)
		}
		return LineData(uint32(n), count), nil
	case "LH", "LF":
		n, err := strconv.ParseUint(payload, 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("%s total %q: %w", prefix, payload, err)
		}
		if prefix == "LH" {
			return LinesHit(uint32(n)), nil
		}
		return LinesFound(uint32(n)), nil
	default:
		return Record{Kind: KindOther}, nil
	}
}
