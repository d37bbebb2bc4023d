package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/covtrack/internal/report"
)

// Writer writes a local report in a specific format.
type Writer interface {
	Write(w io.Writer, r *report.LocalReport) error
}

// Options tunes the text format.
type Options struct {
	// SummaryOnly prints the totals without the per-file table.
	SummaryOnly bool
	// ListFiles adds the fully tested files.
	ListFiles bool
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{Options: opts}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(r *report.LocalReport, format string, opts Options, outPath string) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, r)
}
