package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Stats holds aggregate scan statistics.
type Stats struct {
	Reason         string
	TotalRequests  int64
	DirsFound      int64
	FilesFound     int64
	FilteredCount  int
	ErrorCount     int64
	BaseCases      int64
	ParsedLinks    int64
	DroppedPages   int64
	Duration       time.Duration
	RequestsPerSec float64
}

// StatsFromSummary converts a scan summary into footer statistics.
func StatsFromSummary(s scanner.Summary, filtered int) Stats {
	st := Stats{
		Reason:        s.Reason,
		TotalRequests: s.Completed,
		DirsFound:     s.DirsFound,
		FilesFound:    s.FilesFound,
		FilteredCount: filtered,
		ErrorCount:    s.Errors,
		BaseCases:     s.BaseCases,
		ParsedLinks:   s.ParsedLinks,
		DroppedPages:  s.Dropped,
		Duration:      s.Elapsed,
	}
	if s.Elapsed > 0 {
		st.RequestsPerSec = float64(s.Completed) / s.Elapsed.Seconds()
	}
	return st
}

// Writer is implemented by each output format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.FoundResult) error
	WriteFooter(stats Stats) error
	Close() error
}

// NewWriter returns the writer for format ("text", "json" or "csv"). An empty
// outputFile writes to stdout.
func NewWriter(format, outputFile string, noColor, quiet bool) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(outputFile)
	case "csv":
		return NewCSVWriter(outputFile)
	case "", "text":
		return NewTextWriter(outputFile, noColor, quiet)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Kind labels a result as "dir" or "file".
func Kind(r *scanner.FoundResult) string {
	if r.IsDir {
		return "dir"
	}
	return "file"
}

// openOutput opens outputFile for writing, or stdout when it is empty. The
// returned closer is nil for stdout.
func openOutput(outputFile string) (io.Writer, io.Closer, error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f, nil
}
