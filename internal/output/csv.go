package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// CSVWriter writes results in CSV format.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write([]string{"type", "url", "path", "status", "size", "redirect", "depth", "source"})
}

func (c *CSVWriter) WriteResult(result *scanner.FoundResult) error {
	return c.w.Write([]string{
		Kind(result),
		result.URL,
		result.Path,
		strconv.Itoa(result.StatusCode),
		strconv.FormatInt(result.ContentLength, 10),
		result.RedirectURL,
		strconv.Itoa(result.Depth),
		result.Source.String(),
	})
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
