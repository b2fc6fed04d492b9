package output

import (
	"encoding/json"
	"io"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

type jsonEntry struct {
	Type          string `json:"type"`
	Method        string `json:"method"`
	URL           string `json:"url"`
	Path          string `json:"path"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	RedirectURL   string `json:"redirect,omitempty"`
	Depth         int    `json:"depth"`
	Source        string `json:"source"`
}

type jsonReport struct {
	Results []jsonEntry `json:"results"`
	Stats   jsonStats   `json:"stats"`
}

type jsonStats struct {
	Reason     string  `json:"reason"`
	Requests   int64   `json:"requests"`
	Dirs       int64   `json:"dirs"`
	Files      int64   `json:"files"`
	Filtered   int     `json:"filtered"`
	Errors     int64   `json:"errors"`
	BaseCases  int64   `json:"base_cases"`
	Dropped    int64   `json:"dropped_pages,omitempty"`
	Seconds    float64 `json:"seconds"`
	RatePerSec float64 `json:"rate"`
}

// JSONWriter writes results and statistics as one JSON document.
type JSONWriter struct {
	w       io.Writer
	closer  io.Closer
	entries []jsonEntry
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{w: w, closer: closer, entries: []jsonEntry{}}, nil
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(result *scanner.FoundResult) error {
	j.entries = append(j.entries, jsonEntry{
		Type:          Kind(result),
		Method:        result.Method,
		URL:           result.URL,
		Path:          result.Path,
		StatusCode:    result.StatusCode,
		ContentLength: result.ContentLength,
		RedirectURL:   result.RedirectURL,
		Depth:         result.Depth,
		Source:        result.Source.String(),
	})
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Results: j.entries,
		Stats: jsonStats{
			Reason:     stats.Reason,
			Requests:   stats.TotalRequests,
			Dirs:       stats.DirsFound,
			Files:      stats.FilesFound,
			Filtered:   stats.FilteredCount,
			Errors:     stats.ErrorCount,
			BaseCases:  stats.BaseCases,
			Dropped:    stats.DroppedPages,
			Seconds:    stats.Duration.Seconds(),
			RatePerSec: stats.RequestsPerSec,
		},
	})
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
