package output

import (
	"cmp"
	"slices"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// SortedWriter buffers results and replays them sorted by a field when
// WriteFooter is called. It wraps any other Writer.
type SortedWriter struct {
	inner   Writer
	sortBy  string
	results []*scanner.FoundResult
}

// NewSortedWriter wraps inner and buffers results for sorted replay.
func NewSortedWriter(inner Writer, sortBy string) *SortedWriter {
	return &SortedWriter{inner: inner, sortBy: sortBy}
}

func (w *SortedWriter) WriteHeader() error {
	return w.inner.WriteHeader()
}

// WriteResult keeps a copy without the body; the sink owns result only for
// the duration of the call.
func (w *SortedWriter) WriteResult(result *scanner.FoundResult) error {
	cpy := *result
	cpy.Body = nil
	w.results = append(w.results, &cpy)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	slices.SortStableFunc(w.results, func(a, b *scanner.FoundResult) int {
		switch w.sortBy {
		case "status":
			return cmp.Compare(a.StatusCode, b.StatusCode)
		case "size":
			return cmp.Compare(a.ContentLength, b.ContentLength)
		case "path":
			return cmp.Compare(a.Path, b.Path)
		default:
			return 0
		}
	})
	for _, r := range w.results {
		if err := w.inner.WriteResult(r); err != nil {
			return err
		}
	}
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error {
	return w.inner.Close()
}
