package filter

import "github.com/maxvaer/dirsweep/internal/scanner"

// SizeFilter excludes results matching specific response body sizes.
type SizeFilter struct {
	sizes map[int64]struct{}
}

// NewSizeFilter creates a filter that drops results with the given body sizes.
func NewSizeFilter(excludeSizes []int) *SizeFilter {
	f := &SizeFilter{sizes: make(map[int64]struct{}, len(excludeSizes))}
	for _, s := range excludeSizes {
		f.sizes[int64(s)] = struct{}{}
	}
	return f
}

func (f *SizeFilter) Name() string { return "size" }

// ShouldFilter compares the body length when a body was read, else the
// advertised Content-Length (HEAD probes).
func (f *SizeFilter) ShouldFilter(result *scanner.FoundResult) bool {
	size := result.ContentLength
	if result.Body != nil {
		size = int64(len(result.Body))
	}
	_, ok := f.sizes[size]
	return ok
}
