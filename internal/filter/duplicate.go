package filter

import (
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// responseKey identifies a unique response shape by status code and the
// fingerprint of its cleaned body.
type responseKey struct {
	statusCode  int
	fingerprint uint32
}

// fuzzyKey groups responses by status and structural shape (line count +
// bucketed word count). This catches catch-all pages whose volatile parts
// survive cleaning: each fingerprint is unique but line count and word
// count are nearly identical.
type fuzzyKey struct {
	statusCode int
	lineCount  int
	wordBucket int // wordCount / 5
}

// DuplicateFilter detects and filters file results that appear repeatedly
// with the same status code and cleaned content. This catches catch-all
// routes below a directory (e.g. /app/login/* always serving the login page)
// whose base case was taken in a different directory.
//
// Two detection modes:
//   - Exact: same (statusCode, fingerprint), threshold occurrences allowed.
//   - Fuzzy: same (statusCode, lineCount, ~wordCount), 3x threshold
//     occurrences allowed.
//
// Directories are never filtered: a directory listing repeated at many paths
// is still worth reporting.
type DuplicateFilter struct {
	mu             sync.Mutex
	seen           map[responseKey]int
	fuzzySeen      map[fuzzyKey]int
	threshold      int
	fuzzyThreshold int
}

// NewDuplicateFilter returns a filter that allows up to threshold identical
// responses through before filtering the rest. Fuzzy detection uses 3x the
// threshold, at least 5.
func NewDuplicateFilter(threshold int) *DuplicateFilter {
	return &DuplicateFilter{
		seen:           make(map[responseKey]int),
		fuzzySeen:      make(map[fuzzyKey]int),
		threshold:      threshold,
		fuzzyThreshold: max(threshold*3, 5),
	}
}

func (d *DuplicateFilter) Name() string { return "duplicate" }

func (d *DuplicateFilter) ShouldFilter(result *scanner.FoundResult) bool {
	if result.IsDir {
		return false
	}
	exact := responseKey{
		statusCode:  result.StatusCode,
		fingerprint: fingerprint(result),
	}
	fuzzy := fuzzyKey{
		statusCode: result.StatusCode,
		lineCount:  result.LineCount,
		wordBucket: result.WordCount / 5,
	}

	d.mu.Lock()
	d.seen[exact]++
	exactCount := d.seen[exact]
	d.fuzzySeen[fuzzy]++
	fuzzyCount := d.fuzzySeen[fuzzy]
	d.mu.Unlock()

	return exactCount > d.threshold || fuzzyCount > d.fuzzyThreshold
}

func fingerprint(r *scanner.FoundResult) uint32 {
	if r.Cleaned != "" {
		return murmur3.Sum32([]byte(r.Cleaned))
	}
	return murmur3.Sum32(r.BodyHash[:])
}
