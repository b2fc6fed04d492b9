package filter

import (
	"fmt"
	"testing"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

func TestDuplicateFilter_Name(t *testing.T) {
	f := NewDuplicateFilter(2)
	if f.Name() != "duplicate" {
		t.Errorf("Name() = %q, want %q", f.Name(), "duplicate")
	}
}

func TestDuplicateFilter_AllowsUpToThreshold(t *testing.T) {
	f := NewDuplicateFilter(3)

	for i := 1; i <= 3; i++ {
		result := &scanner.FoundResult{StatusCode: 200, Cleaned: "login page content"}
		if f.ShouldFilter(result) {
			t.Errorf("call %d: should NOT filter (threshold 3)", i)
		}
	}

	result := &scanner.FoundResult{StatusCode: 200, Cleaned: "login page content"}
	if !f.ShouldFilter(result) {
		t.Error("call 4: should filter (exceeds threshold 3)")
	}
}

func TestDuplicateFilter_DirectoriesNeverFiltered(t *testing.T) {
	f := NewDuplicateFilter(1)
	for i := range 10 {
		r := &scanner.FoundResult{StatusCode: 200, IsDir: true, Cleaned: "listing"}
		if f.ShouldFilter(r) {
			t.Fatalf("directory %d was filtered", i)
		}
	}
}

func TestDuplicateFilter_DifferentStatusCodesAreSeparate(t *testing.T) {
	f := NewDuplicateFilter(1)

	r200 := &scanner.FoundResult{StatusCode: 200, Cleaned: "same body"}
	r301 := &scanner.FoundResult{StatusCode: 301, Cleaned: "same body"}

	if f.ShouldFilter(r200) {
		t.Error("first 200 should pass")
	}
	if f.ShouldFilter(r301) {
		t.Error("first 301 should pass")
	}
	if !f.ShouldFilter(r200) {
		t.Error("second 200 should be filtered")
	}
	if !f.ShouldFilter(r301) {
		t.Error("second 301 should be filtered")
	}
}

func TestDuplicateFilter_FallsBackToBodyHash(t *testing.T) {
	f := NewDuplicateFilter(1)
	a := &scanner.FoundResult{StatusCode: 200, BodyHash: [16]byte{1}}
	b := &scanner.FoundResult{StatusCode: 200, BodyHash: [16]byte{2}, LineCount: 99}

	if f.ShouldFilter(a) || f.ShouldFilter(b) {
		t.Fatal("first of each hash should pass")
	}
	if !f.ShouldFilter(a) {
		t.Error("second with the same hash should be filtered")
	}
}

func TestDuplicateFilter_UniqueResponsesNeverFiltered(t *testing.T) {
	f := NewDuplicateFilter(2)

	for i := range 100 {
		result := &scanner.FoundResult{
			StatusCode: 200,
			Cleaned:    fmt.Sprintf("page %d", i),
			WordCount:  i * 10,
			LineCount:  i * 5,
		}
		if f.ShouldFilter(result) {
			t.Errorf("unique response %d should not be filtered", i)
		}
	}
}

func TestDuplicateFilter_FuzzyDetectsVolatilePages(t *testing.T) {
	// A catch-all page with a per-request token the cleaner cannot strip:
	// every fingerprint differs but the structure stays the same.
	f := NewDuplicateFilter(2)
	// fuzzyThreshold = max(2*3, 5) = 6

	for i := range 20 {
		result := &scanner.FoundResult{
			StatusCode: 200,
			Cleaned:    fmt.Sprintf("<html>login page token=%d</html>", i),
			WordCount:  320,
			LineCount:  150,
		}
		filtered := f.ShouldFilter(result)
		if i < 6 && filtered {
			t.Errorf("fuzzy call %d: should NOT filter (within fuzzy threshold)", i)
		}
		if i >= 6 && !filtered {
			t.Errorf("fuzzy call %d: should filter (exceeds fuzzy threshold)", i)
		}
	}
}

func TestDuplicateFilter_FuzzyMinThreshold(t *testing.T) {
	f := NewDuplicateFilter(1)
	if f.fuzzyThreshold != 5 {
		t.Fatalf("fuzzyThreshold = %d, want 5", f.fuzzyThreshold)
	}
}

func TestDuplicateFilter_FuzzyDifferentStructures(t *testing.T) {
	f := NewDuplicateFilter(1)

	for i := range 20 {
		result := &scanner.FoundResult{
			StatusCode: 200,
			Cleaned:    fmt.Sprintf("body %d", i),
			WordCount:  100,
			LineCount:  i * 10,
		}
		if f.ShouldFilter(result) {
			t.Errorf("structurally different response %d should not be fuzzy-filtered", i)
		}
	}
}
