package filter

import (
	"testing"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

func TestStatusFilter_Include(t *testing.T) {
	f := NewStatusFilter([]int{200, 301}, nil)

	r200 := &scanner.FoundResult{StatusCode: 200}
	if f.ShouldFilter(r200) {
		t.Error("200 should pass include filter")
	}

	r403 := &scanner.FoundResult{StatusCode: 403}
	if !f.ShouldFilter(r403) {
		t.Error("403 should be filtered by include filter")
	}
}

func TestStatusFilter_Exclude(t *testing.T) {
	f := NewStatusFilter(nil, []int{403, 500})

	r200 := &scanner.FoundResult{StatusCode: 200}
	if f.ShouldFilter(r200) {
		t.Error("200 should pass exclude filter")
	}

	r403 := &scanner.FoundResult{StatusCode: 403}
	if !f.ShouldFilter(r403) {
		t.Error("403 should be filtered by exclude filter")
	}
}

func TestKindFilter(t *testing.T) {
	f := NewKindFilter(true, false)
	if !f.ShouldFilter(&scanner.FoundResult{IsDir: true}) {
		t.Error("directory should be hidden")
	}
	if f.ShouldFilter(&scanner.FoundResult{}) {
		t.Error("file should pass")
	}
}

func TestSizeFilter(t *testing.T) {
	f := NewSizeFilter([]int{0, 1234})

	r := &scanner.FoundResult{ContentLength: 1234}
	if !f.ShouldFilter(r) {
		t.Error("size 1234 should be filtered")
	}

	r.ContentLength = 5678
	if f.ShouldFilter(r) {
		t.Error("size 5678 should pass")
	}

	// A read body wins over the advertised length.
	r.Body = make([]byte, 1234)
	if !f.ShouldFilter(r) {
		t.Error("1234-byte body should be filtered")
	}
}

func TestBodyFilters(t *testing.T) {
	r := &scanner.FoundResult{Body: []byte("<title>Admin Console</title>")}

	if NewBodyMatchFilter("Admin").ShouldFilter(r) {
		t.Error("body containing needle should pass match filter")
	}
	if !NewBodyMatchFilter("Login").ShouldFilter(r) {
		t.Error("body without needle should be hidden by match filter")
	}
	if NewBodyMatchFilter("Login").ShouldFilter(&scanner.FoundResult{}) {
		t.Error("bodiless result should not be judged by match filter")
	}
	if !NewBodyExcludeFilter("Console").ShouldFilter(r) {
		t.Error("exclude filter should hide matching body")
	}

	re, err := NewBodyRegexFilter(`(?i)admin\s+console`)
	if err != nil {
		t.Fatal(err)
	}
	if !re.ShouldFilter(r) {
		t.Error("regex filter should hide matching body")
	}
	if _, err := NewBodyRegexFilter("("); err == nil {
		t.Error("invalid regex should fail")
	}
}

func TestChain_ShortCircuits(t *testing.T) {
	chain := NewChain(NewStatusFilter(nil, []int{403}))
	chain.Add(NewSizeFilter([]int{0}))
	if chain.Len() != 2 {
		t.Fatalf("Len = %d", chain.Len())
	}

	// Status filter should catch this first.
	r := &scanner.FoundResult{StatusCode: 403, ContentLength: 0}
	filtered, reason := chain.Apply(r)
	if !filtered {
		t.Error("expected chain to filter")
	}
	if reason != "status" {
		t.Errorf("expected reason 'status', got %q", reason)
	}

	if filtered, _ := chain.Apply(&scanner.FoundResult{StatusCode: 200, ContentLength: 10}); filtered {
		t.Error("result should pass every filter")
	}
}
