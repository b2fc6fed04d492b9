package filter

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// BodyMatchFilter only passes results whose body contains a given string.
// Results without a body (HEAD probes) are not judged.
type BodyMatchFilter struct {
	needle []byte
}

// NewBodyMatchFilter creates a filter that requires the body to contain needle.
func NewBodyMatchFilter(needle string) *BodyMatchFilter {
	return &BodyMatchFilter{needle: []byte(needle)}
}

func (f *BodyMatchFilter) Name() string { return "body-match" }

func (f *BodyMatchFilter) ShouldFilter(result *scanner.FoundResult) bool {
	if result.Body == nil {
		return false
	}
	return !bytes.Contains(result.Body, f.needle)
}

// BodyExcludeFilter hides results whose body contains a given string.
type BodyExcludeFilter struct {
	needle []byte
}

// NewBodyExcludeFilter creates a filter that hides results containing needle.
func NewBodyExcludeFilter(needle string) *BodyExcludeFilter {
	return &BodyExcludeFilter{needle: []byte(needle)}
}

func (f *BodyExcludeFilter) Name() string { return "body-exclude" }

func (f *BodyExcludeFilter) ShouldFilter(result *scanner.FoundResult) bool {
	return bytes.Contains(result.Body, f.needle)
}

// BodyRegexFilter hides results whose body matches a regular expression.
type BodyRegexFilter struct {
	re *regexp.Regexp
}

// NewBodyRegexFilter compiles expr into a hiding filter.
func NewBodyRegexFilter(expr string) (*BodyRegexFilter, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("body regex %q: %w", expr, err)
	}
	return &BodyRegexFilter{re: re}, nil
}

func (f *BodyRegexFilter) Name() string { return "body-regex" }

func (f *BodyRegexFilter) ShouldFilter(result *scanner.FoundResult) bool {
	return f.re.Match(result.Body)
}
