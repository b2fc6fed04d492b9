package scanner

import (
	"net/http"
	"strings"
)

// notFoundMarkers are body phrases that mark a 200 response as a soft-404
// regardless of the base case.
var notFoundMarkers = []string{
	"file not found",
	"404 not found",
}

// Classifier decides whether a response shows an existing resource.
type Classifier struct {
	Cleaner *Cleaner
	// ContentAnalysis compares bodies of GET 200 responses even when the base
	// case itself was status based.
	ContentAnalysis bool
}

// Classify reports whether resp, obtained with method, is a hit against bc.
// cleaned is the cleaned body when a body comparison was made. Classify has
// no side effects; the same inputs always give the same verdict.
func (c *Classifier) Classify(resp *Response, bc *BaseCase, method string) (found bool, cleaned string) {
	isGet := method != http.MethodHead

	switch {
	case bc.Mode == ModeRegex && isGet:
		return !bc.Regex.MatchString(resp.Raw()), ""

	case isGet && resp.StatusCode == http.StatusOK &&
		(bc.Mode == ModeContent || c.ContentAnalysis):
		cleaned = c.Cleaner.Clean(string(resp.Body), resp.URL)
		if strings.EqualFold(cleaned, bc.Body) || looksNotFound(cleaned) {
			return false, cleaned
		}
		return true, cleaned
	}

	return StatusFound(resp.StatusCode, bc.FailCode), ""
}

// StatusFound is the status-code rule: any code other than the fail code,
// 404, 400 or 0 is a hit.
func StatusFound(code, failCode int) bool {
	switch code {
	case failCode, http.StatusNotFound, http.StatusBadRequest, 0:
		return false
	}
	return true
}

func looksNotFound(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
