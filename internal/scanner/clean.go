package scanner

import (
	"net/url"
	"regexp"
	"strings"
)

// Markers substituted for volatile response content.
const (
	MarkerDateHeader = "[DATE-HEADER]"
	MarkerP3P        = "[P3P]"
	MarkerSetCookie  = "[SET-COOKIE]"
	MarkerExpires    = "[EXPIRES]"
	MarkerETag       = "[ETAG]"
	MarkerDate       = "[DATE]"
	MarkerHost       = "[HOST]"
	MarkerURL        = "[URL]"
	MarkerPath       = "[PATH]"
	MarkerIP         = "[IP]"
)

var headerLines = []struct {
	re     *regexp.Regexp
	marker string
}{
	{regexp.MustCompile(`(?im)^date:[^\r\n]*`), MarkerDateHeader},
	{regexp.MustCompile(`(?im)^p3p:[^\r\n]*`), MarkerP3P},
	{regexp.MustCompile(`(?im)^set-cookie:[^\r\n]*`), MarkerSetCookie},
	{regexp.MustCompile(`(?im)^expires:[^\r\n]*`), MarkerExpires},
	{regexp.MustCompile(`(?im)^etag:[^\r\n]*`), MarkerETag},
}

var (
	datePatterns = []*regexp.Regexp{
		// Mon, 02 Jan 2006 15:04:05 GMT
		regexp.MustCompile(`(?i)\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+\d{1,2}[\s-](?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s-]\d{2,4}\s+\d{1,2}:\d{2}(?::\d{2})?(?:\s*[a-z]{2,5}|\s*[+-]\d{4})?`),
		// 2006-01-02T15:04:05Z, 2006-01-02 15:04:05
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?\b`),
		// 01/02/2006 with optional time
		regexp.MustCompile(`\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AaPp][Mm])?)?`),
		// bare clock times
		regexp.MustCompile(`\b\d{1,2}:\d{2}:\d{2}\b`),
	}
	ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Cleaner strips response content that changes between otherwise identical
// responses, so bodies can be compared byte for byte.
type Cleaner struct {
	host string // target host, port included when present
}

// NewCleaner returns a Cleaner for the given target host.
func NewCleaner(host string) *Cleaner {
	return &Cleaner{host: host}
}

// Clean replaces volatile elements of s with fixed markers. probeURL is the
// URL that produced s.
func (c *Cleaner) Clean(s, probeURL string) string {
	for _, h := range headerLines {
		s = h.re.ReplaceAllLiteralString(s, h.marker)
	}
	if probeURL != "" {
		s = replaceFold(s, probeURL, MarkerURL)
		if u, err := url.Parse(probeURL); err == nil {
			if p := u.EscapedPath(); len(p) > 1 {
				s = replaceFold(s, p, MarkerPath)
				if u.Path != p {
					s = replaceFold(s, u.Path, MarkerPath)
				}
			}
		}
	}
	if c.host != "" {
		s = replaceFold(s, c.host, MarkerHost)
		if h, _, ok := strings.Cut(c.host, ":"); ok && h != "" {
			s = replaceFold(s, h, MarkerHost)
		}
	}
	s = ipv4Pattern.ReplaceAllLiteralString(s, MarkerIP)
	for _, re := range datePatterns {
		s = re.ReplaceAllLiteralString(s, MarkerDate)
	}
	return s
}

// replaceFold replaces every case-insensitive occurrence of old in s.
func replaceFold(s, old, repl string) string {
	if old == "" {
		return s
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(old))
	return re.ReplaceAllLiteralString(s, repl)
}
