package crawl

import (
	"bytes"
	"io"
	"iter"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// linkAttrs are the attributes whose values are followed as links.
var linkAttrs = map[string]struct{}{
	"href":       {},
	"src":        {},
	"action":     {},
	"data-src":   {},
	"formaction": {},
}

// quotedPath matches quoted absolute or relative paths in scripts and other
// non-HTML text, e.g. "/api/v1/users" or './static/app.js'.
var quotedPath = regexp.MustCompile(`["'](\.{0,2}/[A-Za-z0-9_\-./%~]+)["']`)

// Extractor pulls candidate links out of response bodies. HTML is tokenized;
// anything else textual is scanned for quoted paths.
type Extractor struct {
	// MaxBody caps how much of a body is inspected. Zero means no cap.
	MaxBody int
}

// NewExtractor returns an Extractor that inspects at most maxBody bytes.
func NewExtractor(maxBody int) *Extractor {
	return &Extractor{MaxBody: maxBody}
}

// Links yields every distinct link in body. Links are returned as written in
// the document; resolving them against pageURL is left to the caller.
func (e *Extractor) Links(body []byte, contentType, pageURL string) iter.Seq[string] {
	if e.MaxBody > 0 && len(body) > e.MaxBody {
		body = body[:e.MaxBody]
	}
	return func(yield func(string) bool) {
		seen := make(map[string]struct{})
		emit := func(raw string) bool {
			raw = strings.TrimSpace(raw)
			if skipLink(raw) {
				return true
			}
			if _, ok := seen[raw]; ok {
				return true
			}
			seen[raw] = struct{}{}
			return yield(raw)
		}
		if isHTML(contentType, body) {
			htmlLinks(body, contentType, emit)
			return
		}
		for _, m := range quotedPath.FindAllSubmatch(body, -1) {
			if !emit(string(m[1])) {
				return
			}
		}
	}
}

func htmlLinks(body []byte, contentType string, emit func(string) bool) {
	var r io.Reader = bytes.NewReader(body)
	if cr, err := charset.NewReader(r, contentType); err == nil {
		r = cr
	}
	z := html.NewTokenizer(r)
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			inScript = string(name) == "script"
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if _, ok := linkAttrs[string(key)]; ok {
					if !emit(string(val)) {
						return
					}
				}
			}
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			for _, m := range quotedPath.FindAllSubmatch(z.Text(), -1) {
				if !emit(string(m[1])) {
					return
				}
			}
		}
	}
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt == "text/html" || mt == "application/xhtml+xml"
		}
	}
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html"))
}

func skipLink(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return true
	}
	lower := strings.ToLower(raw)
	for _, scheme := range []string{"javascript:", "mailto:", "data:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
