package scanner

import (
	"net/http"
	"regexp"
	"testing"
)

func TestStatusFound(t *testing.T) {
	tests := []struct {
		code, fail int
		want       bool
	}{
		{200, 404, true},
		{301, 404, true},
		{403, 404, true},
		{404, 404, false},
		{404, 302, false},
		{302, 302, false},
		{400, 404, false},
		{0, 404, false},
		{500, 404, true},
	}
	for _, tt := range tests {
		if got := StatusFound(tt.code, tt.fail); got != tt.want {
			t.Errorf("StatusFound(%d, %d) = %v, want %v", tt.code, tt.fail, got, tt.want)
		}
	}
}

func TestClassifyModes(t *testing.T) {
	cleaner := NewCleaner("example.com")
	statusBase := &BaseCase{Mode: ModeStatus, FailCode: 404, Body: "gone"}
	contentBase := &BaseCase{Mode: ModeContent, FailCode: 200, Body: "<p>sorry, " + MarkerPath + " is missing</p>"}
	regexBase := &BaseCase{Mode: ModeRegex, FailCode: 200, Regex: regexp.MustCompile(`req-[0-9]+`)}

	tests := []struct {
		name            string
		resp            *Response
		bc              *BaseCase
		method          string
		contentAnalysis bool
		want            bool
	}{
		{"status hit", &Response{StatusCode: 200}, statusBase, http.MethodGet, false, true},
		{"status miss", &Response{StatusCode: 404}, statusBase, http.MethodGet, false, false},
		{"head hit", &Response{StatusCode: 403}, statusBase, http.MethodHead, false, true},
		{
			"content soft-404",
			&Response{StatusCode: 200, URL: "http://example.com/x.php", Body: []byte("<p>sorry, /x.php is missing</p>")},
			contentBase, http.MethodGet, false, false,
		},
		{
			"content case-insensitive",
			&Response{StatusCode: 200, URL: "http://example.com/x.php", Body: []byte("<P>SORRY, /x.php IS MISSING</P>")},
			contentBase, http.MethodGet, false, false,
		},
		{
			"content hit",
			&Response{StatusCode: 200, URL: "http://example.com/login.php", Body: []byte("<form>login</form>")},
			contentBase, http.MethodGet, false, true,
		},
		{
			"content non-200 falls back to status",
			&Response{StatusCode: 401, URL: "http://example.com/a", Body: []byte("auth")},
			contentBase, http.MethodGet, false, true,
		},
		{
			"heuristic",
			&Response{StatusCode: 200, URL: "http://example.com/a", Body: []byte("Error: File Not Found")},
			statusBase, http.MethodGet, true, false,
		},
		{
			"analysis off ignores body",
			&Response{StatusCode: 200, URL: "http://example.com/a", Body: []byte("Error: File Not Found")},
			statusBase, http.MethodGet, false, true,
		},
		{
			"regex match",
			&Response{StatusCode: 200, Body: []byte("nope req-1234")},
			regexBase, http.MethodGet, false, false,
		},
		{
			"regex miss",
			&Response{StatusCode: 200, Body: []byte("a real page")},
			regexBase, http.MethodGet, false, true,
		},
		{
			"regex over headers",
			&Response{StatusCode: 200, Header: http.Header{"X-Trace": {"req-99"}}, Body: []byte("a real page")},
			regexBase, http.MethodGet, false, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := &Classifier{Cleaner: cleaner, ContentAnalysis: tt.contentAnalysis}
			got, _ := cl.Classify(tt.resp, tt.bc, tt.method)
			if got != tt.want {
				t.Fatalf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	cleaner := NewCleaner("example.com")
	bc := &BaseCase{Mode: ModeContent, FailCode: 200, Body: "not here"}
	cl := &Classifier{Cleaner: cleaner}
	bodies := []string{"not here", "NOT HERE", "something else", "served at 2024-01-01 from 10.0.0.1"}
	for _, body := range bodies {
		resp := &Response{StatusCode: 200, URL: "http://example.com/p", Body: []byte(body)}
		first, c1 := cl.Classify(resp, bc, http.MethodGet)
		second, c2 := cl.Classify(resp, bc, http.MethodGet)
		if first != second || c1 != c2 {
			t.Fatalf("verdict for %q changed between calls", body)
		}
	}
}
