package hook

import (
	"encoding/json"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPayload(t *testing.T) {
	p := NewPayload(&scanner.FoundResult{
		Method:     "GET",
		URL:        "http://example.com:8080/admin/",
		Path:       "/admin/",
		IsDir:      true,
		StatusCode: 301,
		Source:     scanner.SourceLink,
	})
	if p.Type != "dir" || p.Host != "example.com:8080" || p.Source != scanner.SourceLink.String() {
		t.Fatalf("payload = %+v", p)
	}
}

func TestExpand(t *testing.T) {
	r := NewRunner("notify {type} {status} {url} {size}", quietLogger())
	got := r.Expand(Payload{Type: "file", StatusCode: 200, URL: "http://x/a.php", ContentLength: 12})
	if got != "notify file 200 http://x/a.php 12" {
		t.Fatalf("Expand = %q", got)
	}
}

func TestRunPipesJSON(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := NewRunner("cat", quietLogger())
	out := r.Run(&scanner.FoundResult{Method: "GET", URL: "http://x/a", Path: "/a", StatusCode: 200})

	var p Payload
	if err := json.Unmarshal(out, &p); err != nil {
		t.Fatalf("hook output %q: %v", out, err)
	}
	if p.URL != "http://x/a" || p.Type != "file" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestRunFailureIsSwallowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := NewRunner("exit 3", quietLogger())
	if out := r.Run(&scanner.FoundResult{URL: "http://x/"}); out != nil {
		t.Fatalf("output = %q", strings.TrimSpace(string(out)))
	}
}
