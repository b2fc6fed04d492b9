package scanner

import (
	"strings"
	"testing"
)

func TestCleanRemovesVolatileContent(t *testing.T) {
	c := NewCleaner("example.com:8080")
	probe := "http://example.com:8080/admin/secret.php"
	in := "HTTP/1.1 200 OK\r\n" +
		"Set-Cookie: session=abc123; Path=/\r\n" +
		"\r\n" +
		"<p>You asked for " + probe + " on example.com:8080 from 10.1.2.3</p>"

	out := c.Clean(in, probe)

	for _, marker := range []string{MarkerSetCookie, MarkerURL, MarkerHost, MarkerIP} {
		if !strings.Contains(out, marker) {
			t.Errorf("cleaned output missing %s:\n%s", marker, out)
		}
	}
	for _, volatile := range []string{"session=abc123", probe, "example.com", "10.1.2.3"} {
		if strings.Contains(out, volatile) {
			t.Errorf("cleaned output still contains %q:\n%s", volatile, out)
		}
	}
}

func TestCleanHeaderLines(t *testing.T) {
	c := NewCleaner("")
	in := "Date: Mon, 02 Jan 2006 15:04:05 GMT\r\n" +
		"ETag: \"33a64df5\"\r\n" +
		"Expires: -1\r\n" +
		"P3P: CP=\"NOI\"\r\n" +
		"Content-Type: text/html\r\n"
	out := c.Clean(in, "")
	for _, marker := range []string{MarkerDateHeader, MarkerETag, MarkerExpires, MarkerP3P} {
		if !strings.Contains(out, marker) {
			t.Errorf("missing %s in %q", marker, out)
		}
	}
	if !strings.Contains(out, "Content-Type: text/html") {
		t.Errorf("stable header was altered: %q", out)
	}
}

func TestCleanPathAndDates(t *testing.T) {
	c := NewCleaner("host")
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"path", "missing: /docs/readme.txt", "missing: " + MarkerPath},
		{"path case-insensitive", "missing: /DOCS/README.TXT", "missing: " + MarkerPath},
		{"iso date", "generated 2024-05-01T10:00:00Z", "generated " + MarkerDate},
		{"http date", "at Tue, 15 Nov 1994 08:12:31 GMT", "at " + MarkerDate},
		{"clock", "time 23:59:01", "time " + MarkerDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Clean(tt.in, "http://host/docs/readme.txt")
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanRootPathUntouched(t *testing.T) {
	c := NewCleaner("")
	got := c.Clean("a/b/c", "http://h/")
	if got != "a/b/c" {
		t.Fatalf("root path should not be replaced, got %q", got)
	}
}
