package crawl

import (
	"slices"
	"testing"
)

func collect(e *Extractor, body, contentType string) []string {
	return slices.Collect(e.Links([]byte(body), contentType, "http://example.com/"))
}

func TestLinks_Attributes(t *testing.T) {
	body := `<html><a href="/admin">Admin</a> <a href="login">Login</a> <img src="/images/logo.png"><form action="/submit"></form></html>`
	got := collect(NewExtractor(0), body, "text/html; charset=utf-8")
	want := []string{"/admin", "login", "/images/logo.png", "/submit"}
	if !slices.Equal(got, want) {
		t.Fatalf("Links = %v, want %v", got, want)
	}
}

func TestLinks_NonHTTPRejected(t *testing.T) {
	body := `<a href="javascript:alert(1)">XSS</a> <a href="mailto:a@b.com">Mail</a> <a href="data:text/html,hi">Data</a> <a href="#section">Jump</a>`
	if got := collect(NewExtractor(0), body, "text/html"); len(got) != 0 {
		t.Errorf("expected no links, got %v", got)
	}
}

func TestLinks_Deduplication(t *testing.T) {
	body := `<a href="/page">1</a> <a href="/page">2</a> <img src="/page">`
	if got := collect(NewExtractor(0), body, "text/html"); len(got) != 1 {
		t.Errorf("expected 1 deduplicated link, got %v", got)
	}
}

func TestLinks_InlineScript(t *testing.T) {
	body := `<html><script>fetch("/api/users"); var x = '/static/app.js';</script><p>"/not/a/link"</p></html>`
	got := collect(NewExtractor(0), body, "text/html")
	want := []string{"/api/users", "/static/app.js"}
	if !slices.Equal(got, want) {
		t.Fatalf("Links = %v, want %v", got, want)
	}
}

func TestLinks_Javascript(t *testing.T) {
	body := `const routes = ["/dashboard", "./partials/nav.html"]; const s = "plain words";`
	got := collect(NewExtractor(0), body, "application/javascript")
	want := []string{"/dashboard", "./partials/nav.html"}
	if !slices.Equal(got, want) {
		t.Fatalf("Links = %v, want %v", got, want)
	}
}

func TestLinks_SniffsHTMLWithoutContentType(t *testing.T) {
	body := `<!DOCTYPE html><html><a href="/sniffed">x</a></html>`
	got := collect(NewExtractor(0), body, "")
	if !slices.Equal(got, []string{"/sniffed"}) {
		t.Fatalf("Links = %v", got)
	}
}

func TestLinks_Latin1(t *testing.T) {
	body := "<html><a href=\"/caf\xe9/\">x</a></html>"
	got := collect(NewExtractor(0), body, "text/html; charset=iso-8859-1")
	if !slices.Equal(got, []string{"/café/"}) {
		t.Fatalf("Links = %q", got)
	}
}

func TestLinks_MaxBody(t *testing.T) {
	body := `<a href="/first">1</a>` + `<a href="/second">2</a>`
	got := collect(NewExtractor(22), body, "text/html")
	if !slices.Equal(got, []string{"/first"}) {
		t.Fatalf("Links = %v", got)
	}
}

func TestLinks_StopsEarly(t *testing.T) {
	body := `<a href="/a">1</a><a href="/b">2</a><a href="/c">3</a>`
	n := 0
	for range NewExtractor(0).Links([]byte(body), "text/html", "") {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("n = %d", n)
	}
}
