package scanner

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

func TestRegexRegistry(t *testing.T) {
	r, err := NewRegexRegistry(`id=\d+`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add(`id=\d+`); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Fatalf("duplicate pattern registered, Len() = %d", r.Len())
	}
	if _, err := r.Add(`(`); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if re := r.MatchAll("id=1", "id=22"); re == nil {
		t.Fatal("expected a match for both texts")
	}
	if re := r.MatchAll("id=1", "no id"); re != nil {
		t.Fatal("regex must match every text")
	}
}

func TestAutoResolver(t *testing.T) {
	amb := Ambiguity{
		URL: "http://h/x",
		Bodies: [3]string{
			"<html>Not here. ref 8f1a. Bye</html>",
			"<html>Not here. ref 77c2e0. Bye</html>",
			"<html>Not here. ref 0. Bye</html>",
		},
	}
	pattern, err := AutoResolver{}.Resolve(context.Background(), amb)
	if err != nil {
		t.Fatal(err)
	}
	re := regexp.MustCompile(pattern)
	for _, b := range amb.Bodies {
		if !re.MatchString(b) {
			t.Errorf("pattern %q does not match %q", pattern, b)
		}
	}
	if re.MatchString("<html>Welcome home</html>") {
		t.Errorf("pattern %q matches an unrelated page", pattern)
	}
}

func TestAutoResolverNothingShared(t *testing.T) {
	amb := Ambiguity{Bodies: [3]string{"abc", "xyz", "123"}}
	if _, err := (AutoResolver{}).Resolve(context.Background(), amb); !errors.Is(err, ErrNoResolution) {
		t.Fatalf("err = %v, want ErrNoResolution", err)
	}
}

func TestAutoResolverKeepsValidUTF8(t *testing.T) {
	amb := Ambiguity{Bodies: [3]string{"préfixé", "préfixà", "préfixô"}}
	pattern, err := AutoResolver{}.Resolve(context.Background(), amb)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		t.Fatalf("pattern %q does not compile: %v", pattern, err)
	}
}

func TestResolverChain(t *testing.T) {
	amb := Ambiguity{
		Bodies: [3]string{"gone 1", "gone 2", "gone 3"},
		Raw:    [3]string{"HTTP/1.1 200 OK\r\n\r\ngone 1", "HTTP/1.1 200 OK\r\n\r\ngone 2", "HTTP/1.1 200 OK\r\n\r\ngone 3"},
	}
	chain := ResolverChain{StaticResolver(`nomatch`), StaticResolver(""), StaticResolver(`gone \d`)}
	got, err := chain.Resolve(context.Background(), amb)
	if err != nil {
		t.Fatal(err)
	}
	if got != `gone \d` {
		t.Fatalf("chain picked %q, want the first pattern matching all responses", got)
	}

	if _, err := (ResolverChain{StaticResolver(`nomatch`)}).Resolve(context.Background(), amb); !errors.Is(err, ErrNoResolution) {
		t.Fatalf("err = %v, want ErrNoResolution", err)
	}
}
