package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validOpts() *Options {
	return &Options{
		URL:       "example.com",
		Threads:   10,
		ScanDirs:  true,
		ScanFiles: true,
	}
}

func TestValidateAddsScheme(t *testing.T) {
	o := validOpts()
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	if o.URL != "http://example.com" {
		t.Errorf("URL = %q, want http://example.com", o.URL)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"no target", func(o *Options) { o.URL = "" }},
		{"include and exclude", func(o *Options) {
			o.IncludeStatus = []int{200}
			o.ExcludeStatus = []int{404}
		}},
		{"bad sort", func(o *Options) { o.SortBy = "random" }},
		{"bad format", func(o *Options) { o.OutputFormat = "xml" }},
		{"zero threads", func(o *Options) { o.Threads = 0 }},
		{"nothing to scan", func(o *Options) { o.ScanDirs, o.ScanFiles = false, false }},
		{"brute without charset", func(o *Options) {
			o.BruteForce = true
			o.MinLength, o.MaxLength = 1, 2
		}},
		{"bad fail regex", func(o *Options) { o.FailRegexes = []string{"ok", "("} }},
		{"bad fail regex default", func(o *Options) { o.FailRegexDefault = "[a-" }},
		{"brute inverted range", func(o *Options) {
			o.BruteForce = true
			o.Charset = "ab"
			o.MinLength, o.MaxLength = 3, 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOpts()
			tt.mutate(o)
			if err := o.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateNormalizesExtensions(t *testing.T) {
	o := validOpts()
	o.Extensions = []string{".php", " html "}
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	if o.Extensions[0] != "php" || o.Extensions[1] != "html" {
		t.Errorf("extensions = %v", o.Extensions)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	content := `
url: https://target.example
threads: 40
timeout: 3s
extensions: [php, bak]
headers:
  - name: X-Api-Key
    value: secret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	o := validOpts()
	o.UserAgent = "keep-me"
	if err := Load(path, o); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.URL != "https://target.example" {
		t.Errorf("URL = %q", o.URL)
	}
	if o.Threads != 40 {
		t.Errorf("Threads = %d, want 40", o.Threads)
	}
	if o.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", o.Timeout)
	}
	if len(o.Extensions) != 2 {
		t.Errorf("Extensions = %v", o.Extensions)
	}
	if !o.HasHeader("x-api-key") {
		t.Error("expected X-Api-Key header from file")
	}
	if o.UserAgent != "keep-me" {
		t.Errorf("UserAgent overwritten: %q", o.UserAgent)
	}
}

func TestSetHeaderReplacesCaseInsensitive(t *testing.T) {
	o := &Options{}
	o.SetHeader("Cookie", "a=1")
	o.SetHeader("cookie", "b=2")
	if len(o.Headers) != 1 || o.Headers[0].Value != "b=2" {
		t.Errorf("headers = %+v", o.Headers)
	}
}
