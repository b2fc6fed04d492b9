package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Header is a name/value pair sent with every request. A "Host" header is
// applied as a virtual-host override rather than a literal header.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Options holds all configuration for a dirsweep scan.
type Options struct {
	// Target
	URL          string `yaml:"url"`
	URLsFile     string `yaml:"urls_file"`
	CIDRTargets  string `yaml:"cidr"`
	Ports        string `yaml:"ports"`
	RequestFile  string `yaml:"request_file"` // raw HTTP request (e.g. Burp export)
	WordlistPath string `yaml:"wordlist"`     // empty = use embedded

	// Brute force
	BruteForce bool   `yaml:"brute_force"`
	Charset    string `yaml:"charset"`
	MinLength  int    `yaml:"min_length"`
	MaxLength  int    `yaml:"max_length"`

	// Probe set
	Extensions     []string `yaml:"extensions"`
	BlankExtension bool     `yaml:"blank_extension"` // also test the bare word
	ScanDirs       bool     `yaml:"scan_dirs"`
	ScanFiles      bool     `yaml:"scan_files"`

	// Discovery
	Recursive        bool     `yaml:"recursive"`
	MaxDepth         int      `yaml:"max_depth"` // 0 = unlimited
	CaseInsensitive  bool     `yaml:"case_insensitive"`
	OnlyUnderStart   bool     `yaml:"only_under_start"`
	ParseHTML        bool     `yaml:"parse_html"`
	ContentAnalysis  bool     `yaml:"content_analysis"`
	AutoMethod       bool     `yaml:"auto_method"` // HEAD first, GET when the body matters
	FailRegexes      []string `yaml:"fail_regexes"`
	FailRegexDefault string   `yaml:"fail_regex_default"` // tried first for inconsistent not-found pages
	AskRegex         bool     `yaml:"ask_regex"`          // prompt on the terminal for inconsistent not-found pages
	DisableAutoRegex bool     `yaml:"disable_auto_regex"`

	// Performance
	Threads          int           `yaml:"threads"`
	Timeout          time.Duration `yaml:"timeout"`
	Delay            time.Duration `yaml:"delay"`
	RateLimit        int           `yaml:"rate_limit"` // requests per second, 0 = unlimited
	AdaptiveThrottle bool          `yaml:"adaptive_throttle"`
	MaxETA           time.Duration `yaml:"max_eta"`
	ProgressTick     time.Duration `yaml:"progress_tick"` // monitor period, 0 = 1s

	// Output filtering
	IncludeStatus      []int  `yaml:"include_status"`
	ExcludeStatus      []int  `yaml:"exclude_status"`
	ExcludeSize        []int  `yaml:"exclude_size"`
	MatchBody          string `yaml:"match_body"`
	ExcludeBody        string `yaml:"exclude_body"`
	ExcludeRegex       string `yaml:"exclude_regex"`
	DuplicateThreshold int    `yaml:"duplicate_threshold"` // 0 = disabled

	// Output
	OutputFile   string `yaml:"output"`
	OutputFormat string `yaml:"format"` // "text", "json", "csv"
	Quiet        bool   `yaml:"quiet"`
	NoColor      bool   `yaml:"no_color"`
	SortBy       string `yaml:"sort"`
	Tree         bool   `yaml:"tree"`
	OnResultCmd  string `yaml:"on_result"`
	Verbose      bool   `yaml:"verbose"`
	Debug        bool   `yaml:"debug"`

	// HTTP
	Headers         []Header `yaml:"headers"`
	UserAgent       string   `yaml:"user_agent"`
	Proxy           string   `yaml:"proxy"`
	AuthUser        string   `yaml:"auth_user"`
	AuthPass        string   `yaml:"auth_pass"`
	FollowRedirects bool     `yaml:"follow_redirects"`
}

// Load reads a YAML options file on top of opts. Keys missing from the file
// leave the existing values untouched.
func Load(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// SetHeader adds or replaces a header, matching names case-insensitively.
func (o *Options) SetHeader(name, value string) {
	for i, h := range o.Headers {
		if strings.EqualFold(h.Name, name) {
			o.Headers[i].Value = value
			return
		}
	}
	o.Headers = append(o.Headers, Header{Name: name, Value: value})
}

// HasHeader reports whether a header with the given name is configured.
func (o *Options) HasHeader(name string) bool {
	for _, h := range o.Headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// Validate checks option combinations and fills in derived defaults. It is
// called once before any scan starts.
func (o *Options) Validate() error {
	if o.URL == "" && o.URLsFile == "" && o.CIDRTargets == "" {
		return fmt.Errorf("target required: use -u, -l, --cidr, or --request-file")
	}
	if o.URL != "" && !strings.HasPrefix(o.URL, "http://") && !strings.HasPrefix(o.URL, "https://") {
		o.URL = "http://" + o.URL
	}
	if len(o.IncludeStatus) > 0 && len(o.ExcludeStatus) > 0 {
		return fmt.Errorf("--include-status and --exclude-status are mutually exclusive")
	}
	if o.SortBy != "" && o.SortBy != "status" && o.SortBy != "path" && o.SortBy != "size" {
		return fmt.Errorf("--sort must be one of: status, path, size")
	}
	switch o.OutputFormat {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("--format must be one of: text, json, csv")
	}
	if o.Threads < 1 {
		return fmt.Errorf("--threads must be at least 1")
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("--rate-limit cannot be negative")
	}
	if !o.ScanDirs && !o.ScanFiles {
		return fmt.Errorf("nothing to scan: enable directories, files, or both")
	}
	if o.BruteForce {
		if o.Charset == "" {
			return fmt.Errorf("--charset is required in brute-force mode")
		}
		if o.MinLength < 1 || o.MaxLength < o.MinLength {
			return fmt.Errorf("invalid brute-force length range [%d, %d]", o.MinLength, o.MaxLength)
		}
	}
	for _, expr := range o.FailRegexes {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("invalid --fail-regex %q: %w", expr, err)
		}
	}
	if o.FailRegexDefault != "" {
		if _, err := regexp.Compile(o.FailRegexDefault); err != nil {
			return fmt.Errorf("invalid --fail-regex-default: %w", err)
		}
	}
	for i, ext := range o.Extensions {
		o.Extensions[i] = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	}
	return nil
}
