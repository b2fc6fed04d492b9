package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/reqparse"
	"github.com/maxvaer/dirsweep/internal/runner"
	"github.com/maxvaer/dirsweep/pkg/version"
)

var (
	opts       config.Options
	configFile string
	headers    []string
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "urls-file", "request-file", "cidr", "ports", "config"}},
	{"WORDS", []string{"wordlist", "extensions", "blank-extension", "dirs", "files", "brute-force", "charset", "min-length", "max-length"}},
	{"DISCOVERY", []string{"recursive", "max-depth", "case-insensitive", "only-under-start", "parse-html", "content-analysis", "auto-method", "fail-regex", "fail-regex-default", "ask-regex", "no-auto-regex"}},
	{"MATCHERS", []string{"include-status", "match-body"}},
	{"FILTERS", []string{"exclude-status", "exclude-size", "exclude-body", "exclude-regex", "duplicate-threshold"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "delay", "rate-limit", "adaptive-throttle", "max-eta"}},
	{"HTTP", []string{"header", "user-agent", "proxy", "auth-user", "auth-pass", "follow-redirects"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "sort", "tree", "on-result", "verbose", "debug"}},
}

var rootCmd = &cobra.Command{
	Use:     "dirsweep -u <url> [flags]",
	Short:   "Recursive web content discovery with per-directory soft-404 detection",
	Version: version.Version,
	Long: `dirsweep discovers directories and files on web servers. Every directory
and extension gets its own "not found" fingerprint, so servers that answer
unknown paths with 200 pages or redirects do not flood the results.`,
	Example: `  dirsweep -u https://example.com
  dirsweep -u https://example.com -e php,html -t 50 --recursive
  dirsweep -u https://example.com/app/ --only-under-start --parse-html
  dirsweep -u https://example.com --brute-force --charset abc123 --min-length 1 --max-length 3
  dirsweep -u https://example.com -x 403,500 -o results.json --format json
  dirsweep -u https://example.com --fail-regex "(?i)page\s+not\s+found"
  dirsweep -r burp.req -e php,html
  dirsweep -l urls.txt -w wordlist.txt
  dirsweep --cidr 192.168.1.0/24 --ports 80,443,8080
  dirsweep --config scan.yaml -u https://example.com
  dirsweep -u https://example.com --on-result "notify-send {url}"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		for _, h := range headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
			}
			opts.SetHeader(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		// Parse raw HTTP request file (e.g. Burp export) if provided.
		if opts.RequestFile != "" {
			parsed, err := reqparse.ParseFile(opts.RequestFile)
			if err != nil {
				return fmt.Errorf("parsing request file: %w", err)
			}
			if !cmd.Flags().Changed("url") {
				opts.URL = parsed.Target()
			}
			for _, h := range parsed.Headers {
				k := strings.ToLower(h.Name)
				// Skip hop-by-hop and encoding headers that don't make sense for fuzzing.
				if k == "content-length" || k == "accept-encoding" || k == "user-agent" {
					continue
				}
				// Explicit -H flags take precedence.
				if !opts.HasHeader(h.Name) {
					opts.SetHeader(h.Name, h.Value)
				}
			}
			if ua := parsed.Header("User-Agent"); ua != "" && !cmd.Flags().Changed("user-agent") {
				opts.UserAgent = ua
			}
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Loaded request from %s -> %s\n", opts.RequestFile, opts.URL)
			}
		}

		if err := opts.Validate(); err != nil {
			if opts.URL == "" && opts.URLsFile == "" && opts.CIDRTargets == "" {
				_ = cmd.Help()
				fmt.Fprintln(os.Stderr)
			}
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		err := runner.Run(ctx, &opts)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "[*] Interrupted")
			return nil
		}
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.URL, "url", "u", "", "Target URL; its path is the start directory")
	f.StringVarP(&opts.URLsFile, "urls-file", "l", "", "File with one URL per line")
	f.StringVarP(&opts.RequestFile, "request-file", "r", "", "Raw HTTP request file (e.g. Burp Suite export)")
	f.StringVar(&opts.CIDRTargets, "cidr", "", "CIDR ranges, IPs or IP ranges to scan (comma-separated)")
	f.StringVar(&opts.Ports, "ports", "", "Ports for CIDR targets (comma-separated, e.g. 80,443,8080)")
	f.StringVarP(&configFile, "config", "c", "", "YAML options file (flags override its values)")

	// Words
	f.StringVarP(&opts.WordlistPath, "wordlist", "w", "", "Custom wordlist path (default: built-in)")
	f.StringSliceVarP(&opts.Extensions, "extensions", "e", nil, "File extensions to test (e.g. php,html,js)")
	f.BoolVar(&opts.BlankExtension, "blank-extension", true, "Also test each word without an extension")
	f.BoolVar(&opts.ScanDirs, "dirs", true, "Probe for directories")
	f.BoolVar(&opts.ScanFiles, "files", true, "Probe for files")
	f.BoolVar(&opts.BruteForce, "brute-force", false, "Generate words from a charset instead of a wordlist")
	f.StringVar(&opts.Charset, "charset", "abcdefghijklmnopqrstuvwxyz0123456789", "Brute-force charset")
	f.IntVar(&opts.MinLength, "min-length", 1, "Brute-force minimum word length")
	f.IntVar(&opts.MaxLength, "max-length", 3, "Brute-force maximum word length")

	// Discovery
	f.BoolVar(&opts.Recursive, "recursive", false, "Scan found directories")
	f.IntVarP(&opts.MaxDepth, "max-depth", "R", 3, "Maximum recursion depth (0 = unlimited)")
	f.BoolVar(&opts.CaseInsensitive, "case-insensitive", false, "Treat paths differing only in case as the same")
	f.BoolVar(&opts.OnlyUnderStart, "only-under-start", false, "Never leave the start directory")
	f.BoolVar(&opts.ParseHTML, "parse-html", false, "Follow links found in responses")
	f.BoolVar(&opts.ContentAnalysis, "content-analysis", false, "Compare every 200 response with the not-found page")
	f.BoolVar(&opts.AutoMethod, "auto-method", false, "Probe with HEAD, use GET only when the body matters")
	f.StringArrayVar(&opts.FailRegexes, "fail-regex", nil, "Regex matching not-found responses (repeatable)")
	f.StringVar(&opts.FailRegexDefault, "fail-regex-default", "", "Regex tried first when not-found pages differ between requests")
	f.BoolVar(&opts.AskRegex, "ask-regex", false, "Ask for a regex on the terminal when not-found pages differ")
	f.BoolVar(&opts.DisableAutoRegex, "no-auto-regex", false, "Do not derive regexes for inconsistent not-found pages")

	// Filtering
	f.VarP(&intSliceValue{target: &opts.IncludeStatus}, "include-status", "i", "Only show these status codes (comma-separated)")
	f.VarP(&intSliceValue{target: &opts.ExcludeStatus}, "exclude-status", "x", "Hide these status codes (comma-separated)")
	f.Var(&intSliceValue{target: &opts.ExcludeSize}, "exclude-size", "Hide responses of these sizes (comma-separated)")
	f.StringVar(&opts.MatchBody, "match-body", "", "Only show responses containing this string")
	f.StringVar(&opts.ExcludeBody, "exclude-body", "", "Hide responses containing this string")
	f.StringVar(&opts.ExcludeRegex, "exclude-regex", "", "Hide responses whose body matches this regex")
	f.IntVar(&opts.DuplicateThreshold, "duplicate-threshold", 0, "Hide files after N identical responses (0 = off)")

	// Performance
	f.IntVarP(&opts.Threads, "threads", "t", 25, "Number of concurrent workers")
	f.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.DurationVar(&opts.Delay, "delay", 0, "Delay between requests per worker")
	f.IntVar(&opts.RateLimit, "rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	f.BoolVar(&opts.AdaptiveThrottle, "adaptive-throttle", false, "Auto back-off on 429/rate limits")
	f.DurationVar(&opts.MaxETA, "max-eta", time.Hour, "Skip target if ETA exceeds this duration (0 to disable)")

	// HTTP
	f.StringArrayVarP(&headers, "header", "H", nil, "Custom header 'Key: Value' (repeatable)")
	f.StringVar(&opts.UserAgent, "user-agent", "", "Custom User-Agent string")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.StringVar(&opts.AuthUser, "auth-user", "", "Basic auth user")
	f.StringVar(&opts.AuthPass, "auth-pass", "", "Basic auth password")
	f.BoolVar(&opts.FollowRedirects, "follow-redirects", false, "Follow HTTP redirects")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.StringVar(&opts.SortBy, "sort", "", "Sort results: status, path, size (buffers until scan completes)")
	f.BoolVar(&opts.Tree, "tree", false, "Print a tree of found paths after the scan")
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run for each result (receives JSON on stdin)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log scan events")
	f.BoolVar(&opts.Debug, "debug", false, "Log every probe decision")

	// Custom help: categorized flags like httpx.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})
}

// Execute runs the root command.
func Execute() {
	// The options file is applied before flag parsing so that explicit flags
	// overwrite its values.
	if path := configPath(os.Args[1:]); path != "" {
		if err := config.Load(path, &opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath finds the value of -c/--config in args without a full parse.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		for _, name := range []string{"--config", "-c"} {
			if arg == name && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(arg, name+"="); ok {
				return v
			}
		}
	}
	return ""
}

// intSliceValue implements pflag.Value for comma-separated int slices. The
// first Set on the command line replaces any values from the options file.
type intSliceValue struct {
	target *[]int
	set    bool
}

func (v *intSliceValue) String() string {
	if v.target == nil || len(*v.target) == 0 {
		return ""
	}
	parts := make([]string, len(*v.target))
	for i, val := range *v.target {
		parts[i] = strconv.Itoa(val)
	}
	return strings.Join(parts, ",")
}

func (v *intSliceValue) Set(s string) error {
	if !v.set {
		*v.target = nil
		v.set = true
	}
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", p, err)
		}
		*v.target = append(*v.target, n)
	}
	return nil
}

func (v *intSliceValue) Type() string { return "ints" }

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
      ___  _                               
  ___/ (_)________ _      _____  ___  ____ 
 / __  / / ___/ ___/ | /| / / _ \/ _ \/ __ \
/ /_/ / / /  (__  )| |/ |/ /  __/  __/ /_/ /
\__,_/_/_/  /____/ |__/|__/\___/\___/ .___/ 
                                   /_/      %s

`, ver)
}
