package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/crawl"
	"github.com/maxvaer/dirsweep/internal/filter"
	"github.com/maxvaer/dirsweep/internal/hook"
	"github.com/maxvaer/dirsweep/internal/netutil"
	"github.com/maxvaer/dirsweep/internal/output"
	"github.com/maxvaer/dirsweep/internal/scanner"
	"github.com/maxvaer/dirsweep/internal/wordlist"
	"github.com/maxvaer/dirsweep/pkg/version"
)

// maxParseBody caps how much of a page the link extractor reads.
const maxParseBody = 1 << 20

// Run executes the full scan pipeline. It supports multiple targets via
// -l (URL list file) and --cidr flags.
func Run(ctx context.Context, opts *config.Options) error {
	log := NewLogger(opts)

	targets, err := resolveTargets(opts)
	if err != nil {
		return err
	}
	words, err := buildWords(opts)
	if err != nil {
		return err
	}

	for idx, target := range targets {
		if len(targets) > 1 && !opts.Quiet {
			fmt.Fprintf(os.Stderr, "\n[*] Target %d/%d: %s\n", idx+1, len(targets), target)
		}
		opts.URL = target
		if err := runSingleTarget(ctx, opts, words, log); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "[!] Error scanning %s: %v\n", target, err)
		}
	}
	return nil
}

// NewLogger builds the engine logger: warnings by default, --verbose for
// info and --debug for everything.
func NewLogger(opts *config.Options) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    opts.NoColor,
	})
	switch {
	case opts.Debug:
		log.SetLevel(logrus.DebugLevel)
	case opts.Verbose:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// resolveTargets builds the list of URLs to scan from -u, -l, and --cidr.
func resolveTargets(opts *config.Options) ([]string, error) {
	var targets []string

	if opts.URL != "" {
		targets = append(targets, opts.URL)
	}

	if opts.URLsFile != "" {
		f, err := os.Open(opts.URLsFile)
		if err != nil {
			return nil, fmt.Errorf("opening URLs file: %w", err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
				line = "http://" + line
			}
			targets = append(targets, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading URLs file: %w", err)
		}
	}

	if opts.CIDRTargets != "" {
		scheme := "https"
		if opts.URL != "" && strings.HasPrefix(opts.URL, "http://") {
			scheme = "http"
		}
		cidrURLs, err := netutil.ExpandTargets(opts.CIDRTargets, opts.Ports, scheme)
		if err != nil {
			return nil, fmt.Errorf("expanding CIDR: %w", err)
		}
		targets = append(targets, cidrURLs...)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets specified (-u, -l, or --cidr)")
	}
	return targets, nil
}

// buildWords returns the word source: a brute-force generator or a loaded
// wordlist (embedded when no path is given).
func buildWords(opts *config.Options) (scanner.WordSource, error) {
	if opts.BruteForce {
		b, err := wordlist.NewBrute(opts.Charset, opts.MinLength, opts.MaxLength)
		if err != nil {
			return nil, fmt.Errorf("brute force: %w", err)
		}
		return b, nil
	}
	words, err := wordlist.Load(opts.WordlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading wordlist: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("wordlist %q has no entries", opts.WordlistPath)
	}
	return words, nil
}

// buildChain assembles the post-classification output filters.
func buildChain(opts *config.Options) (*filter.Chain, error) {
	chain := filter.NewChain()
	if len(opts.IncludeStatus) > 0 || len(opts.ExcludeStatus) > 0 {
		chain.Add(filter.NewStatusFilter(opts.IncludeStatus, opts.ExcludeStatus))
	}
	if len(opts.ExcludeSize) > 0 {
		chain.Add(filter.NewSizeFilter(opts.ExcludeSize))
	}
	if opts.MatchBody != "" {
		chain.Add(filter.NewBodyMatchFilter(opts.MatchBody))
	}
	if opts.ExcludeBody != "" {
		chain.Add(filter.NewBodyExcludeFilter(opts.ExcludeBody))
	}
	if opts.ExcludeRegex != "" {
		re, err := filter.NewBodyRegexFilter(opts.ExcludeRegex)
		if err != nil {
			return nil, err
		}
		chain.Add(re)
	}
	if opts.DuplicateThreshold > 0 {
		chain.Add(filter.NewDuplicateFilter(opts.DuplicateThreshold))
	}
	return chain, nil
}

func runSingleTarget(ctx context.Context, opts *config.Options, words scanner.WordSource, log *logrus.Logger) error {
	chain, err := buildChain(opts)
	if err != nil {
		return err
	}

	out, err := output.NewWriter(opts.OutputFormat, opts.OutputFile, opts.NoColor, opts.Quiet)
	if err != nil {
		return fmt.Errorf("creating output writer: %w", err)
	}
	if opts.SortBy != "" {
		out = output.NewSortedWriter(out, opts.SortBy)
	}
	defer out.Close()
	if err := out.WriteHeader(); err != nil {
		return err
	}

	sinkOpts := output.SinkOptions{Chain: chain, Logger: log}
	if opts.OnResultCmd != "" {
		sinkOpts.Hook = hook.NewRunner(opts.OnResultCmd, log)
	}
	if opts.Tree {
		sinkOpts.Tree = output.NewTree()
	}
	var status io.Writer = os.Stderr
	if opts.Quiet {
		status = io.Discard
	}
	con := newConsole(status)
	hooks := scanner.Hooks{Logger: log, Resolver: buildResolver(opts, con)}
	if !opts.Quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		bar := output.NewProgress(os.Stderr, opts.NoColor)
		sinkOpts.Progress = bar
		hooks.Progress = bar
	}
	sink := output.NewSink(out, sinkOpts)
	hooks.Results = sink
	if opts.ParseHTML {
		hooks.Links = crawl.NewExtractor(maxParseBody)
	}

	coord, err := scanner.New(opts, words, hooks)
	if err != nil {
		return err
	}
	con.attach(coord)

	if !opts.Quiet {
		printBanner(os.Stderr, opts, words.Count())
	}

	stopControls := startControls(con, opts.Quiet)
	if err := coord.Start(ctx); err != nil {
		stopControls()
		return err
	}
	sum, err := coord.Wait(ctx)
	stopControls()

	if ctx.Err() != nil {
		// Interrupted: stop the engine and still write what was found.
		coord.Stop()
		sum, _ = coord.Wait(context.Background())
	}
	if err := sink.Finish(os.Stderr); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case sum.Reason == scanner.ReasonETAExceeded:
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[!] Skipping %s: ETA exceeded %s\n", opts.URL, opts.MaxETA)
		}
		return nil
	case err != nil && !errors.Is(err, scanner.ErrStopped):
		return err
	}
	return nil
}

func printBanner(w io.Writer, opts *config.Options, wordCount uint64) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.Faint)
	value := color.New(color.FgHiWhite)
	on, off := color.New(color.FgGreen), color.New(color.FgRed)
	if opts.NoColor {
		for _, c := range []*color.Color{title, label, value, on, off} {
			c.DisableColor()
		}
	}
	flag := func(b bool) string {
		if b {
			return on.Sprint("ON")
		}
		return off.Sprint("OFF")
	}
	row := func(name, v string) {
		fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-14s", name+":"), v)
	}

	fmt.Fprintf(w, "\n  %s %s\n", title.Sprint("dirsweep"), label.Sprint(version.Version))
	fmt.Fprintln(w, label.Sprint("  ──────────────────────────────────────"))
	row("Target", value.Sprint(opts.URL))
	row("Threads", value.Sprint(opts.Threads))
	if opts.BruteForce {
		row("Brute force", value.Sprintf("%q, %d-%d chars (%d words)", opts.Charset, opts.MinLength, opts.MaxLength, wordCount))
	} else {
		row("Wordlist", value.Sprintf("%d words", wordCount))
	}
	if len(opts.Extensions) > 0 {
		row("Extensions", value.Sprint(strings.Join(opts.Extensions, ", ")))
	}
	row("Recursive", flag(opts.Recursive))
	row("Parse HTML", flag(opts.ParseHTML))
	if opts.RateLimit > 0 {
		row("Rate limit", value.Sprintf("%d req/s", opts.RateLimit))
	}
	if !opts.Quiet && term.IsTerminal(int(os.Stdin.Fd())) {
		row("Keys", label.Sprint("enter/space pause, s skip dir, +/- workers, </> rate, u unlimited"))
	}
	fmt.Fprintln(w, label.Sprint("  ──────────────────────────────────────"))
	fmt.Fprintln(w)
}
