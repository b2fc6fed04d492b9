package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/scanner"
)

// excerptLen caps how much of each not-found page the prompt shows.
const excerptLen = 100

// promptResolver asks the operator for a regex when a directory's not-found
// pages differ between requests.
type promptResolver struct {
	con *console
	out io.Writer
}

func (p promptResolver) Resolve(ctx context.Context, amb scanner.Ambiguity) (string, error) {
	if !p.con.live.Load() {
		return "", fmt.Errorf("%w: %w", scanner.ErrNoResolution, errNoTerminal)
	}
	fmt.Fprintf(p.out, "\r\033[K[?] Not-found pages for %s differ between requests:\n", amb.URL)
	for i, body := range amb.Bodies {
		fmt.Fprintf(p.out, "    %d: %s\n", i+1, excerpt(body, excerptLen))
	}
	fmt.Fprint(p.out, "[?] Regex matching all three (empty to skip): ")

	line, err := p.con.readLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", scanner.ErrNoResolution, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", scanner.ErrNoResolution
	}
	return line, nil
}

// excerpt collapses whitespace in s and shortens it to n runes.
func excerpt(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// buildResolver chains the ways an inconsistent not-found page is settled: a
// configured default regex, then the operator when asked to prompt, then the
// automatic derivation. It returns nil when none is enabled.
func buildResolver(opts *config.Options, con *console) scanner.AmbiguityResolver {
	var chain scanner.ResolverChain
	if opts.FailRegexDefault != "" {
		chain = append(chain, scanner.StaticResolver(opts.FailRegexDefault))
	}
	if opts.AskRegex && !opts.Quiet && con != nil {
		chain = append(chain, promptResolver{con: con, out: con.out})
	}
	if !opts.DisableAutoRegex {
		chain = append(chain, scanner.AutoResolver{})
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}
