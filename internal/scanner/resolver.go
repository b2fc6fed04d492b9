package scanner

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"
)

// RegexRegistry is the append-only list of accepted fail-case regexes. It is
// shared by every base case of a scan.
type RegexRegistry struct {
	mu   sync.RWMutex
	list []*regexp.Regexp
}

// NewRegexRegistry compiles and registers the given patterns.
func NewRegexRegistry(patterns ...string) (*RegexRegistry, error) {
	r := &RegexRegistry{}
	for _, p := range patterns {
		if _, err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add compiles pattern and appends it unless an identical pattern is already
// registered. The registered regex is returned either way.
func (r *RegexRegistry) Add(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid fail-case regex %q: %w", pattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.list {
		if have.String() == re.String() {
			return have, nil
		}
	}
	r.list = append(r.list, re)
	return re, nil
}

// MatchAll returns the first registered regex that matches every text, or
// nil.
func (r *RegexRegistry) MatchAll(texts ...string) *regexp.Regexp {
	r.mu.RLock()
	defer r.mu.RUnlock()
next:
	for _, re := range r.list {
		for _, t := range texts {
			if !re.MatchString(t) {
				continue next
			}
		}
		return re
	}
	return nil
}

// Patterns returns the registered patterns in registration order.
func (r *RegexRegistry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.list))
	for i, re := range r.list {
		out[i] = re.String()
	}
	return out
}

// Len returns the number of registered regexes.
func (r *RegexRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// StaticResolver answers every ambiguity with the same pattern.
type StaticResolver string

func (s StaticResolver) Resolve(_ context.Context, _ Ambiguity) (string, error) {
	if s == "" {
		return "", ErrNoResolution
	}
	return string(s), nil
}

// AutoResolver is the headless default. It builds a regex from the longest
// prefix and suffix the three bodies share, with the varying middle as a
// wildcard.
type AutoResolver struct {
	// MaxAnchor caps the length of the prefix and suffix kept in the
	// pattern. Zero means 256.
	MaxAnchor int
}

func (a AutoResolver) Resolve(_ context.Context, amb Ambiguity) (string, error) {
	limit := a.MaxAnchor
	if limit <= 0 {
		limit = 256
	}
	prefix := commonPrefix(amb.Bodies[:])
	suffix := commonSuffix(amb.Bodies[:], len(prefix))
	if len(prefix) > limit {
		prefix = trimInvalidTail(prefix[len(prefix)-limit:], true)
	}
	if len(suffix) > limit {
		suffix = trimInvalidTail(suffix[:limit], false)
	}
	if prefix == "" && suffix == "" {
		return "", fmt.Errorf("%w: fail probes for %s share no content", ErrNoResolution, amb.URL)
	}
	return "(?s)" + regexp.QuoteMeta(prefix) + ".*" + regexp.QuoteMeta(suffix), nil
}

// ResolverChain asks each resolver in turn and returns the first pattern that
// compiles and matches all three fail responses.
type ResolverChain []AmbiguityResolver

func (c ResolverChain) Resolve(ctx context.Context, amb Ambiguity) (string, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		pattern, err := r.Resolve(ctx, amb)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		ok := true
		for _, raw := range amb.Raw {
			if !re.MatchString(raw) {
				ok = false
				break
			}
		}
		if ok {
			return pattern, nil
		}
	}
	return "", ErrNoResolution
}

func commonPrefix(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	p := ss[0]
	for _, s := range ss[1:] {
		n := 0
		for n < len(p) && n < len(s) && p[n] == s[n] {
			n++
		}
		p = p[:n]
	}
	return trimInvalidTail(p, false)
}

// commonSuffix returns the longest shared suffix that does not overlap the
// first skip bytes of any string.
func commonSuffix(ss []string, skip int) string {
	if len(ss) == 0 {
		return ""
	}
	s0 := ss[0][skip:]
	n := len(s0)
	for _, s := range ss[1:] {
		s = s[skip:]
		m := 0
		for m < n && m < len(s) && s0[len(s0)-1-m] == s[len(s)-1-m] {
			m++
		}
		n = m
	}
	return trimInvalidTail(s0[len(s0)-n:], true)
}

// trimInvalidTail drops bytes of a split multi-byte rune from the end of s,
// or from its start when front is set.
func trimInvalidTail(s string, front bool) string {
	for s != "" && !utf8.ValidString(s) {
		if front {
			s = s[1:]
		} else {
			s = s[:len(s)-1]
		}
	}
	return s
}
