package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/singleflight"
)

// failToken is the path segment used for fail probes. It must never exist on
// a real server.
const failToken = "dsw-d0es-n0t-3xist-8c1f42"

// Mode selects how responses are compared against a base case.
type Mode int

const (
	ModeStatus  Mode = iota // compare status codes only
	ModeContent             // compare cleaned bodies
	ModeRegex               // match a fail-case regex against the raw response
)

func (m Mode) String() string {
	switch m {
	case ModeContent:
		return "content"
	case ModeRegex:
		return "regex"
	default:
		return "status"
	}
}

// BaseCaseKey identifies one base case: the canonical fail-probe URL plus
// whether directories or files (and which extension) are being tested.
type BaseCaseKey struct {
	URL   string
	IsDir bool
	Ext   string
}

func (k BaseCaseKey) String() string {
	kind := "file"
	if k.IsDir {
		kind = "dir"
	}
	return kind + "|" + k.Ext + "|" + k.URL
}

// BaseCase is the expected "not found" response for a key. It is immutable
// once published.
type BaseCase struct {
	Key         BaseCaseKey
	FailCode    int
	Body        string // cleaned body of the first fail probe
	Mode        Mode
	Regex       *regexp.Regexp // set in ModeRegex
	Fingerprint uint32         // murmur3 of the lower-cased cleaned body
}

// NeedsBody reports whether classification against b requires a GET.
func (b *BaseCase) NeedsBody() bool {
	return b.Mode != ModeStatus
}

// failURL builds the fail-probe URL for a directory of base.
func failURL(base *url.URL, dir string, isDir bool, ext string) string {
	p := normalizeDir(dir) + failToken
	switch {
	case isDir:
		p += "/"
	case ext != "":
		p += "." + ext
	}
	u := *base
	u.Path = p
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// BaseCases produces and caches base cases. Each key is generated at most
// once at a time; callers asking for a key under generation wait for and
// share the result. A key whose generation failed stays failed for the rest
// of the scan, unless the failure came from the scan being stopped.
type BaseCases struct {
	fetch    Fetcher
	cleaner  *Cleaner
	registry *RegexRegistry
	resolver AmbiguityResolver
	counters *Counters
	log      logrus.FieldLogger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[BaseCaseKey]*BaseCase
	// failed holds keys whose fail probes errored or could not be resolved,
	// so their probes are reported instead of re-sending fail probes.
	failed map[BaseCaseKey]error

	resolveMu   sync.Mutex // one escalation at a time
	generations atomic.Int64
}

// NewBaseCases returns an empty base-case cache. resolver may be nil, in which
// case inconsistent fail probes cannot be resolved.
func NewBaseCases(fetch Fetcher, cleaner *Cleaner, registry *RegexRegistry, resolver AmbiguityResolver, counters *Counters, log logrus.FieldLogger) *BaseCases {
	if registry == nil {
		registry = &RegexRegistry{}
	}
	if counters == nil {
		counters = &Counters{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BaseCases{
		fetch:      fetch,
		cleaner:    cleaner,
		registry:   registry,
		resolver:   resolver,
		counters:   counters,
		log:        log,
		cache:      make(map[BaseCaseKey]*BaseCase),
		failed:     make(map[BaseCaseKey]error),
	}
}

// Get returns the base case for key, generating it on first use.
func (b *BaseCases) Get(ctx context.Context, key BaseCaseKey) (*BaseCase, error) {
	b.mu.RLock()
	bc, ok := b.cache[key]
	ferr := b.failed[key]
	b.mu.RUnlock()
	if ok {
		return bc, nil
	}
	if ferr != nil {
		return nil, ferr
	}

	v, err, _ := b.group.Do(key.String(), func() (any, error) {
		b.mu.RLock()
		bc, ok := b.cache[key]
		ferr := b.failed[key]
		b.mu.RUnlock()
		if ok {
			return bc, nil
		}
		if ferr != nil {
			return nil, ferr
		}

		bc, err := b.generate(ctx, key)
		if err != nil {
			if ctx.Err() == nil {
				b.mu.Lock()
				b.failed[key] = err
				b.mu.Unlock()
				b.log.WithField("url", key.URL).WithError(err).Warn("base case failed, skipping its probes")
			}
			return nil, err
		}
		b.mu.Lock()
		b.cache[key] = bc
		b.mu.Unlock()
		return bc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BaseCase), nil
}

// Len returns the number of cached base cases.
func (b *BaseCases) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cache)
}

func (b *BaseCases) probe(ctx context.Context, rawURL string) (*Response, error) {
	b.counters.BaseCases.Add(1)
	b.counters.Completed.Add(1)
	return b.fetch.Do(ctx, http.MethodGet, rawURL)
}

func (b *BaseCases) generate(ctx context.Context, key BaseCaseKey) (*BaseCase, error) {
	b.generations.Add(1)
	log := b.log.WithFields(logrus.Fields{"url": key.URL, "dir": key.IsDir, "ext": key.Ext})

	first, err := b.probe(ctx, key.URL)
	if err != nil {
		return nil, fmt.Errorf("base case %s: %w", key.URL, err)
	}
	body := b.cleaner.Clean(string(first.Body), key.URL)
	bc := &BaseCase{
		Key:         key,
		FailCode:    first.StatusCode,
		Body:        body,
		Mode:        ModeStatus,
		Fingerprint: murmur3.Sum32([]byte(strings.ToLower(body))),
	}
	if first.StatusCode != http.StatusOK {
		log.WithField("code", bc.FailCode).Debug("base case uses status comparison")
		return bc, nil
	}

	resps := [3]*Response{first}
	for i := 1; i < len(resps); i++ {
		resps[i], err = b.probe(ctx, key.URL)
		if err != nil {
			return nil, fmt.Errorf("base case %s: %w", key.URL, err)
		}
	}

	consistent := true
	for _, r := range resps[1:] {
		if r.StatusCode != first.StatusCode ||
			!strings.EqualFold(b.cleaner.Clean(string(r.Body), key.URL), body) {
			consistent = false
			break
		}
	}
	if consistent {
		bc.Mode = ModeContent
		log.WithField("fingerprint", bc.Fingerprint).Debug("base case uses content comparison")
		return bc, nil
	}

	amb := Ambiguity{URL: key.URL}
	for i, r := range resps {
		amb.Bodies[i] = string(r.Body)
		amb.Raw[i] = r.Raw()
	}
	re, err := b.resolve(ctx, amb)
	if err != nil {
		return nil, fmt.Errorf("base case %s: %w", key.URL, err)
	}
	bc.Mode = ModeRegex
	bc.Regex = re
	log.WithField("regex", re.String()).Info("base case uses fail-case regex")
	return bc, nil
}

// resolve finds a regex matching all three fail responses, asking the
// resolver only when no registered regex does.
func (b *BaseCases) resolve(ctx context.Context, amb Ambiguity) (*regexp.Regexp, error) {
	if re := b.registry.MatchAll(amb.Raw[:]...); re != nil {
		return re, nil
	}

	b.resolveMu.Lock()
	defer b.resolveMu.Unlock()

	// Another key may have registered a matching regex while we waited.
	if re := b.registry.MatchAll(amb.Raw[:]...); re != nil {
		return re, nil
	}
	if b.resolver == nil {
		return nil, ErrNoResolution
	}
	pattern, err := b.resolver.Resolve(ctx, amb)
	if err != nil {
		return nil, err
	}
	re, err := b.registry.Add(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResolution, err)
	}
	for _, raw := range amb.Raw {
		if !re.MatchString(raw) {
			b.log.WithFields(logrus.Fields{"url": amb.URL, "regex": pattern}).
				Warn("fail-case regex does not match every fail probe")
			break
		}
	}
	return re, nil
}
