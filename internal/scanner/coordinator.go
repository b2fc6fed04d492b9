package scanner

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// Summary reasons.
const (
	ReasonCompleted   = "completed"
	ReasonStopped     = "stopped"
	ReasonETAExceeded = "eta-exceeded"
)

const (
	parseQueueSize = 1000
	workPerThread  = 2
)

// Hooks are the collaborators a Coordinator talks to. Every field is
// optional.
type Hooks struct {
	Results  ResultSink
	Progress ProgressSink
	Resolver AmbiguityResolver // nil = AutoResolver unless auto regexes are disabled
	Links    LinkExtractor     // nil disables link parsing
	Fetcher  Fetcher           // nil = a Requester built from the options
	Registry *RegexRegistry    // nil = built from Options.FailRegexes
	Logger   logrus.FieldLogger
}

// ParseItem is a response body queued for link extraction.
type ParseItem struct {
	URL         string // URL the body was fetched from
	Body        []byte
	ContentType string
	Dir         string // directory of the originating probe
	Depth       int
}

// Coordinator owns the queues, workers and counters of one scan target. A
// Coordinator may run several scans in sequence but only one at a time.
type Coordinator struct {
	opts     *config.Options
	words    WordSource
	brute    bool
	exts     []ExtensionSpec
	results  ResultSink
	progress ProgressSink
	links    LinkExtractor
	log      logrus.FieldLogger

	requester Fetcher
	registry  *RegexRegistry
	resolver  AmbiguityResolver
	throttle  *Throttler
	pauser    *Pauser
	counters  Counters

	// Per-scan state, replaced by Start.
	mu          sync.Mutex // serializes Start and finish; guards done and summary
	running     atomic.Bool
	done        chan struct{}
	summary     Summary
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	base        *url.URL
	startDir    string
	started     time.Time
	fetch       Fetcher
	classifier  *Classifier
	bases       *BaseCases
	dirQ        *Queue[*DirectoryTask]
	workQ       *Queue[*ProbeRequest]
	parseQ      *Queue[ParseItem]
	pool        *ants.Pool
	parsePool   *ants.PoolWithFunc
	mon         atomic.Pointer[monitor]
	outstanding atomic.Int64
	headBroken  atomic.Bool
	current     atomic.Pointer[DirectoryTask]
	skip        atomic.Pointer[DirectoryTask]

	seenMu   sync.Mutex
	seenDirs map[string]struct{}
	seenLink map[string]struct{}

	workersMu sync.Mutex
	workers   map[int]context.CancelFunc
	nextID    int
}

// New builds a Coordinator for opts.URL. opts must already be validated.
func New(opts *config.Options, words WordSource, hooks Hooks) (*Coordinator, error) {
	c := &Coordinator{
		opts:     opts,
		words:    words,
		brute:    opts.BruteForce,
		exts:     ExtensionSet(opts.Extensions, opts.BlankExtension),
		results:  hooks.Results,
		progress: hooks.Progress,
		links:    hooks.Links,
		log:      hooks.Logger,
		registry: hooks.Registry,
		resolver: hooks.Resolver,
		pauser:   NewPauser(),
		done:     make(chan struct{}),
	}
	close(c.done)

	if c.results == nil {
		c.results = nopResults{}
	}
	if c.progress == nil {
		c.progress = nopProgress{}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.registry == nil {
		reg, err := NewRegexRegistry(opts.FailRegexes...)
		if err != nil {
			return nil, err
		}
		c.registry = reg
	}
	if c.resolver == nil && !opts.DisableAutoRegex {
		c.resolver = AutoResolver{}
	}

	c.requester = hooks.Fetcher
	if c.requester == nil {
		req, err := NewRequester(opts)
		if err != nil {
			return nil, err
		}
		c.requester = req
	}
	c.throttle = NewThrottler(opts.Delay, opts.RateLimit, opts.AdaptiveThrottle, c.log)
	return c, nil
}

// parseTarget splits the start URL into the base URL and the start directory.
func parseTarget(raw string) (*url.URL, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("%w: missing host in %q", ErrInvalidTarget, raw)
	}
	return u, normalizeDir(u.Path), nil
}

// Start launches the scan. It fails with ErrInvalidTarget before anything is
// launched, or ErrAlreadyRunning if a scan is in progress.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return ErrAlreadyRunning
	}
	base, startDir, err := parseTarget(c.opts.URL)
	if err != nil {
		return err
	}

	threads := max(c.opts.Threads, 1)
	pool, err := ants.NewPool(threads)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	parsePool, err := ants.NewPoolWithFunc(max(threads/4, 2), c.parseOne)
	if err != nil {
		pool.Release()
		return fmt.Errorf("creating parse pool: %w", err)
	}

	c.counters.Reset()
	c.outstanding.Store(0)
	c.headBroken.Store(false)
	c.current.Store(nil)
	c.skip.Store(nil)
	c.base = base
	c.startDir = startDir
	c.pool = pool
	c.parsePool = parsePool
	c.dirQ = NewQueue[*DirectoryTask](0)
	c.workQ = NewQueue[*ProbeRequest](threads * workPerThread)
	c.parseQ = NewQueue[ParseItem](parseQueueSize)
	c.seenDirs = make(map[string]struct{})
	c.seenLink = make(map[string]struct{})
	c.workers = make(map[int]context.CancelFunc)
	c.fetch = gatedFetcher{next: c.requester, throttle: c.throttle}
	cleaner := NewCleaner(base.Host)
	c.classifier = &Classifier{Cleaner: cleaner, ContentAnalysis: c.opts.ContentAnalysis}
	c.bases = NewBaseCases(c.fetch, cleaner, c.registry, c.resolver, &c.counters, c.log)
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.summary = Summary{}
	c.started = time.Now()
	mon := newMonitor(c)
	c.mon.Store(mon)

	seed := newDirectoryTask(startDir, c.exts, 0)
	c.markSeen(startDir)
	c.enqueueDir(seed)

	c.running.Store(true)
	c.spawn(c.generate)
	c.spawn(c.dispatchParse)
	c.spawn(mon.run)
	for range threads {
		if err := c.addWorker(); err != nil {
			c.log.WithError(err).Warn("could not start worker")
		}
	}

	c.log.WithFields(logrus.Fields{
		"target":  base.String(),
		"threads": threads,
	}).Info("scan started")
	return nil
}

func (c *Coordinator) spawn(fn func(context.Context)) {
	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
}

// Stop ends the scan, discarding queued work. It is safe to call at any time
// and more than once.
func (c *Coordinator) Stop() {
	c.finish(ReasonStopped)
}

// finish tears the scan down exactly once per Start.
func (c *Coordinator) finish(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	c.cancel()
	c.dirQ.Clear()
	c.workQ.Clear()
	c.parseQ.Clear()
	c.wg.Wait()
	c.pool.Release()
	c.parsePool.Release()

	s := c.snapshotSummary(reason)
	c.counters.Reset()
	c.outstanding.Store(0)
	c.summary = s
	c.log.WithFields(logrus.Fields{
		"reason":    reason,
		"completed": s.Completed,
		"elapsed":   s.Elapsed.Round(time.Millisecond),
	}).Info("scan ended")
	c.results.ScanEnded(s)
	close(c.done)
}

func (c *Coordinator) snapshotSummary(reason string) Summary {
	return Summary{
		Reason:      reason,
		Completed:   c.counters.Completed.Load(),
		DirsFound:   c.counters.DirsFound.Load(),
		DirsQueued:  c.counters.DirsQueued.Load(),
		FilesFound:  c.counters.FilesFound.Load(),
		Errors:      c.counters.Errors.Load(),
		BaseCases:   c.counters.BaseCases.Load(),
		ParsedLinks: c.counters.ParsedLinks.Load(),
		Correction:  c.counters.Correction.Load(),
		Abandoned:   c.counters.Abandoned.Load(),
		Dropped:     c.counters.Dropped.Load(),
		Elapsed:     time.Since(c.started),
	}
}

// Wait blocks until the current scan ends or ctx is done. A scan that did
// not run to completion yields an error wrapping ErrStopped.
func (c *Coordinator) Wait(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}

	c.mu.Lock()
	s := c.summary
	c.mu.Unlock()
	if s.Reason != ReasonCompleted {
		return s, fmt.Errorf("%w: %s", ErrStopped, s.Reason)
	}
	return s, nil
}

// Running reports whether a scan is in progress.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// finishWork marks n units of outstanding work done. The scan completes when
// nothing is outstanding.
func (c *Coordinator) finishWork(n int64) {
	if n == 0 {
		return
	}
	if c.outstanding.Add(-n) == 0 {
		go c.finish(ReasonCompleted)
	}
}

// Pause blocks workers before their next probe. Requests in flight finish.
func (c *Coordinator) Pause() { c.pauser.Pause() }

// Resume releases paused workers.
func (c *Coordinator) Resume() { c.pauser.Resume() }

// TogglePause flips the pause state and returns true if now paused.
func (c *Coordinator) TogglePause() bool { return c.pauser.Toggle() }

// Paused reports whether the scan is paused.
func (c *Coordinator) Paused() bool { return c.pauser.IsPaused() }

// SetRateLimit changes the requests-per-second ceiling; 0 removes it.
func (c *Coordinator) SetRateLimit(rps int) { c.throttle.SetRate(rps) }

// RateLimit returns the requests-per-second ceiling, 0 when unlimited.
func (c *Coordinator) RateLimit() int { return c.throttle.Rate() }

// PausedFor returns how long the current pause has lasted, or 0 when running.
func (c *Coordinator) PausedFor() time.Duration { return c.pauser.CurrentPauseDuration() }

// Counters exposes the live scan counters.
func (c *Coordinator) Counters() *Counters { return &c.counters }

// CurrentDirectory returns the directory the generator is expanding, or "".
func (c *Coordinator) CurrentDirectory() string {
	if t := c.current.Load(); t != nil {
		return t.Path
	}
	return ""
}

// dirKey is the de-duplication key of a directory path.
func (c *Coordinator) dirKey(p string) string {
	if c.opts.CaseInsensitive {
		return strings.ToLower(p)
	}
	return p
}

// markSeen records a directory and reports whether it was new.
func (c *Coordinator) markSeen(dir string) bool {
	key := c.dirKey(dir)
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	if _, ok := c.seenDirs[key]; ok {
		return false
	}
	c.seenDirs[key] = struct{}{}
	return true
}

func (c *Coordinator) dirSeen(dir string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	_, ok := c.seenDirs[c.dirKey(dir)]
	return ok
}

// inScope applies the "only under start point" rule.
func (c *Coordinator) inScope(p string) bool {
	if !c.opts.OnlyUnderStart {
		return true
	}
	if c.opts.CaseInsensitive {
		return strings.HasPrefix(strings.ToLower(p), strings.ToLower(c.startDir))
	}
	return strings.HasPrefix(p, c.startDir)
}

func (c *Coordinator) urlFor(p string) string {
	u := *c.base
	u.Path = p
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// enqueueDir accounts for task and puts it on the directory queue, which
// never blocks.
func (c *Coordinator) enqueueDir(task *DirectoryTask) {
	c.outstanding.Add(1)
	c.counters.DirsQueued.Add(1)
	c.counters.Expected.Add(c.plannedProbes(task))
	if err := c.dirQ.Put(c.ctx, task); err != nil {
		c.counters.Expected.Add(-c.plannedProbes(task))
		c.outstanding.Add(-1)
	}
}

// DirectoryFound reports a directory and queues it for expansion when
// recursion, scope and depth allow and it has not been queued before. The
// result is forwarded to the sink in every case.
func (c *Coordinator) DirectoryFound(r *FoundResult) {
	c.counters.DirsFound.Add(1)
	c.results.DirectoryFound(r)

	if !c.opts.Recursive || !c.Running() {
		return
	}
	dir := normalizeDir(r.Path)
	depth := r.Depth + 1
	if !c.inScope(dir) {
		return
	}
	if c.opts.MaxDepth > 0 && depth > c.opts.MaxDepth {
		return
	}
	if !c.markSeen(dir) {
		return
	}
	c.log.WithFields(logrus.Fields{"dir": dir, "depth": depth}).Debug("queued directory")
	c.enqueueDir(newDirectoryTask(dir, c.exts, depth))
}

// FileFound forwards a found file to the sink.
func (c *Coordinator) FileFound(r *FoundResult) {
	c.counters.FilesFound.Add(1)
	c.results.FileFound(r)
}

// ReportError forwards a probe failure to the sink. It never stops the scan.
func (c *Coordinator) ReportError(e *ErrorResult) {
	c.counters.Errors.Add(1)
	c.log.WithFields(logrus.Fields{"url": e.URL, "reason": e.Reason}).
		WithError(e.Err).Debug("probe failed")
	c.results.Error(e)
}

// SkipCurrentDirectory stops generation of the directory being expanded and
// drops its queued probes. It returns the number of probes removed, which is
// also added to the work-amount correction.
func (c *Coordinator) SkipCurrentDirectory() int {
	task := c.current.Load()
	if task == nil || !c.Running() {
		return 0
	}
	c.skip.Store(task)

	prefix := task.Path
	match := func(p *ProbeRequest) bool { return strings.HasPrefix(p.Path, prefix) }
	if c.opts.CaseInsensitive {
		prefix = strings.ToLower(prefix)
		match = func(p *ProbeRequest) bool { return strings.HasPrefix(strings.ToLower(p.Path), prefix) }
	}
	removed := c.workQ.RemoveIf(match)
	c.counters.Correction.Add(int64(removed))
	c.log.WithFields(logrus.Fields{"dir": task.Path, "removed": removed}).Info("skipping directory")
	c.finishWork(int64(removed))
	return removed
}

// AddHTMLLinkToParseQueue queues a response body for link extraction. Items
// from outside the scan scope are refused, and so are items arriving while
// the parse queue is full: parse workers block on the work queue, so a
// worker blocking here could deadlock the scan.
func (c *Coordinator) AddHTMLLinkToParseQueue(item ParseItem) bool {
	if c.links == nil || !c.Running() {
		return false
	}
	u, err := url.Parse(item.URL)
	if err != nil || !c.inScope(u.Path) {
		return false
	}
	c.outstanding.Add(1)
	if !c.parseQ.TryPut(item) {
		c.outstanding.Add(-1)
		c.counters.Dropped.Add(1)
		c.log.WithField("url", item.URL).Debug("parse queue full, dropping page")
		return false
	}
	return true
}

// Snapshot returns the latest progress figures.
func (c *Coordinator) Snapshot() Snapshot {
	mon := c.mon.Load()
	if mon == nil {
		return Snapshot{ETA: -1, ETAText: FormatETA(-1)}
	}
	return mon.latest()
}
