package scanner

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// addWorker starts one probe worker on the pool.
func (c *Coordinator) addWorker() error {
	ctx := c.ctx
	wctx, cancel := context.WithCancel(ctx)

	c.workersMu.Lock()
	id := c.nextID
	c.nextID++
	c.workers[id] = cancel
	c.workersMu.Unlock()

	c.wg.Add(1)
	err := c.pool.Submit(func() {
		defer c.wg.Done()
		defer c.retire(id)
		c.work(ctx, wctx)
	})
	if err != nil {
		c.wg.Done()
		c.retire(id)
		return fmt.Errorf("submitting worker: %w", err)
	}
	return nil
}

func (c *Coordinator) retire(id int) {
	c.workersMu.Lock()
	cancel, ok := c.workers[id]
	delete(c.workers, id)
	c.workersMu.Unlock()
	if ok {
		cancel()
	}
}

// Workers returns the number of active probe workers.
func (c *Coordinator) Workers() int {
	c.workersMu.Lock()
	defer c.workersMu.Unlock()
	return len(c.workers)
}

// Resize adds delta workers, or retires -delta workers after their current
// probe. Retiring as many workers as are running, or more, is refused and
// reports false. It holds the scan lock so a concurrent stop cannot release
// the pool underneath it.
func (c *Coordinator) Resize(delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delta == 0 || !c.Running() {
		return false
	}
	if delta > 0 {
		c.pool.Tune(c.pool.Cap() + delta)
		for range delta {
			if err := c.addWorker(); err != nil {
				c.log.WithError(err).Warn("could not add worker")
				return false
			}
		}
		c.log.WithField("workers", c.Workers()).Info("workers added")
		return true
	}

	n := -delta
	c.workersMu.Lock()
	if n >= len(c.workers) {
		c.workersMu.Unlock()
		return false
	}
	ids := slices.Sorted(maps.Keys(c.workers))
	for _, id := range ids[len(ids)-n:] {
		c.workers[id]()
		delete(c.workers, id)
	}
	left := len(c.workers)
	c.workersMu.Unlock()

	c.pool.Tune(max(c.pool.Cap()-n, 1))
	c.log.WithField("workers", left).Info("workers retired")
	return true
}

// work is the probe worker loop. It exits when wctx is done, which happens on
// stop or when the worker is retired. Probes run under the scan context ctx.
func (c *Coordinator) work(ctx, wctx context.Context) {
	for {
		if wctx.Err() != nil {
			return
		}
		if err := c.pauser.Wait(wctx); err != nil {
			return
		}
		p, err := c.workQ.Take(wctx)
		if err != nil {
			return
		}
		// The scan may have been paused while this worker sat in Take.
		if err := c.pauser.Wait(wctx); err != nil {
			c.requeue(ctx, p)
			return
		}
		c.probe(ctx, p)
		c.counters.Completed.Add(1)
		c.finishWork(1)
	}
}

// requeue returns a probe taken by a worker that was retired before running
// it. On stop the queues are discarded, so nothing is put back.
func (c *Coordinator) requeue(ctx context.Context, p *ProbeRequest) {
	if ctx.Err() == nil {
		_ = c.workQ.Put(ctx, p)
	}
}

// probe executes p and emits its outcome. Results arriving after stop are
// dropped.
func (c *Coordinator) probe(ctx context.Context, p *ProbeRequest) {
	bc, err := c.bases.Get(ctx, p.BaseKey)
	if err != nil {
		if ctx.Err() == nil {
			c.ReportError(&ErrorResult{Method: p.Method, URL: p.URL, Reason: ReasonBaseCase, Err: err})
		}
		return
	}

	method := p.Method
	if method == http.MethodHead && (bc.NeedsBody() || c.opts.ContentAnalysis || c.headBroken.Load()) {
		method = http.MethodGet
	}

	resp, err := c.fetch.Do(ctx, method, p.URL)
	if err == nil && method == http.MethodHead &&
		(resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		if c.headBroken.CompareAndSwap(false, true) {
			c.log.WithField("status", resp.StatusCode).Info("HEAD not supported, switching to GET")
		}
		method = http.MethodGet
		resp, err = c.fetch.Do(ctx, method, p.URL)
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.throttle.RecordError()
		c.ReportError(&ErrorResult{Method: method, URL: p.URL, Reason: categorize(err), Err: err})
		return
	}
	c.throttle.RecordStatus(resp.StatusCode)

	found, cleaned := c.classifier.Classify(resp, bc, method)
	if found && method == http.MethodHead {
		get, err := c.fetch.Do(ctx, http.MethodGet, p.URL)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			c.ReportError(&ErrorResult{Method: http.MethodGet, URL: p.URL, Reason: categorize(err), Err: err})
		default:
			if get.StatusCode != resp.StatusCode {
				c.ReportError(&ErrorResult{
					Method: http.MethodGet,
					URL:    p.URL,
					Reason: ReasonMethodMismatch,
					Err:    fmt.Errorf("HEAD returned %d, GET returned %d", resp.StatusCode, get.StatusCode),
				})
				found = StatusFound(get.StatusCode, bc.FailCode)
			}
			resp, method = get, http.MethodGet
		}
	}
	if !found {
		return
	}

	res := &FoundResult{
		Method:        method,
		URL:           p.URL,
		Path:          p.Path,
		Item:          p.Item,
		Ext:           p.Ext,
		IsDir:         p.IsDir,
		Depth:         p.Depth,
		Source:        p.Source,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		ContentType:   resp.ContentType,
		Body:          resp.Body,
		BodyHash:      resp.BodyHash,
		WordCount:     resp.WordCount,
		LineCount:     resp.LineCount,
		RedirectURL:   resp.RedirectURL,
		Duration:      resp.Duration,
		Cleaned:       cleaned,
		BaseCase:      bc,
	}
	if p.IsDir {
		c.DirectoryFound(res)
	} else {
		c.FileFound(res)
	}

	if c.opts.ParseHTML && method == http.MethodGet && len(resp.Body) > 0 && isTextual(resp.ContentType) {
		c.AddHTMLLinkToParseQueue(ParseItem{
			URL:         p.URL,
			Body:        resp.Body,
			ContentType: resp.ContentType,
			Dir:         p.Dir,
			Depth:       p.Depth,
		})
	}
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return true
	}
	for _, t := range []string{"text/", "html", "xml", "javascript", "json"} {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}
