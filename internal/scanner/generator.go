package scanner

import (
	"context"
	"iter"
	"math"
	"net/http"
	"strings"
)

// extPlaceholder in a word is replaced by each extension instead of having
// the extension appended.
const extPlaceholder = "%EXT%"

// plannedProbes is the number of probes expand will produce for task, used to
// size the progress estimate before the directory is generated.
func (c *Coordinator) plannedProbes(task *DirectoryTask) int64 {
	per := int64(0)
	if c.opts.ScanDirs {
		per++
	}
	if c.opts.ScanFiles {
		per += int64(enabledExtensions(task.Exts))
	}
	words := min(c.words.Count(), uint64(math.MaxInt64/1024))
	return int64(words) * per
}

// probes lazily enumerates the probe set of task.
func (c *Coordinator) probes(task *DirectoryTask) iter.Seq[*ProbeRequest] {
	method := http.MethodGet
	if c.opts.AutoMethod {
		method = http.MethodHead
	}
	return func(yield func(*ProbeRequest) bool) {
		for word := range c.words.Words() {
			word = strings.TrimPrefix(word, "/")
			if word == "" {
				continue
			}
			if strings.Contains(word, extPlaceholder) {
				if !c.opts.ScanFiles {
					continue
				}
				for _, e := range task.Exts {
					if !e.Enabled || e.Name == BlankExtension {
						continue
					}
					item := strings.ReplaceAll(word, extPlaceholder, e.Name)
					if !yield(c.newProbe(task, item, e.Name, false, method)) {
						return
					}
				}
				continue
			}
			if c.opts.ScanDirs {
				if !yield(c.newProbe(task, strings.TrimSuffix(word, "/"), "", true, method)) {
					return
				}
			}
			if !c.opts.ScanFiles || strings.HasSuffix(word, "/") {
				continue
			}
			for _, e := range task.Exts {
				if !e.Enabled {
					continue
				}
				item := word
				if e.Name != BlankExtension {
					item += "." + e.Name
				}
				if !yield(c.newProbe(task, item, e.Name, false, method)) {
					return
				}
			}
		}
	}
}

func (c *Coordinator) newProbe(task *DirectoryTask, item, ext string, isDir bool, method string) *ProbeRequest {
	p := task.Path + item
	if isDir {
		p += "/"
	}
	source := SourceWordlist
	if c.brute {
		source = SourceBrute
	}
	return &ProbeRequest{
		URL:     c.urlFor(p),
		Path:    p,
		Method:  method,
		BaseKey: c.baseKey(task.Path, isDir, ext),
		IsDir:   isDir,
		Item:    item,
		Ext:     ext,
		Dir:     task.Path,
		Depth:   task.Depth,
		Source:  source,
	}
}

func (c *Coordinator) baseKey(dir string, isDir bool, ext string) BaseCaseKey {
	if isDir {
		ext = ""
	}
	return BaseCaseKey{URL: failURL(c.base, dir, isDir, ext), IsDir: isDir, Ext: ext}
}

// generate drains the directory queue, expanding each task into the work
// queue. It returns when ctx is done.
func (c *Coordinator) generate(ctx context.Context) {
	for {
		task, err := c.dirQ.Take(ctx)
		if err != nil {
			return
		}
		c.expand(ctx, task)
		c.finishWork(1)
	}
}

// expand feeds every probe of task into the work queue, blocking while the
// queue is full. A skip request for task ends it early; the probes it never
// produced are recorded as abandoned.
func (c *Coordinator) expand(ctx context.Context, task *DirectoryTask) {
	c.current.Store(task)
	planned := c.plannedProbes(task)
	produced := int64(0)
	log := c.log.WithField("dir", task.Path)
	log.Debug("expanding directory")

	skipped := func() bool { return c.skip.Load() == task }
	abandon := func() {
		c.counters.Abandoned.Add(max(planned-produced, 0))
		log.WithField("abandoned", planned-produced).Info("directory skipped")
	}

	for p := range c.probes(task) {
		if ctx.Err() != nil {
			return
		}
		if skipped() {
			abandon()
			return
		}
		c.outstanding.Add(1)
		// A skip arriving while Put waits for room must not let p through.
		ok, err := c.workQ.PutIf(ctx, p, func() bool { return !skipped() })
		if err != nil || !ok {
			c.outstanding.Add(-1)
			if err == nil {
				abandon()
			}
			return
		}
		produced++
	}
	// Reconcile the estimate with what the word source actually produced.
	c.counters.Expected.Add(produced - planned)
}
