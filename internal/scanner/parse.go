package scanner

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// dispatchParse hands queued parse items to the parse pool so link
// extraction never runs on a probe worker.
func (c *Coordinator) dispatchParse(ctx context.Context) {
	for {
		item, err := c.parseQ.Take(ctx)
		if err != nil {
			return
		}
		c.wg.Add(1)
		if err := c.parsePool.Invoke(item); err != nil {
			c.wg.Done()
			c.finishWork(1)
		}
	}
}

// parseOne runs on the parse pool.
func (c *Coordinator) parseOne(arg any) {
	defer c.wg.Done()
	defer c.finishWork(1)

	item := arg.(ParseItem)
	ctx := c.ctx
	for link := range c.links.Links(item.Body, item.ContentType, item.URL) {
		if ctx.Err() != nil {
			return
		}
		c.injectLink(ctx, link, item)
	}
}

// injectLink turns one extracted link into probes: the link itself and every
// directory above it that has not been seen yet.
func (c *Coordinator) injectLink(ctx context.Context, link string, item ParseItem) {
	page, err := url.Parse(item.URL)
	if err != nil {
		return
	}
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return
	}
	u := page.ResolveReference(ref)
	if (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Host, c.base.Host) {
		return
	}

	p := u.Path
	if p == "" {
		return
	}
	isDir := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if isDir && p != "/" {
		p += "/"
	}
	if !c.inScope(p) {
		return
	}

	dir := normalizeDir(path.Dir(strings.TrimSuffix(p, "/")))
	for _, d := range parentDirs(c.startDir, dir) {
		if !c.dirSeen(d) {
			c.queueLink(ctx, d, true, item.Depth)
		}
	}
	if isDir {
		if p != "/" && !c.dirSeen(p) {
			c.queueLink(ctx, p, true, item.Depth)
		}
		return
	}
	c.queueLink(ctx, p, false, item.Depth)
}

// parentDirs lists dir and its ancestors below (not including) root, from
// the shallowest down.
func parentDirs(root, dir string) []string {
	var out []string
	for d := dir; d != "/" && d != root && strings.HasPrefix(d, root); d = normalizeDir(path.Dir(strings.TrimSuffix(d, "/"))) {
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// queueLink puts a GET probe for p on the work queue unless p was already
// queued from a link.
func (c *Coordinator) queueLink(ctx context.Context, p string, isDir bool, depth int) {
	key := c.dirKey(p)
	c.seenMu.Lock()
	if _, ok := c.seenLink[key]; ok {
		c.seenMu.Unlock()
		return
	}
	c.seenLink[key] = struct{}{}
	c.seenMu.Unlock()

	dir := p
	item := ""
	ext := ""
	if !isDir {
		dir = normalizeDir(path.Dir(p))
		item = path.Base(p)
		ext = strings.TrimPrefix(path.Ext(item), ".")
	} else {
		dir = normalizeDir(path.Dir(strings.TrimSuffix(p, "/")))
		item = path.Base(strings.TrimSuffix(p, "/"))
	}

	probe := &ProbeRequest{
		URL:     c.urlFor(p),
		Path:    p,
		Method:  http.MethodGet,
		BaseKey: c.baseKey(dir, isDir, ext),
		IsDir:   isDir,
		Item:    item,
		Ext:     ext,
		Dir:     dir,
		Depth:   depth,
		Source:  SourceLink,
	}
	c.counters.ParsedLinks.Add(1)
	c.outstanding.Add(1)
	if err := c.workQ.Put(ctx, probe); err != nil {
		c.outstanding.Add(-1)
	}
}
