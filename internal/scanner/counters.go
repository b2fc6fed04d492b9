package scanner

import "sync/atomic"

// Counters are the scan-wide tallies. Every field is mutated by many workers
// and read by the monitor, so all access is atomic.
type Counters struct {
	Completed   atomic.Int64 // probes finished, including base case probes
	DirsFound   atomic.Int64 // directories reported found
	DirsQueued  atomic.Int64 // directory tasks enqueued, seed included
	FilesFound  atomic.Int64
	Errors      atomic.Int64
	BaseCases   atomic.Int64 // fail probes issued
	ParsedLinks atomic.Int64 // probes queued from link extraction
	Correction  atomic.Int64 // queued probes removed before running
	Abandoned   atomic.Int64 // probes never generated because a directory was skipped
	Expected    atomic.Int64 // probes planned for every queued directory
	Dropped     atomic.Int64 // pages not parsed because the parse queue was full
}

// Total is the current estimate of probes the scan will issue.
func (c *Counters) Total() int64 {
	t := c.Expected.Load() + c.BaseCases.Load() + c.ParsedLinks.Load() -
		c.Correction.Load() - c.Abandoned.Load()
	if t < 0 {
		return 0
	}
	return t
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	for _, v := range []*atomic.Int64{
		&c.Completed, &c.DirsFound, &c.DirsQueued, &c.FilesFound, &c.Errors, &c.BaseCases,
		&c.ParsedLinks, &c.Correction, &c.Abandoned, &c.Expected, &c.Dropped,
	} {
		v.Store(0)
	}
}
