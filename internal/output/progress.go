package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Progress renders monitor snapshots as a terminal progress bar. It
// implements scanner.ProgressSink.
type Progress struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	total   int64
	color   bool
	stopped bool
}

// NewProgress creates a progress bar writing to w (normally stderr).
func NewProgress(w io.Writer, noColor bool) *Progress {
	bar := progressbar.NewOptions64(1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(!noColor),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Progress{bar: bar, total: 1, color: !noColor}
}

// Progress updates the bar from a snapshot. The bar's maximum follows the
// snapshot total, which grows as directories are discovered.
func (p *Progress) Progress(s scanner.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if total := max(s.Total, s.Completed, 1); total != p.total {
		p.total = total
		p.bar.ChangeMax64(total)
	}
	p.bar.Describe(p.describe(s))
	_ = p.bar.Set64(s.Completed)
}

func (p *Progress) describe(s scanner.Snapshot) string {
	state := fmt.Sprintf("%.0f req/s ETA %s", s.SmoothedRate, s.ETAText)
	if s.Paused {
		state = "PAUSED"
	}
	dir := s.CurrentDir
	if dir == "" {
		dir = "-"
	}
	if p.color {
		return fmt.Sprintf("[cyan]%s[reset] %s", dir, state)
	}
	return dir + " " + state
}

// Clear erases the bar so a line can be printed; the next snapshot redraws it.
func (p *Progress) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		_ = p.bar.Clear()
	}
}

// Stop removes the bar for good.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	_ = p.bar.Clear()
}
