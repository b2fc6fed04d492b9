package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTick    = time.Second
	livenessPeriod = 30 * time.Second
	lateTolerance  = 5 * time.Second
	smoothingTicks = 10
	etaWarmupTicks = 5
)

// Snapshot is one progress sample.
type Snapshot struct {
	Elapsed      time.Duration // scan time, pauses excluded
	Completed    int64
	Total        int64 // current estimate of all probes
	Rate         float64
	SmoothedRate float64       // mean rate over the last smoothingTicks ticks
	ETA          time.Duration // -1 when unknown
	ETAText      string
	DirsFound    int64
	FilesFound   int64
	Errors       int64
	BaseCases    int64
	WorkQueue    int
	DirQueue     int
	ParseQueue   int
	Workers      int
	Paused       bool
	CurrentDir   string
}

// FormatETA renders d as HH:MM:SS, as "N Days" beyond a day, or as
// "--:--:--" when d is negative (unknown).
func FormatETA(d time.Duration) string {
	if d < 0 {
		return "--:--:--"
	}
	if d >= 24*time.Hour {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 Day"
		}
		return fmt.Sprintf("%d Days", days)
	}
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// monitor samples the coordinator counters on a fixed tick.
type monitor struct {
	c      *Coordinator
	period time.Duration

	mu            sync.Mutex
	lastTick      time.Time
	lastCompleted int64
	rates         []float64
	ticks         int
	pausedBase    time.Duration
	last          Snapshot
}

func newMonitor(c *Coordinator) *monitor {
	period := c.opts.ProgressTick
	if period <= 0 {
		period = defaultTick
	}
	now := time.Now()
	return &monitor{
		c:          c,
		period:     period,
		lastTick:   now,
		pausedBase: c.pauser.PausedDuration(),
		last:       Snapshot{ETA: -1, ETAText: FormatETA(-1)},
	}
}

func (m *monitor) run(ctx context.Context) {
	tick := time.NewTicker(m.period)
	defer tick.Stop()
	live := time.NewTicker(livenessPeriod)
	defer live.Stop()
	var liveCompleted int64

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			s, ok := m.sample(now)
			if !ok {
				continue
			}
			m.c.progress.Progress(s)
			m.checkETA(s)
		case <-live.C:
			done := m.c.counters.Completed.Load()
			if done == liveCompleted && !m.c.pauser.IsPaused() {
				m.c.log.WithFields(logrus.Fields{
					"period":    livenessPeriod,
					"workers":   m.c.Workers(),
					"workQueue": m.c.workQ.Len(),
				}).Warn("no probes completed")
			}
			liveCompleted = done
		}
	}
}

// sample computes a snapshot for a tick at now. Ticks arriving more than
// lateTolerance after they were due are skipped and only reset the baseline.
func (m *monitor) sample(now time.Time) (Snapshot, bool) {
	c := m.c
	completed := c.counters.Completed.Load()

	m.mu.Lock()
	defer m.mu.Unlock()

	dt := now.Sub(m.lastTick)
	if dt > m.period+lateTolerance {
		m.lastTick = now
		m.lastCompleted = completed
		return Snapshot{}, false
	}
	rate := 0.0
	if dt > 0 {
		rate = float64(completed-m.lastCompleted) / dt.Seconds()
	}
	m.lastTick = now
	m.lastCompleted = completed

	m.rates = append(m.rates, rate)
	if len(m.rates) > smoothingTicks {
		m.rates = m.rates[len(m.rates)-smoothingTicks:]
	}
	m.ticks++
	smoothed := 0.0
	for _, r := range m.rates {
		smoothed += r
	}
	smoothed /= float64(len(m.rates))

	total := max(c.counters.Total(), completed)
	eta := time.Duration(-1)
	if smoothed > 0 {
		eta = time.Duration(float64(total-completed) / smoothed * float64(time.Second))
	}

	s := Snapshot{
		Elapsed:      now.Sub(c.started) - (c.pauser.PausedDuration() - m.pausedBase),
		Completed:    completed,
		Total:        total,
		Rate:         rate,
		SmoothedRate: smoothed,
		ETA:          eta,
		ETAText:      FormatETA(eta),
		DirsFound:    c.counters.DirsFound.Load(),
		FilesFound:   c.counters.FilesFound.Load(),
		Errors:       c.counters.Errors.Load(),
		BaseCases:    c.counters.BaseCases.Load(),
		WorkQueue:    c.workQ.Len(),
		DirQueue:     c.dirQ.Len(),
		ParseQueue:   c.parseQ.Len(),
		Workers:      c.Workers(),
		Paused:       c.pauser.IsPaused(),
		CurrentDir:   c.CurrentDirectory(),
	}
	m.last = s
	return s, true
}

// checkETA stops the scan when the smoothed ETA exceeds the configured
// limit once the rate has settled.
func (m *monitor) checkETA(s Snapshot) {
	limit := m.c.opts.MaxETA
	m.mu.Lock()
	ticks := m.ticks
	m.mu.Unlock()
	if limit <= 0 || ticks < etaWarmupTicks || s.ETA < 0 || s.Paused {
		return
	}
	if s.ETA > limit {
		m.c.log.WithFields(logrus.Fields{"eta": s.ETAText, "limit": limit}).
			Warn("estimated time exceeds limit, stopping scan")
		go m.c.finish(ReasonETAExceeded)
	}
}

func (m *monitor) latest() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
