package scanner

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Throttler gates outgoing requests. It enforces an optional global
// requests-per-second ceiling, a fixed per-request delay, and (when adaptive)
// backs off exponentially on 429/503 responses or repeated errors, recovering
// gradually once responses are healthy again.
type Throttler struct {
	limiter *rate.Limiter

	mu           sync.Mutex
	baseDelay    time.Duration
	currentDelay time.Duration
	maxDelay     time.Duration
	consecutive  int // consecutive throttle signals
	adaptive     bool
	log          logrus.FieldLogger
}

// NewThrottler creates a throttler. rps <= 0 disables the rate ceiling.
func NewThrottler(baseDelay time.Duration, rps int, adaptive bool, log logrus.FieldLogger) *Throttler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Throttler{
		limiter:      rate.NewLimiter(rate.Inf, 1),
		baseDelay:    baseDelay,
		currentDelay: baseDelay,
		maxDelay:     30 * time.Second,
		adaptive:     adaptive,
		log:          log,
	}
	t.SetRate(rps)
	return t
}

// SetRate changes the requests-per-second ceiling. rps <= 0 removes it.
func (t *Throttler) SetRate(rps int) {
	if rps <= 0 {
		t.limiter.SetLimit(rate.Inf)
		return
	}
	t.limiter.SetLimit(rate.Limit(rps))
}

// Rate returns the current ceiling in requests per second, 0 if unlimited.
func (t *Throttler) Rate() int {
	l := t.limiter.Limit()
	if l == rate.Inf {
		return 0
	}
	return int(l)
}

// Wait blocks until the next request may be sent.
func (t *Throttler) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	d := t.Delay()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay returns the current per-request delay.
func (t *Throttler) Delay() time.Duration {
	if !t.adaptive {
		return t.baseDelay
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentDelay
}

// RecordStatus updates the throttler based on a response status code.
func (t *Throttler) RecordStatus(statusCode int) {
	if !t.adaptive {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable {
		t.consecutive++
		if t.backoffLocked() {
			t.log.WithFields(logrus.Fields{"status": statusCode, "delay": t.currentDelay}).
				Warn("rate limited, backing off")
		}
		return
	}

	if t.consecutive > 0 {
		t.consecutive = 0
		// Gradually recover: halve delay toward base, but not below base.
		newDelay := max(t.currentDelay/2, t.baseDelay)
		if newDelay != t.currentDelay {
			t.currentDelay = newDelay
			t.log.WithField("delay", t.currentDelay).Info("recovering from back-off")
		}
	}
}

// RecordError flags a connection error (timeout, reset) as a possible
// rate limit signal.
func (t *Throttler) RecordError() {
	if !t.adaptive {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 && t.backoffLocked() {
		t.log.WithField("delay", t.currentDelay).Warn("multiple errors, backing off")
	}
}

// backoffLocked doubles the delay, from at least 500ms up to maxDelay, and
// reports whether it changed.
func (t *Throttler) backoffLocked() bool {
	newDelay := min(max(t.currentDelay*2, 500*time.Millisecond), t.maxDelay)
	if newDelay == t.currentDelay {
		return false
	}
	t.currentDelay = newDelay
	return true
}

// gatedFetcher applies the throttler before each request. The request itself
// runs detached from ctx cancellation so stopping never aborts a request in
// flight.
type gatedFetcher struct {
	next     Fetcher
	throttle *Throttler
}

func (g gatedFetcher) Do(ctx context.Context, method, rawURL string) (*Response, error) {
	if err := g.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return g.next.Do(context.WithoutCancel(ctx), method, rawURL)
}
