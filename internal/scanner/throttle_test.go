package scanner

import (
	"context"
	"testing"
	"time"
)

func TestThrottlerRateCeiling(t *testing.T) {
	th := NewThrottler(0, 20, false, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n := 0
	for th.Wait(ctx) == nil {
		n++
	}
	// One token of burst plus 20/s for one second.
	if n > 22 {
		t.Fatalf("%d requests passed in 1s at 20 req/s", n)
	}
	if n < 15 {
		t.Fatalf("only %d requests passed in 1s at 20 req/s", n)
	}
}

func TestThrottlerSetRate(t *testing.T) {
	th := NewThrottler(0, 0, false, quietLogger())
	if th.Rate() != 0 {
		t.Fatalf("Rate() = %d, want unlimited", th.Rate())
	}
	th.SetRate(5)
	if th.Rate() != 5 {
		t.Fatalf("Rate() = %d, want 5", th.Rate())
	}
	th.SetRate(0)
	start := time.Now()
	for range 100 {
		if err := th.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("unlimited throttler should not delay")
	}
}

func TestThrottlerAdaptiveBackoff(t *testing.T) {
	th := NewThrottler(10*time.Millisecond, 0, true, quietLogger())
	th.RecordStatus(429)
	if d := th.Delay(); d != 500*time.Millisecond {
		t.Fatalf("after 429 delay = %s, want 500ms", d)
	}
	th.RecordStatus(503)
	if d := th.Delay(); d != time.Second {
		t.Fatalf("after 503 delay = %s, want 1s", d)
	}
	th.RecordStatus(200)
	if d := th.Delay(); d != 500*time.Millisecond {
		t.Fatalf("after recovery delay = %s, want 500ms", d)
	}
}

func TestThrottlerErrorsBackOffAfterThree(t *testing.T) {
	th := NewThrottler(0, 0, true, quietLogger())
	th.RecordError()
	th.RecordError()
	if th.Delay() != 0 {
		t.Fatal("two errors should not back off")
	}
	th.RecordError()
	if th.Delay() != 500*time.Millisecond {
		t.Fatalf("delay = %s, want 500ms", th.Delay())
	}
}

func TestThrottlerDisabledIgnoresSignals(t *testing.T) {
	th := NewThrottler(5*time.Millisecond, 0, false, quietLogger())
	th.RecordStatus(429)
	th.RecordError()
	if th.Delay() != 5*time.Millisecond {
		t.Fatalf("delay = %s, want base delay", th.Delay())
	}
}
