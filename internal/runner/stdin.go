package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// controller is the part of the coordinator the keyboard drives.
type controller interface {
	TogglePause() bool
	PausedFor() time.Duration
	SkipCurrentDirectory() int
	CurrentDirectory() string
	Resize(delta int) bool
	Workers() int
	RateLimit() int
	SetRateLimit(rps int)
	Snapshot() scanner.Snapshot
}

var errNoTerminal = errors.New("stdin is not an interactive terminal")

// console owns the terminal while a scan runs. Keypresses drive the
// controller, except while a prompt is open: then they are collected into a
// line for the prompt.
type console struct {
	out  io.Writer
	live atomic.Bool // stdin is being read in raw mode

	mu    sync.Mutex
	c     controller
	reply chan string // non-nil while a prompt waits for its line
	line  []byte
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

// attach sets the scan the keys control.
func (k *console) attach(c controller) {
	k.mu.Lock()
	k.c = c
	k.mu.Unlock()
}

// input handles one byte read from the terminal.
func (k *console) input(b byte) {
	k.mu.Lock()
	if k.reply == nil {
		c := k.c
		k.mu.Unlock()
		if c != nil {
			handleKey(c, b, k.out)
		}
		return
	}
	defer k.mu.Unlock()

	switch b {
	case '\r', '\n':
		k.reply <- string(k.line)
		k.reply, k.line = nil, nil
		fmt.Fprintln(k.out)
	case 0x7f, '\b':
		if len(k.line) > 0 {
			k.line = k.line[:len(k.line)-1]
			fmt.Fprint(k.out, "\b \b")
		}
	default:
		if b >= 0x20 {
			k.line = append(k.line, b)
			_, _ = k.out.Write([]byte{b})
		}
	}
}

// readLine opens a prompt and waits for the next line typed. It fails at once
// when stdin is not being read.
func (k *console) readLine(ctx context.Context) (string, error) {
	if !k.live.Load() {
		return "", errNoTerminal
	}
	reply := make(chan string, 1)
	k.mu.Lock()
	k.reply, k.line = reply, nil
	k.mu.Unlock()

	select {
	case line := <-reply:
		return line, nil
	case <-ctx.Done():
		k.mu.Lock()
		if k.reply == reply {
			k.reply, k.line = nil, nil
		}
		k.mu.Unlock()
		return "", ctx.Err()
	}
}

// startControls reads single keypresses from stdin while a scan runs and
// feeds them to k. It returns a function restoring the terminal. If stdin is
// not a terminal, nothing is started.
func startControls(k *console, quiet bool) (cleanup func()) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "[!] Could not enable raw terminal: %v\n", err)
		}
		return func() {}
	}

	// MakeRaw disables OPOST which stops \n → \r\n translation, causing
	// cursor alignment issues. Re-enable it since we only need raw input.
	fixOutputProcessing(fd)
	k.live.Store(true)

	done := make(chan struct{})
	cleanup = func() {
		select {
		case <-done:
		default:
			close(done)
			k.live.Store(false)
			_ = term.Restore(fd, oldState)
		}
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			select {
			case <-done:
				return
			default:
			}
			if n == 0 {
				continue
			}

			// Ctrl+C (0x03): restore terminal and re-send SIGINT so the
			// existing signal handler chain fires normally.
			if buf[0] == 0x03 {
				cleanup()
				sendInterrupt()
				return
			}
			k.input(buf[0])
		}
	}()

	return cleanup
}

// handleKey applies one keypress to the scan and reports what happened.
func handleKey(c controller, key byte, w io.Writer) {
	switch key {
	case '\r', '\n', ' ':
		pausedFor := c.PausedFor()
		if c.TogglePause() {
			fmt.Fprintf(w, "\r\033[K[*] Scan PAUSED, press Enter or Space to resume\n")
		} else {
			fmt.Fprintf(w, "\r\033[K[*] Scan RESUMED after %s\n", pausedFor.Round(time.Second))
		}
	case 's', 'S':
		dir := c.CurrentDirectory()
		removed := c.SkipCurrentDirectory()
		fmt.Fprintf(w, "\r\033[K[*] Skipping %s (%d queued probes dropped)\n", dir, removed)
	case '+':
		c.Resize(1)
		fmt.Fprintf(w, "\r\033[K[*] Workers: %d\n", c.Workers())
	case '-':
		if c.Resize(-1) {
			fmt.Fprintf(w, "\r\033[K[*] Workers: %d\n", c.Workers())
		} else {
			fmt.Fprintf(w, "\r\033[K[!] Cannot go below one worker\n")
		}
	case '<':
		// Without a ceiling, halve the rate actually measured.
		rps := c.RateLimit()
		if rps == 0 {
			rps = int(c.Snapshot().SmoothedRate)
		}
		rps = max(rps/2, 1)
		c.SetRateLimit(rps)
		fmt.Fprintf(w, "\r\033[K[*] Rate limit: %d req/s\n", rps)
	case '>':
		rps := c.RateLimit()
		if rps == 0 {
			fmt.Fprintf(w, "\r\033[K[*] Rate limit: unlimited\n")
			return
		}
		c.SetRateLimit(rps * 2)
		fmt.Fprintf(w, "\r\033[K[*] Rate limit: %d req/s\n", rps*2)
	case 'u', 'U':
		c.SetRateLimit(0)
		fmt.Fprintf(w, "\r\033[K[*] Rate limit: unlimited\n")
	}
}
