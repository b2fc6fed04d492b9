package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Timeout bounds a single hook invocation.
const Timeout = 30 * time.Second

// Payload is the JSON document sent to the hook command via stdin.
type Payload struct {
	Type          string `json:"type"` // "dir" or "file"
	Method        string `json:"method"`
	Host          string `json:"host,omitempty"`
	URL           string `json:"url"`
	Path          string `json:"path"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	RedirectURL   string `json:"redirect,omitempty"`
	WordCount     int    `json:"words"`
	LineCount     int    `json:"lines"`
	Depth         int    `json:"depth"`
	Source        string `json:"source"`
}

// NewPayload builds the hook payload for a found result.
func NewPayload(r *scanner.FoundResult) Payload {
	p := Payload{
		Type:          "file",
		Method:        r.Method,
		URL:           r.URL,
		Path:          r.Path,
		StatusCode:    r.StatusCode,
		ContentLength: r.ContentLength,
		RedirectURL:   r.RedirectURL,
		WordCount:     r.WordCount,
		LineCount:     r.LineCount,
		Depth:         r.Depth,
		Source:        r.Source.String(),
	}
	if r.IsDir {
		p.Type = "dir"
	}
	if u, err := url.Parse(r.URL); err == nil {
		p.Host = u.Host
	}
	return p
}

// Runner executes a shell command for each reported result.
type Runner struct {
	cmd string
	log logrus.FieldLogger
}

// NewRunner creates a hook runner. cmd is the shell command to execute.
func NewRunner(cmd string, log logrus.FieldLogger) *Runner {
	return &Runner{cmd: cmd, log: log.WithField("component", "hook")}
}

// Expand replaces {url}, {path}, {status}, {size}, {method}, {host} and
// {type} in the command template.
func (r *Runner) Expand(p Payload) string {
	return strings.NewReplacer(
		"{url}", p.URL,
		"{path}", p.Path,
		"{status}", strconv.Itoa(p.StatusCode),
		"{size}", strconv.FormatInt(p.ContentLength, 10),
		"{method}", p.Method,
		"{host}", p.Host,
		"{type}", p.Type,
	).Replace(r.cmd)
}

// Run executes the hook command with the result as JSON on stdin and returns
// its standard output. Failures are logged and never halt the scan.
func (r *Runner) Run(result *scanner.FoundResult) []byte {
	payload := NewPayload(result)
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.WithError(err).Warn("marshal hook payload")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, r.Expand(payload))...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		r.log.WithError(err).WithField("url", result.URL).Warn("hook failed")
		return nil
	}
	if len(output) > 0 {
		r.log.WithField("url", result.URL).Info(strings.TrimSpace(string(output)))
	}
	return output
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
