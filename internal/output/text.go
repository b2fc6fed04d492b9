package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// TextWriter writes colored text output to a writer.
type TextWriter struct {
	w      io.Writer
	closer io.Closer
	status io.Writer // header and footer
	quiet  bool

	dim, green, cyan, yellow, red, bold *color.Color
}

// NewTextWriter creates a text output writer. If outputFile is empty, stdout
// is used. noColor disables ANSI escape codes; output to a file is never
// colored.
func NewTextWriter(outputFile string, noColor, quiet bool) (*TextWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	t := &TextWriter{
		w:      w,
		closer: closer,
		status: os.Stderr,
		quiet:  quiet,
		dim:    color.New(color.Faint),
		green:  color.New(color.FgGreen),
		cyan:   color.New(color.FgCyan),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}
	if noColor || outputFile != "" {
		for _, c := range []*color.Color{t.dim, t.green, t.cyan, t.yellow, t.red, t.bold} {
			c.DisableColor()
		}
	}
	return t, nil
}

func (t *TextWriter) WriteHeader() error {
	if t.quiet {
		return nil
	}
	_, err := t.dim.Fprintln(t.status, "Code  Type      Size  URL")
	return err
}

func (t *TextWriter) WriteResult(result *scanner.FoundResult) error {
	redirectInfo := ""
	if result.RedirectURL != "" {
		redirectInfo = " -> " + result.RedirectURL
	}

	prefix := ""
	if result.Method != "" && result.Method != "GET" {
		prefix = fmt.Sprintf("[%s] ", result.Method)
	}
	if result.Source == scanner.SourceLink {
		prefix += t.dim.Sprint("[link] ")
	}

	kind := Kind(result)
	if result.IsDir {
		kind = t.bold.Sprint(kind)
	}

	_, err := fmt.Fprintf(t.w, "%s  %-4s  %8d  %s%s%s\n",
		t.colorForStatus(result.StatusCode).Sprintf("%3d", result.StatusCode),
		kind,
		result.ContentLength,
		prefix,
		result.URL,
		redirectInfo,
	)
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	dropped := ""
	if stats.DroppedPages > 0 {
		dropped = fmt.Sprintf(" | Unparsed pages: %d", stats.DroppedPages)
	}
	_, err := fmt.Fprintf(t.status,
		"\n%s %d requests | Dirs: %d | Files: %d | Filtered: %d | Errors: %d | Base cases: %d%s | Duration: %s | %.1f req/s\n",
		t.bold.Sprintf("%s:", footerLabel(stats.Reason)),
		stats.TotalRequests,
		stats.DirsFound,
		stats.FilesFound,
		stats.FilteredCount,
		stats.ErrorCount,
		stats.BaseCases,
		dropped,
		stats.Duration.Round(time.Millisecond),
		stats.RequestsPerSec,
	)
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) colorForStatus(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return t.green
	case code >= 300 && code < 400:
		return t.cyan
	case code >= 400 && code < 500:
		return t.yellow
	case code >= 500:
		return t.red
	default:
		return t.dim
	}
}

func footerLabel(reason string) string {
	switch reason {
	case scanner.ReasonStopped:
		return "Stopped"
	case scanner.ReasonETAExceeded:
		return "ETA exceeded"
	default:
		return "Completed"
	}
}
