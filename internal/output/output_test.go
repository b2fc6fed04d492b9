package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/filter"
	"github.com/maxvaer/dirsweep/internal/scanner"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleResults() []*scanner.FoundResult {
	return []*scanner.FoundResult{
		{Method: "GET", URL: "http://x/b.php", Path: "/b.php", StatusCode: 200, ContentLength: 30},
		{Method: "GET", URL: "http://x/a/", Path: "/a/", IsDir: true, StatusCode: 403, ContentLength: 10},
		{Method: "HEAD", URL: "http://x/c", Path: "/c", StatusCode: 301, RedirectURL: "http://x/c/", Source: scanner.SourceLink},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestTextWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewTextWriter(path, false, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range sampleResults() {
		if err := w.WriteResult(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got := readFile(t, path)
	if strings.Contains(got, "\x1b[") {
		t.Error("file output should not be colored")
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), got)
	}
	if !strings.Contains(lines[1], "403  dir") || !strings.HasSuffix(lines[1], "http://x/a/") {
		t.Errorf("dir line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "[HEAD] [link] http://x/c -> http://x/c/") {
		t.Errorf("redirect line = %q", lines[2])
	}
}

func TestTextWriterFooter(t *testing.T) {
	w, err := NewTextWriter(filepath.Join(t.TempDir(), "out.txt"), true, false)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var status bytes.Buffer
	w.status = &status

	if err := w.WriteFooter(Stats{Reason: scanner.ReasonStopped, TotalRequests: 42, DirsFound: 2, Duration: time.Second}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(status.String(), "Stopped: 42 requests | Dirs: 2") {
		t.Errorf("footer = %q", status.String())
	}
	if strings.Contains(status.String(), "Unparsed pages") {
		t.Errorf("footer mentions unparsed pages when none were dropped: %q", status.String())
	}

	status.Reset()
	if err := w.WriteFooter(Stats{Reason: scanner.ReasonCompleted, DroppedPages: 3}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(status.String(), "| Unparsed pages: 3 |") {
		t.Errorf("footer = %q", status.String())
	}
}

func TestStatsFromSummaryCarriesDroppedPages(t *testing.T) {
	st := StatsFromSummary(scanner.Summary{Completed: 10, Dropped: 2, Elapsed: 2 * time.Second}, 1)
	if st.DroppedPages != 2 || st.FilteredCount != 1 || st.RequestsPerSec != 5 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range sampleResults() {
		w.WriteResult(r)
	}
	if err := w.WriteFooter(Stats{Reason: "completed", TotalRequests: 9, DirsFound: 1}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	var report jsonReport
	if err := json.Unmarshal([]byte(readFile(t, path)), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 3 || report.Results[1].Type != "dir" || report.Results[2].Source != scanner.SourceLink.String() {
		t.Fatalf("results = %+v", report.Results)
	}
	if report.Stats.Requests != 9 || report.Stats.Dirs != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteHeader()
	for _, r := range sampleResults() {
		w.WriteResult(r)
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	records, err := csv.NewReader(strings.NewReader(readFile(t, path))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records", len(records))
	}
	if records[2][0] != "dir" || records[2][3] != "403" {
		t.Errorf("dir record = %v", records[2])
	}
}

// memWriter records results in memory.
type memWriter struct {
	results []*scanner.FoundResult
	footer  *Stats
}

func (m *memWriter) WriteHeader() error { return nil }
func (m *memWriter) WriteResult(r *scanner.FoundResult) error {
	m.results = append(m.results, r)
	return nil
}
func (m *memWriter) WriteFooter(s Stats) error {
	m.footer = &s
	return nil
}
func (m *memWriter) Close() error { return nil }

func TestSortedWriter(t *testing.T) {
	for _, tt := range []struct {
		by    string
		first string
	}{
		{"status", "/b.php"},
		{"size", "/c"},
		{"path", "/a/"},
	} {
		inner := &memWriter{}
		w := NewSortedWriter(inner, tt.by)
		for _, r := range sampleResults() {
			r.Body = []byte("x")
			w.WriteResult(r)
		}
		if len(inner.results) != 0 {
			t.Fatal("results written before footer")
		}
		w.WriteFooter(Stats{})
		if inner.results[0].Path != tt.first {
			t.Errorf("sort by %s: first = %s, want %s", tt.by, inner.results[0].Path, tt.first)
		}
		if inner.results[0].Body != nil {
			t.Error("buffered copy kept the body")
		}
		if inner.footer == nil {
			t.Error("footer not forwarded")
		}
	}
}

func TestTree(t *testing.T) {
	tree := NewTree()
	tree.Add("/admin/", true)
	tree.Add("/admin/config.php", false)
	tree.Add("/js/lib/app.js", false)
	tree.Add("/", true)

	var buf bytes.Buffer
	tree.Render(&buf)
	want := `
  Discovered paths:
  ├── admin/
  │   └── config.php
  └── js/
      └── lib/
          └── app.js
`
	if buf.String() != want {
		t.Errorf("tree =\n%s\nwant\n%s", buf.String(), want)
	}
	if tree.Len() != 3 {
		t.Errorf("Len = %d, want 3", tree.Len())
	}

	var empty bytes.Buffer
	NewTree().Render(&empty)
	if empty.Len() != 0 {
		t.Error("empty tree rendered output")
	}
}

func TestSinkFiltersAndSummarizes(t *testing.T) {
	out := &memWriter{}
	tree := NewTree()
	sink := NewSink(out, SinkOptions{
		Chain:  filter.NewChain(filter.NewStatusFilter(nil, []int{403})),
		Tree:   tree,
		Logger: quietLogger(),
	})

	results := sampleResults()
	sink.FileFound(results[0])
	sink.DirectoryFound(results[1])
	sink.FileFound(results[2])
	sink.Error(&scanner.ErrorResult{URL: "http://x/z", Reason: scanner.ReasonTimeout})
	sink.ScanEnded(scanner.Summary{Reason: scanner.ReasonCompleted, Completed: 10, Elapsed: 2 * time.Second})
	sink.ScanEnded(scanner.Summary{Reason: scanner.ReasonStopped})

	select {
	case <-sink.Ended():
	default:
		t.Fatal("Ended not closed")
	}
	reported, filtered := sink.Reported()
	if reported != 2 || filtered != 1 {
		t.Fatalf("reported/filtered = %d/%d, want 2/1", reported, filtered)
	}
	if err := sink.Finish(io.Discard); err != nil {
		t.Fatal(err)
	}
	if out.footer == nil || out.footer.Reason != scanner.ReasonCompleted || out.footer.RequestsPerSec != 5 || out.footer.FilteredCount != 1 {
		t.Fatalf("footer = %+v", out.footer)
	}
	if tree.Len() != 2 {
		t.Fatalf("tree has %d paths, want 2", tree.Len())
	}
}

func TestProgressTracksGrowingTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)
	p.Progress(scanner.Snapshot{Completed: 5, Total: 10, ETAText: "00:00:05", CurrentDir: "/a/"})
	p.Progress(scanner.Snapshot{Completed: 12, Total: 40, ETAText: "00:00:10"})
	if p.total != 40 {
		t.Fatalf("total = %d, want 40", p.total)
	}
	p.Stop()
	p.Progress(scanner.Snapshot{Completed: 40, Total: 40})
	if p.total != 40 {
		t.Fatal("stopped bar still updated")
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xml", "", true, true); err == nil {
		t.Fatal("expected error")
	}
}
