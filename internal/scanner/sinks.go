package scanner

import (
	"context"
	"iter"
)

// ResultSink receives everything the scan discovers. Methods are called from
// worker goroutines concurrently.
type ResultSink interface {
	DirectoryFound(r *FoundResult)
	FileFound(r *FoundResult)
	Error(e *ErrorResult)
	ScanEnded(s Summary)
}

// ProgressSink receives periodic progress snapshots from the monitor.
type ProgressSink interface {
	Progress(s Snapshot)
}

// Ambiguity describes a base case whose three fail probes disagreed.
type Ambiguity struct {
	URL    string
	Bodies [3]string // response bodies
	Raw    [3]string // status line, headers and body, as regexes see them
}

// AmbiguityResolver turns an inconsistent base case into a regex that matches
// the server's "not found" responses.
type AmbiguityResolver interface {
	Resolve(ctx context.Context, a Ambiguity) (string, error)
}

// LinkExtractor yields candidate paths found in a response body.
type LinkExtractor interface {
	Links(body []byte, contentType, pageURL string) iter.Seq[string]
}

// WordSource is a restartable word sequence. Words may be called once per
// directory.
type WordSource interface {
	Words() iter.Seq[string]
	Count() uint64
}

// Fetcher performs a single HTTP request.
type Fetcher interface {
	Do(ctx context.Context, method, rawURL string) (*Response, error)
}

type nopResults struct{}

func (nopResults) DirectoryFound(*FoundResult) {}
func (nopResults) FileFound(*FoundResult)      {}
func (nopResults) Error(*ErrorResult)          {}
func (nopResults) ScanEnded(Summary)           {}

type nopProgress struct{}

func (nopProgress) Progress(Snapshot) {}
