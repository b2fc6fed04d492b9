package scanner

import "time"

// Error reasons attached to ErrorResult.
const (
	ReasonTimeout        = "timeout"
	ReasonRefused        = "connection refused"
	ReasonMalformed      = "malformed response"
	ReasonNoResponse     = "no response"
	ReasonInterrupted    = "interrupted"
	ReasonMethodMismatch = "head/get mismatch"
	ReasonBaseCase       = "base case"
)

// FoundResult describes a path classified as existing. Ownership passes to the
// ResultSink as soon as it is emitted.
type FoundResult struct {
	Method        string
	URL           string
	Path          string
	Item          string
	Ext           string
	IsDir         bool
	Depth         int
	Source        Source
	StatusCode    int
	ContentLength int64
	ContentType   string
	Body          []byte
	BodyHash      [16]byte // MD5
	WordCount     int
	LineCount     int
	RedirectURL   string
	Duration      time.Duration
	Cleaned       string    // response after volatile-content cleaning
	BaseCase      *BaseCase // base case the response was judged against
}

// ErrorResult reports a probe that could not be completed. Errors never stop
// the scan.
type ErrorResult struct {
	Method string
	URL    string
	Reason string
	Err    error
}

// Summary is handed to ResultSink.ScanEnded when a scan finishes or is stopped.
type Summary struct {
	Reason      string // "completed", "stopped", "eta-exceeded"
	Completed   int64
	DirsFound   int64
	DirsQueued  int64
	FilesFound  int64
	Errors      int64
	BaseCases   int64
	ParsedLinks int64
	Correction  int64 // queued probes removed by skips
	Abandoned   int64 // probes never generated because of skips
	Dropped     int64 // pages left unparsed because the parse queue was full
	Elapsed     time.Duration
}
