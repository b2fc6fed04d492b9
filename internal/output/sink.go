package output

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/filter"
	"github.com/maxvaer/dirsweep/internal/hook"
	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Sink is the ResultSink used by the CLI: it filters found results, writes
// the ones that pass and runs the result hook on them. Writes are serialized.
type Sink struct {
	mu       sync.Mutex
	out      Writer
	chain    *filter.Chain
	hook     *hook.Runner
	tree     *Tree
	progress *Progress
	log      logrus.FieldLogger

	reported int
	filtered int
	errs     int
	summary  scanner.Summary
	ended    chan struct{}
	err      error
}

// SinkOptions holds the optional collaborators of a Sink.
type SinkOptions struct {
	Chain    *filter.Chain // nil = report everything
	Hook     *hook.Runner
	Tree     *Tree
	Progress *Progress
	Logger   logrus.FieldLogger
}

// NewSink returns a sink writing to out.
func NewSink(out Writer, o SinkOptions) *Sink {
	if o.Chain == nil {
		o.Chain = filter.NewChain()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return &Sink{
		out:      out,
		chain:    o.Chain,
		hook:     o.Hook,
		tree:     o.Tree,
		progress: o.Progress,
		log:      o.Logger,
		ended:    make(chan struct{}),
	}
}

func (s *Sink) DirectoryFound(r *scanner.FoundResult) { s.report(r) }

func (s *Sink) FileFound(r *scanner.FoundResult) { s.report(r) }

func (s *Sink) report(r *scanner.FoundResult) {
	if filtered, reason := s.chain.Apply(r); filtered {
		s.mu.Lock()
		s.filtered++
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"url": r.URL, "filter": reason}).Debug("result filtered")
		return
	}

	s.mu.Lock()
	if s.progress != nil {
		s.progress.Clear()
	}
	if err := s.out.WriteResult(r); err != nil && s.err == nil {
		s.err = err
	}
	s.reported++
	s.mu.Unlock()

	if s.tree != nil {
		s.tree.Add(r.Path, r.IsDir)
	}
	if s.hook != nil {
		s.hook.Run(r)
	}
}

// Error logs a probe that could not be completed. A HEAD/GET disagreement is
// worth an operator's attention; transport failures only at debug level.
func (s *Sink) Error(e *scanner.ErrorResult) {
	s.mu.Lock()
	s.errs++
	s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{"url": e.URL, "method": e.Method, "reason": e.Reason})
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	if e.Reason == scanner.ReasonMethodMismatch {
		entry.Info("probe error")
		return
	}
	entry.Debug("probe error")
}

// ScanEnded records the summary. Only the first call counts.
func (s *Sink) ScanEnded(sum scanner.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ended:
		return
	default:
	}
	s.summary = sum
	close(s.ended)
}

// Ended is closed once ScanEnded has been called.
func (s *Sink) Ended() <-chan struct{} { return s.ended }

// Reported returns how many results were written and how many were filtered.
func (s *Sink) Reported() (reported, filtered int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported, s.filtered
}

// Stats returns the footer statistics of the finished scan.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsFromSummary(s.summary, s.filtered)
}

// Finish writes the footer and, when enabled, the tree to treeOut. It
// returns the first write error seen during the scan.
func (s *Sink) Finish(treeOut io.Writer) error {
	if s.progress != nil {
		s.progress.Stop()
	}
	stats := s.Stats()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.out.WriteFooter(stats); err != nil && s.err == nil {
		s.err = err
	}
	if s.tree != nil {
		s.tree.Render(treeOut)
	}
	return s.err
}
