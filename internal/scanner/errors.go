package scanner

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	// ErrInvalidTarget is returned by Start when the start URL cannot be used.
	ErrInvalidTarget = errors.New("invalid target URL")
	// ErrAlreadyRunning is returned by Start on a coordinator that is not stopped.
	ErrAlreadyRunning = errors.New("scan already running")
	// ErrNoResolution is returned by resolvers that cannot produce a regex.
	ErrNoResolution = errors.New("no fail-case regex available")
	// ErrStopped is returned by Wait when the scan was stopped before completing.
	ErrStopped = errors.New("scan stopped")
)

// categorize maps a transport error onto one of the Reason constants.
func categorize(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF), errors.Is(err, syscall.ECONNRESET):
		return ReasonNoResponse
	}
	return ReasonMalformed
}
