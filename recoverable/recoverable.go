// Package recoverable decides whether a failed unit of work is worth
// attempting again. Nothing in stepgraph retries on its own; the verdict is
// recorded on error steps so callers and downstream consumers can decide.
package recoverable

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// Error is implemented by errors that know whether they are recoverable
type Error interface {
	error
	IsRecoverable() bool
}

// transientPatterns are lower-cased message fragments of errors that usually
// succeed on a later attempt.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"rate limit",
	"too many requests",
	"service unavailable",
	"internal server error",
	"bad gateway",
	"gateway timeout",
}

// IsRecoverable checks if an error can be retried
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var explicit Error
	if errors.As(err, &explicit) {
		return explicit.IsRecoverable()
	}
	return byType(err)
}

func byType(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return byType(urlErr.Err)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

type wrapped struct {
	err         error
	recoverable bool
}

func (e *wrapped) Error() string       { return e.err.Error() }
func (e *wrapped) Unwrap() error       { return e.err }
func (e *wrapped) IsRecoverable() bool { return e.recoverable }

// Mark wraps err so IsRecoverable reports true
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, recoverable: true}
}

// Permanent wraps err so IsRecoverable reports false, overriding any
// message-based heuristics.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, recoverable: false}
}
