package extractor

import (
	"errors"
	"strings"
)

// Kind classifies engine failures
type Kind int

const (
	// KindDownloadFailed covers platform restrictions, geoblocks, login walls
	// and unavailable formats reported by the engine itself.
	KindDownloadFailed Kind = iota + 1
	// KindUnexpected covers everything else: missing binary, I/O, decoding,
	// post-processing and cancellation.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindDownloadFailed:
		return "download failed"
	case KindUnexpected:
		return "unexpected failure"
	default:
		return "unknown"
	}
}

// Error is returned by Engine implementations
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDownloadFailed reports whether err is an engine-reported download failure
func IsDownloadFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDownloadFailed
}

// Unexpected wraps err as an unexpected failure unless it is already classified
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

// classify turns a failed engine run into an *Error. stderr is scanned for the
// engine's "ERROR:" lines; the last one becomes the reason.
func classify(err error, stderr string) error {
	if err == nil {
		return nil
	}

	var reason string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			reason = line
		}
	}

	if reason == "" {
		return &Error{Kind: KindUnexpected, Err: err}
	}
	return &Error{Kind: KindDownloadFailed, Reason: reason, Err: err}
}
