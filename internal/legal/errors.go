package legal

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the pipeline can surface.
type Kind string

const (
	KindExtraction Kind = "ExtractionError"
	KindConfig     Kind = "ConfigError"
	KindAuth       Kind = "AuthError"
	KindRequest    Kind = "RequestError"
	KindTimeout    Kind = "TimeoutError"
	KindParse      Kind = "ParseError"
	KindCancelled  Kind = "CancelledError"
)

// Error carries the classified kind plus the context needed to diagnose it.
// Task and Attempts are zero when not applicable.
type Error struct {
	Kind     Kind
	Op       string
	Task     TaskKind
	Attempts int
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Task.Valid() {
		fmt.Fprintf(&b, " [task=%s", e.Task)
		if e.Attempts > 0 {
			fmt.Fprintf(&b, " attempts=%d", e.Attempts)
		}
		b.WriteString("]")
	} else if e.Attempts > 0 {
		fmt.Fprintf(&b, " [attempts=%d]", e.Attempts)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrExtraction = &Error{Kind: KindExtraction}
	ErrConfig     = &Error{Kind: KindConfig}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrRequest    = &Error{Kind: KindRequest}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrParse      = &Error{Kind: KindParse}
	ErrCancelled  = &Error{Kind: KindCancelled}
)

func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classified kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether a caller may reasonably try the same operation
// again without changing anything.
func Retryable(err error) bool {
	return KindOf(err) == KindTimeout
}
