package extract

import (
	"errors"
	"fmt"

	"get-selected-text/src/osascript"
)

// Kind classifies extraction failures.
type Kind int

const (
	// KindNotFound: no focused element, or it exposes no selected text.
	KindNotFound Kind = iota + 1
	// KindScriptExecution: the scripting subprocess could not run or exited non-zero.
	KindScriptExecution
	// KindDecode: output could not be decoded as text.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindScriptExecution:
		return "script execution"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrScriptExecution = &Error{Kind: KindScriptExecution}
	ErrDecode          = &Error{Kind: KindDecode}
)

// Error is the only error type returned by extraction methods.
type Error struct {
	Kind   Kind
	Method string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Method == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 when err is not an extraction error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func notFound(method, msg string) *Error {
	return &Error{Kind: KindNotFound, Method: method, Msg: msg}
}

// fromScript maps a runner failure onto the closed error kinds.
func fromScript(method string, err error) *Error {
	if errors.Is(err, osascript.ErrInvalidOutput) {
		return &Error{Kind: KindDecode, Method: method, Err: err}
	}
	var exitErr *osascript.ExitError
	if errors.As(err, &exitErr) {
		return &Error{Kind: KindScriptExecution, Method: method, Msg: exitErr.Stderr, Err: err}
	}
	return &Error{Kind: KindScriptExecution, Method: method, Err: err}
}
