package transfer

import (
	"errors"
	"fmt"
)

// Kind classifies a transfer failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindNetwork
	KindTimeout
	KindHTTPStatus
	KindInvalidResponseFormat
	KindNothingToSend
	KindNothingToImport
	KindNoCookiesImported
	KindNotConfigured
	KindBusy
	KindMissingID
)

var kindText = map[Kind]string{
	KindUnknown:               "unknown error",
	KindInvalidURL:            "invalid server URL",
	KindNetwork:               "network request failed",
	KindTimeout:               "request timed out",
	KindHTTPStatus:            "server returned an error",
	KindInvalidResponseFormat: "invalid response format",
	KindNothingToSend:         "no cookies to send on this page",
	KindNothingToImport:       "no cookies to import",
	KindNoCookiesImported:     "no cookies were imported",
	KindNotConfigured:         "no server configured",
	KindBusy:                  "another operation is in progress",
	KindMissingID:             "cookie id is required",
}

func (k Kind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single reported outcome of a failed transfer operation.
type Error struct {
	Kind Kind
	// Code and Body are set for KindHTTPStatus.
	Code int
	Body string
	Err  error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidURL            = &Error{Kind: KindInvalidURL}
	ErrNetwork               = &Error{Kind: KindNetwork}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrHTTPStatus            = &Error{Kind: KindHTTPStatus}
	ErrInvalidResponseFormat = &Error{Kind: KindInvalidResponseFormat}
	ErrNothingToSend         = &Error{Kind: KindNothingToSend}
	ErrNothingToImport       = &Error{Kind: KindNothingToImport}
	ErrNoCookiesImported     = &Error{Kind: KindNoCookiesImported}
	ErrNotConfigured         = &Error{Kind: KindNotConfigured}
	ErrBusy                  = &Error{Kind: KindBusy}
	ErrMissingID             = &Error{Kind: KindMissingID}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindHTTPStatus {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Code)
		if e.Body != "" {
			msg += ": " + e.Body
		}
		return msg
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with a
// non-zero Code additionally requires the same status code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == 0 || t.Code == e.Code)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
