// Package gatewayerr defines the typed error taxonomy surfaced at the
// inbound HTTP boundary (spec.md §7) and the single adapter that turns one
// into the wire error envelope. Errors are a sum type, not stringly typed,
// per the "Error-as-enum with optional message" design note.
package gatewayerr

import (
	"net/http"

	"github.com/Laisky/errors/v2"
)

// Kind enumerates the error taxonomy's HTTP-facing categories.
type Kind int

const (
	_ Kind = iota
	MissingCredential
	InvalidCredential
	BadHeader
	ModelNotFound
	AccessDenied
	NoUpstreamKey
	UpstreamTimeout
	UpstreamError
	TranslationError
	CacheError
	InternalError
)

// code is the numeric code returned in the {"code":...,"msg":...} envelope.
// Values are stable and must not be renumbered once shipped.
var code = map[Kind]int{
	MissingCredential: 1001,
	InvalidCredential: 1002,
	BadHeader:         1003,
	ModelNotFound:     1004,
	AccessDenied:      1005,
	NoUpstreamKey:     1006,
	UpstreamTimeout:   1007,
	UpstreamError:     1008,
	TranslationError:  1009,
	CacheError:        1010,
	InternalError:     1011,
}

var httpStatus = map[Kind]int{
	MissingCredential: http.StatusUnauthorized,
	InvalidCredential: http.StatusUnauthorized,
	BadHeader:         http.StatusBadRequest,
	ModelNotFound:     http.StatusBadRequest,
	AccessDenied:      http.StatusForbidden,
	NoUpstreamKey:     http.StatusInternalServerError,
	UpstreamTimeout:   http.StatusGatewayTimeout,
	UpstreamError:     0, // passthrough: caller must supply the upstream's own status
	TranslationError:  http.StatusBadGateway,
	CacheError:        http.StatusInternalServerError,
	InternalError:     http.StatusInternalServerError,
}

// Error is the gateway's typed error. It wraps an underlying cause (when
// any) with errors.WithStack via New/Wrap so stack traces survive across
// suspension points, matching every error path in the teacher.
type Error struct {
	Kind   Kind
	Msg    string
	Status int // only meaningful for Kind==UpstreamError; 0 otherwise
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind with a message and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a Kind wrapping an existing error, preserving its stack via
// errors.WithStack.
func Wrap(kind Kind, cause error, msg string) *Error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{Kind: kind, Msg: msg, cause: errors.WithStack(cause)}
}

// Upstream builds an UpstreamError carrying the verbatim status code from
// the upstream response.
func Upstream(status int, msg string) *Error {
	return &Error{Kind: UpstreamError, Msg: msg, Status: status}
}

// HTTPStatus returns the status code this error should be answered with.
func (e *Error) HTTPStatus() int {
	if e.Kind == UpstreamError {
		return e.Status
	}
	return httpStatus[e.Kind]
}

// Code returns the stable numeric code for the envelope.
func (e *Error) Code() int {
	return code[e.Kind]
}

// Envelope is the wire shape of a core-reported failure (spec.md §6).
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ToEnvelope renders the error as the {"code":...,"msg":...} response body.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{Code: e.Code(), Msg: e.Error()}
}

// As attempts to recover a *Error from an arbitrary error chain.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
