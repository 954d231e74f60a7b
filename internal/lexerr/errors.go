// Package lexerr defines the single typed failure surfaced by every runtime
// operation. The Kind names match the exception names on the wire.
package lexerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindBadRequest           Kind = "BadRequestException"
	KindBadGateway           Kind = "BadGatewayException"
	KindDependencyFailed     Kind = "DependencyFailedException"
	KindLimitExceeded        Kind = "LimitExceededException"
	KindNotFound             Kind = "NotFoundException"
	KindConflict             Kind = "ConflictException"
	KindNotAcceptable        Kind = "NotAcceptableException"
	KindUnsupportedMediaType Kind = "UnsupportedMediaTypeException"
	KindLoopDetected         Kind = "LoopDetectedException"
	KindRequestTimeout       Kind = "RequestTimeoutException"
	KindInternalFailure      Kind = "InternalFailureException"
)

var statusByKind = map[Kind]int{
	KindBadRequest:           http.StatusBadRequest,
	KindBadGateway:           http.StatusBadGateway,
	KindDependencyFailed:     http.StatusFailedDependency,
	KindLimitExceeded:        http.StatusTooManyRequests,
	KindNotFound:             http.StatusNotFound,
	KindConflict:             http.StatusConflict,
	KindNotAcceptable:        http.StatusNotAcceptable,
	KindUnsupportedMediaType: http.StatusUnsupportedMediaType,
	KindLoopDetected:         http.StatusLoopDetected,
	KindRequestTimeout:       http.StatusRequestTimeout,
	KindInternalFailure:      http.StatusInternalServerError,
}

// ParseKind maps a wire exception name to a Kind. Unknown names map to
// KindInternalFailure with ok=false.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	if _, ok := statusByKind[k]; ok {
		return k, true
	}
	return KindInternalFailure, false
}

// HTTPStatus returns the status code the runtime answers with for kind.
func HTTPStatus(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// KindForStatus maps an HTTP status back to its Kind. Unknown statuses are
// internal failures.
func KindForStatus(status int) Kind {
	for k, s := range statusByKind {
		if s == status {
			return k
		}
	}
	return KindInternalFailure
}

// Retryable reports whether the caller may retry without operator action.
// Only throttling qualifies, after waiting RetryAfterSeconds.
func Retryable(kind Kind) bool {
	return kind == KindLimitExceeded
}

type Error struct {
	Kind    Kind
	Message string
	// RetryAfterSeconds is only set on KindLimitExceeded.
	RetryAfterSeconds int
	Err               error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("lex: %s", e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Kind == KindLimitExceeded && e.RetryAfterSeconds > 0 {
		msg += fmt.Sprintf(" (retry after %ds)", e.RetryAfterSeconds)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by Kind so callers can use errors.Is with a
// sentinel built by New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && t.Message == "" && t.Err == nil
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(KindBadRequest, message, err)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func BadGateway(message string, err error) *Error {
	return New(KindBadGateway, message, err)
}

func DependencyFailed(message string, err error) *Error {
	return New(KindDependencyFailed, message, err)
}

func Internal(message string, err error) *Error {
	return New(KindInternalFailure, message, err)
}

// LimitExceeded is the only constructor that carries a retry hint.
func LimitExceeded(message string, retryAfterSeconds int) *Error {
	if retryAfterSeconds < 0 {
		retryAfterSeconds = 0
	}
	return &Error{Kind: KindLimitExceeded, Message: message, RetryAfterSeconds: retryAfterSeconds}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var lexErr *Error
	if errors.As(err, &lexErr) {
		return lexErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternalFailure for untyped errors.
func KindOf(err error) Kind {
	if lexErr, ok := As(err); ok {
		return lexErr.Kind
	}
	return KindInternalFailure
}

// Wrap returns err as an *Error, converting untyped errors to internal
// failures so nothing reaches the wire without a kind.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if lexErr, ok := As(err); ok {
		return lexErr
	}
	return Internal("internal failure", err)
}
