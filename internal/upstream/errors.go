package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

// Kind classifies a failed upstream call. Sources attach it where the
// failure is observed so callers never have to parse messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPrivate
	KindAuthExpired
	KindRateLimited
	KindUnauthorized
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrivate:
		return "private"
	case KindAuthExpired:
		return "auth_expired"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "transient_connection"
	default:
		return "unknown"
	}
}

var (
	ErrAuthentication  = errors.New("upstream: authentication failed")
	ErrProfileNotFound = errors.New("upstream: profile not found")
	ErrProfilePrivate  = errors.New("upstream: profile is private")
	ErrRateLimited     = errors.New("upstream: rate limited")
	ErrUnauthorized    = errors.New("upstream: unauthorized")
	ErrFetchFailed     = errors.New("upstream: fetch failed")
	ErrRetryExhausted  = fmt.Errorf("%w: retries exhausted", ErrFetchFailed)

	ErrNoSession = errors.New("upstream: no stored session")
)

// Error is a classified upstream failure. errors.Is matches the sentinel for
// its Kind as well as the wrapped cause.
type Error struct {
	Kind       Kind
	Identifier string
	Attempts   int
	RetryAfter time.Duration
	Message    string
	Err        error

	exhausted bool
}

func (e *Error) Error() string {
	msg := e.sentinel().Error()
	if e.Identifier != "" {
		msg += fmt.Sprintf(" (%s)", e.Identifier)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *Error) sentinel() error {
	if e.exhausted {
		return ErrRetryExhausted
	}
	switch e.Kind {
	case KindNotFound:
		return ErrProfileNotFound
	case KindPrivate:
		return ErrProfilePrivate
	case KindAuthExpired:
		return ErrAuthentication
	case KindRateLimited:
		return ErrRateLimited
	case KindUnauthorized:
		return ErrUnauthorized
	default:
		return ErrFetchFailed
	}
}

// KindOf returns the classification of err. Network-level failures that
// carry no Kind are transient; anything else unclassified is unknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindTransient
	}
	return KindUnknown
}

// RetryAfterOf returns the wait hint carried by a classified error.
func RetryAfterOf(err error) time.Duration {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}
