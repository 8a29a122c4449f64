package provider

import (
	"errors"
	"fmt"
)

// ErrorKind separates failures that may succeed on retry from ones that
// are terminal for the connection's credential.
type ErrorKind string

const (
	// KindRetryable covers timeouts, rate limiting and provider 5xx.
	KindRetryable ErrorKind = "retryable"
	// KindTerminal covers revoked or invalid credentials and unknown
	// items. The connection must be relinked; retrying cannot help.
	KindTerminal ErrorKind = "terminal"
)

// Error is a typed provider failure.
type Error struct {
	Kind ErrorKind
	// Code is the provider's error code when one was returned, e.g.
	// "ITEM_LOGIN_REQUIRED" or "RATE_LIMIT_EXCEEDED".
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error (%s, %s): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind, defaulting to retryable for errors
// that did not come from the provider boundary.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindRetryable
}

// IsTerminal reports whether err is terminal for its connection.
func IsTerminal(err error) bool {
	return KindOf(err) == KindTerminal
}
