package stratum

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by every backend. Callers match with errors.Is.
var (
	// ErrConfiguration indicates a bad or unsupported connection descriptor,
	// including missing or expired credentials. Raised before any I/O.
	ErrConfiguration = errors.New("configuration error")

	// ErrUsage indicates a malformed statement, such as mixing positional
	// and named parameters. Raised before any I/O.
	ErrUsage = errors.New("usage error")

	// ErrTypeMismatch is returned when a Value cannot be represented as the
	// requested native type. It matches ErrUsage under errors.Is.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrTransport indicates a network-level failure (connection refused,
	// reset, DNS). Potentially retryable by the caller; never retried here.
	ErrTransport = errors.New("transport error")

	// ErrTimeout indicates the call as a whole timed out. It matches
	// ErrTransport under errors.Is.
	ErrTimeout = errors.New("timeout")

	// ErrProtocol indicates a malformed or mismatched response from a remote
	// backend, e.g. a result count that does not match the request count.
	ErrProtocol = errors.New("protocol error")

	// ErrExecution indicates the database itself rejected a statement or a
	// constraint failed. Carries the engine's message.
	ErrExecution = errors.New("execution error")
)

// kindError attaches an error kind to a message while keeping both visible
// to errors.Is / errors.Unwrap.
type kindError struct {
	kind error
	msg  string
	// parent is a broader kind the error also matches (ErrTimeout is a
	// ErrTransport, ErrTypeMismatch is a ErrUsage).
	parent error
	cause  error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *kindError) Unwrap() []error {
	errs := []error{e.kind}
	if e.parent != nil {
		errs = append(errs, e.parent)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// ConfigError reports a bad connection descriptor.
func ConfigError(format string, args ...any) error {
	return &kindError{kind: ErrConfiguration, msg: fmt.Sprintf(format, args...)}
}

// UsageError reports a malformed statement or binding.
func UsageError(format string, args ...any) error {
	return &kindError{kind: ErrUsage, msg: fmt.Sprintf(format, args...)}
}

// TypeMismatchError reports a failed Value conversion.
func TypeMismatchError(format string, args ...any) error {
	return &kindError{kind: ErrTypeMismatch, parent: ErrUsage, msg: fmt.Sprintf(format, args...)}
}

// TransportError wraps a network-level failure.
func TransportError(cause error, format string, args ...any) error {
	return &kindError{kind: ErrTransport, msg: fmt.Sprintf(format, args...), cause: cause}
}

// TimeoutError wraps a timeout. Matches both ErrTimeout and ErrTransport.
func TimeoutError(cause error, format string, args ...any) error {
	return &kindError{kind: ErrTimeout, parent: ErrTransport, msg: fmt.Sprintf(format, args...), cause: cause}
}

// ProtocolError reports a backend contract violation.
func ProtocolError(format string, args ...any) error {
	return &kindError{kind: ErrProtocol, msg: fmt.Sprintf(format, args...)}
}

// ExecutionError wraps a SQL-level rejection from the engine or server.
func ExecutionError(cause error, format string, args ...any) error {
	return &kindError{kind: ErrExecution, msg: fmt.Sprintf(format, args...), cause: cause}
}
