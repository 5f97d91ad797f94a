package stream

import (
	"errors"
	"fmt"
)

// Error taxonomy from §7. All errors surface at the deserializer boundary;
// there are no internal retries.
var (
	// ErrTruncated: the reader returned fewer bytes than the frame required.
	ErrTruncated = errors.New("stream: truncated")

	// ErrProtocol: a framing violation — unknown tag where a specific one
	// was required, duplicate schema-tree insertion, malformed metadata
	// JSON, missing required metadata key, inconsistent tree state.
	ErrProtocol = errors.New("stream: protocol error")

	// ErrProtocolNotSupported: known-shape but unsupported input — version
	// outside the supported set, wrong metadata container shape, an
	// unimplemented unit type, user-defined metadata that isn't an object.
	ErrProtocolNotSupported = errors.New("stream: protocol not supported")

	// ErrInvalidArgument: raised at construction — duplicate projection
	// path, empty projection path, a projection containing unresolved
	// wildcards.
	ErrInvalidArgument = errors.New("stream: invalid argument")

	// ErrOperationNotPermitted: DeserializeNextUnit called after
	// end-of-stream has already been accepted.
	ErrOperationNotPermitted = errors.New("stream: operation not permitted")
)

// TruncatedError wraps a lower-level read failure (anything other than a
// clean io.EOF/io.ErrUnexpectedEOF, which map straight to ErrTruncated) so
// callers still get errors.Is(err, ErrTruncated) at the boundary.
type TruncatedError struct{ Err error }

func (e *TruncatedError) Error() string { return fmt.Sprintf("stream: truncated: %v", e.Err) }
func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// ProtocolError carries a human-readable detail alongside ErrProtocol.
type ProtocolError struct{ Detail string }

func (e *ProtocolError) Error() string { return "stream: protocol error: " + e.Detail }
func (e *ProtocolError) Unwrap() error { return ErrProtocol }

func newProtocolError(format string, args ...any) error {
	return &ProtocolError{Detail: fmt.Sprintf(format, args...)}
}

// NotSupportedError carries a human-readable detail alongside
// ErrProtocolNotSupported.
type NotSupportedError struct{ Detail string }

func (e *NotSupportedError) Error() string {
	return "stream: protocol not supported: " + e.Detail
}
func (e *NotSupportedError) Unwrap() error { return ErrProtocolNotSupported }

func newNotSupportedError(format string, args ...any) error {
	return &NotSupportedError{Detail: fmt.Sprintf(format, args...)}
}

// InvalidArgumentError carries a human-readable detail alongside
// ErrInvalidArgument.
type InvalidArgumentError struct{ Detail string }

func (e *InvalidArgumentError) Error() string {
	return "stream: invalid argument: " + e.Detail
}
func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

func newInvalidArgumentError(format string, args ...any) error {
	return &InvalidArgumentError{Detail: fmt.Sprintf(format, args...)}
}

// HandlerError wraps a non-success return from a UnitHandler callback,
// propagated verbatim to the deserializer's caller (§7).
type HandlerError struct {
	Method string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("stream: handler error in %s: %v", e.Method, e.Err)
}
func (e *HandlerError) Unwrap() error { return e.Err }
