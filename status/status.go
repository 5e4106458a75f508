// Package status defines the closed error taxonomy every duct operation
// returns through. A Status is either Ok or carries one of a fixed set of
// codes. Fallible operations return a (value, *Status) pair, with a nil
// *Status meaning Ok; there is no separate Result type.
package status

import "fmt"

// Code enumerates the outcomes a duct operation can report. The set is
// intentionally closed: new failure modes should map onto one of these
// rather than growing the enum.
type Code int

const (
	Ok Code = iota
	InvalidArgument
	NotSupported
	IoError
	Timeout
	Closed
	ProtocolError
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case InvalidArgument:
		return "Invalid argument"
	case NotSupported:
		return "Not supported"
	case IoError:
		return "I/O error"
	case Timeout:
		return "Timeout"
	case Closed:
		return "Closed"
	case ProtocolError:
		return "Protocol error"
	default:
		return "Unknown"
	}
}

// Status is a tagged (code, message) pair. The zero value is Ok, matching
// the original's default-constructed Status.
type Status struct {
	code    Code
	message string
}

// New builds a non-Ok status. Callers normally use the per-code
// constructors below instead.
func New(code Code, message string) *Status {
	return &Status{code: code, message: message}
}

func okStatus() *Status { return nil }

func InvalidArgumentf(format string, args ...any) *Status {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

func NotSupportedf(format string, args ...any) *Status {
	return New(NotSupported, fmt.Sprintf(format, args...))
}

func IoErrorf(format string, args ...any) *Status {
	return New(IoError, fmt.Sprintf(format, args...))
}

func Timeoutf(format string, args ...any) *Status {
	return New(Timeout, fmt.Sprintf(format, args...))
}

func Closedf(format string, args ...any) *Status {
	return New(Closed, fmt.Sprintf(format, args...))
}

func ProtocolErrorf(format string, args ...any) *Status {
	return New(ProtocolError, fmt.Sprintf(format, args...))
}

// Ok reports whether s is nil or the zero-value Ok status. A nil *Status is
// always treated as Ok so functions can return (T, nil) the usual Go way.
func (s *Status) Ok() bool {
	return s == nil || s.code == Ok
}

// Code returns the status code, Ok for a nil receiver.
func (s *Status) Code() Code {
	if s == nil {
		return Ok
	}
	return s.code
}

// Message returns the human-readable detail, empty for Ok.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.message
}

// Error implements the standard error interface so a *Status can be
// returned and matched against with errors.As.
func (s *Status) Error() string {
	if s.Ok() {
		return "Ok"
	}
	return fmt.Sprintf("[%s] %s", s.code, s.message)
}

// Is enables errors.Is(err, status.ErrClosed) style comparisons: it matches
// any *Status target with the same code, ignoring the message.
func (s *Status) Is(target error) bool {
	t, ok := target.(*Status)
	if !ok {
		return false
	}
	return s.Code() == t.Code()
}

// Sentinel statuses for errors.Is comparisons, e.g. errors.Is(err, status.ErrClosed).
var (
	ErrClosed         = New(Closed, "")
	ErrTimeout        = New(Timeout, "")
	ErrProtocolError  = New(ProtocolError, "")
	ErrIoError        = New(IoError, "")
	ErrNotSupported   = New(NotSupported, "")
	ErrInvalidArgument = New(InvalidArgument, "")
)

// FromError classifies a generic error into a Status, defaulting to
// IoError for anything not already a *Status. Used at transport boundaries
// where the underlying error comes from net/os rather than from duct itself.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}
	if s, ok := err.(*Status); ok {
		return s
	}
	return IoErrorf("%s", err.Error())
}

// IsDisconnect reports whether a status should be treated as a transport
// disconnect signal by the reconnect supervisor (spec.md §4.6/§7): Closed
// and IoError, nothing else.
func IsDisconnect(s *Status) bool {
	if s.Ok() {
		return false
	}
	return s.Code() == Closed || s.Code() == IoError
}
