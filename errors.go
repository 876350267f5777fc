package hashpipe

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrKind categorizes a failure the way the pipeline's error model does:
// fatal system failures abort a worker outright, transient block errors are
// expected and retried, signal-interrupt errors unwind a blocking wait
// cooperatively, protocol errors indicate a capture/transform invariant was
// violated, and parameter errors are caller mistakes caught before any
// shared resource is touched.
type ErrKind int

const (
	ErrKindUnknown ErrKind = iota
	ErrKindFatalSystem
	ErrKindTransient
	ErrKindSignal
	ErrKindProtocol
	ErrKindParameter
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindFatalSystem:
		return "fatal-system"
	case ErrKindTransient:
		return "transient"
	case ErrKindSignal:
		return "signal-interrupt"
	case ErrKindProtocol:
		return "protocol"
	case ErrKindParameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// Error is a structured pipeline error: which component and operation
// failed, what kind of failure it was, and (if applicable) the errno and
// wrapped error that produced it.
type Error struct {
	Op        string // e.g. "databuf.WaitFilled", "status.Attach"
	Component string // e.g. "ringbuf", "status", "ibv", "supervisor"
	Kind      ErrKind
	Errno     syscall.Errno
	Msg       string
	Inner     error
}

func (e *Error) Error() string {
	var parts []string
	if e.Component != "" {
		parts = append(parts, e.Component)
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	msg := e.Msg
	if msg == "" && e.Inner != nil {
		msg = e.Inner.Error()
	}
	if e.Errno != 0 {
		msg = fmt.Sprintf("%s (errno=%d)", msg, e.Errno)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("hashpipe: %s: %s [%s]", joinParts(parts), msg, e.Kind)
	}
	return fmt.Sprintf("hashpipe: %s [%s]", msg, e.Kind)
}

func joinParts(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind && e.Component == te.Component
	}
	return false
}

// NewError builds a structured error for the given component/operation.
func NewError(component, op string, kind ErrKind, msg string) *Error {
	return &Error{Component: component, Op: op, Kind: kind, Msg: msg}
}

// WrapError wraps err with component/operation context, preserving any
// errno found on the chain and mapping it to a kind if kind is unknown.
func WrapError(component, op string, kind ErrKind, err error) *Error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	errors.As(err, &errno)
	if kind == ErrKindUnknown && errno != 0 {
		kind = mapErrnoToKind(errno)
	}
	return &Error{
		Component: component,
		Op:        op,
		Kind:      kind,
		Errno:     errno,
		Msg:       err.Error(),
		Inner:     err,
	}
}

func mapErrnoToKind(errno syscall.Errno) ErrKind {
	switch errno {
	case syscall.EAGAIN, syscall.ETIMEDOUT:
		return ErrKindTransient
	case syscall.EINTR:
		return ErrKindSignal
	case syscall.EINVAL, syscall.E2BIG, syscall.ENOENT:
		return ErrKindParameter
	default:
		return ErrKindFatalSystem
	}
}

// Sentinel errors usable with errors.Is.
var (
	ErrKeyUnavailable = errors.New("hashpipe: ipc key unavailable")
	ErrSizeMismatch   = errors.New("hashpipe: shared segment size mismatch")
	ErrNotFound       = errors.New("hashpipe: resource not found")
	ErrRegistryFull   = errors.New("hashpipe: thread registry full")
	ErrShutdown       = errors.New("hashpipe: shutting down")
	ErrNotRegistered  = errors.New("hashpipe: worker not registered")
)

// WaitOutcome distinguishes a successful wait from a timeout or an
// interrupted (signal-driven shutdown) wait, so callers can tell
// ErrKindTransient apart from ErrKindSignal without string matching.
type WaitOutcome int

const (
	WaitOK WaitOutcome = iota
	WaitTimedOut
	WaitInterrupted
)

func (o WaitOutcome) String() string {
	switch o {
	case WaitOK:
		return "ok"
	case WaitTimedOut:
		return "timed-out"
	case WaitInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}
