package errors

import (
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode    Phase = "encode"    // building a wire message
	PhaseDecode    Phase = "decode"    // reading a wire message
	PhaseTransport Phase = "transport" // channel send/receive
	PhaseDispatch  Phase = "dispatch"  // routing a decoded call
	PhaseHandshake Phase = "handshake" // connection setup
	PhaseRef       Phase = "ref"       // cross-process reference translation
	PhaseSpawn     Phase = "spawn"     // remote process launch
)

// Kind categorizes the error
type Kind string

const (
	KindKeyNotFound       Kind = "key_not_found"
	KindTypeMismatch      Kind = "type_mismatch"
	KindTimeout           Kind = "timeout"
	KindPeerDisconnected  Kind = "peer_disconnected"
	KindProtocolViolation Kind = "protocol_violation"
	KindRefInvalid        Kind = "ref_invalid"
	KindFrameTooLarge     Kind = "frame_too_large"
	KindChannelClosed     Kind = "channel_closed"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindVersionMismatch   Kind = "version_mismatch"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	WireType string
	Detail   string
	Method   string
	Keys     []int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Method != "" {
		b.WriteString(" in ")
		b.WriteString(e.Method)
	}

	if len(e.Keys) > 0 {
		b.WriteString(" at key ")
		for i, k := range e.Keys {
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprintf(&b, "%d", k)
		}
	}

	if e.GoType != "" || e.WireType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WireType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", wire type ")
			b.WriteString(e.WireType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("wire type ")
			b.WriteString(e.WireType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WireType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two *Error values match
// when their Phase and Kind agree; an empty Phase or Kind on the target
// acts as a wildcard.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return true
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Key appends a message key to the key path
func (b *Builder) Key(keys ...int64) *Builder {
	b.err.Keys = append(b.err.Keys, keys...)
	return b
}

// Method sets the method-ID description
func (b *Builder) Method(m string) *Builder {
	b.err.Method = m
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WireType sets the wire type name
func (b *Builder) WireType(t string) *Builder {
	b.err.WireType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// KeyNotFound creates an error for a message key that is absent
func KeyNotFound(phase Phase, key int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindKeyNotFound,
		Keys:   []int64{key},
		Detail: "key not present in message",
	}
}

// TypeMismatch creates a type mismatch error for a message key
func TypeMismatch(phase Phase, key int64, goType, wireType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Keys:     []int64{key},
		GoType:   goType,
		WireType: wireType,
	}
}

// Timeout creates a transport timeout error
func Timeout(op string, limit time.Duration) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindTimeout,
		Detail: fmt.Sprintf("%s exceeded %v", op, limit),
	}
}

// PeerDisconnected creates an error for a vanished peer
func PeerDisconnected(cause error) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindPeerDisconnected,
		Detail: "peer process disconnected",
		Cause:  cause,
	}
}

// ProtocolViolation creates an error for behavior that indicates a
// programming error on one side of the connection
func ProtocolViolation(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindProtocolViolation,
		Detail: detail,
	}
}

// RefInvalid creates an error for a stale or unknown cross-process reference
func RefInvalid(objectKind string, ref int64) *Error {
	return &Error{
		Phase:  PhaseRef,
		Kind:   KindRefInvalid,
		Detail: fmt.Sprintf("no live %s for ref %#x", objectKind, ref),
		Value:  ref,
	}
}

// FrameTooLarge creates an error for a payload exceeding the channel bound
func FrameTooLarge(size, limit int) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindFrameTooLarge,
		Detail: fmt.Sprintf("frame of %d bytes exceeds channel limit %d", size, limit),
		Value:  size,
	}
}

// Closed creates an error for an operation on a closed channel or connection
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindChannelClosed,
		Detail: what + " is closed",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// VersionMismatch creates a handshake version error
func VersionMismatch(local, remote string) *Error {
	return &Error{
		Phase:  PhaseHandshake,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("local API version %s is incompatible with remote %s", local, remote),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
