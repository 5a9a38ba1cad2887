package slatekv

// errors.go defines the client-runtime error taxonomy and the mapping from
// engine boundary failures into it.
//
// Every error returned by the public API is a *Error carrying one Kind.
// Callers match either the base ("any slatekv error", via errors.As) or a
// specific kind (via errors.Is against the kind sentinels):
//
//	var e *slatekv.Error
//	if errors.As(err, &e) { ... }            // catch the base
//	if errors.Is(err, slatekv.ErrClosed) { ... } // catch one kind

import (
	"errors"
	"fmt"

	"github.com/slatekv/slatekv/engine"
)

// Kind identifies the class of a client-runtime error.
type Kind int

const (
	// KindInvalidArgument reports malformed input caught before or at the
	// engine boundary: empty keys, bad UUID syntax, unknown option values.
	KindInvalidArgument Kind = iota + 1

	// KindClosed reports an operation attempted on a released handle.
	KindClosed

	// KindUnavailable reports an unreachable object store or network.
	KindUnavailable

	// KindData reports corruption or format mismatch, including "no
	// manifest found" conditions surfaced on Reader and Admin open.
	KindData

	// KindTransactionConflict reports a serializable commit invalidated by
	// a concurrent writer, or a physical write overlap at commit.
	KindTransactionConflict

	// KindInternal reports a defect or unexpected engine state.
	KindInternal
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindClosed:
		return "Closed"
	case KindUnavailable:
		return "Unavailable"
	case KindData:
		return "Data"
	case KindTransactionConflict:
		return "TransactionConflict"
	case KindInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by the public API.
type Error struct {
	// Kind is the error's class within the closed taxonomy.
	Kind Kind
	// Message is the human-readable failure description, preserved
	// end-to-end from its origin.
	Message string
	// Err is the wrapped cause, when one exists.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels: errors.Is(err, ErrClosed) is true for every
// error of KindClosed regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for use with errors.Is.
var (
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument, Message: "slatekv: invalid argument"}
	ErrClosed              = &Error{Kind: KindClosed, Message: "slatekv: handle is closed"}
	ErrUnavailable         = &Error{Kind: KindUnavailable, Message: "slatekv: store unavailable"}
	ErrData                = &Error{Kind: KindData, Message: "slatekv: data error"}
	ErrTransactionConflict = &Error{Kind: KindTransactionConflict, Message: "slatekv: transaction conflict"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "slatekv: internal error"}
)

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidArgf(format string, args ...any) *Error {
	return errf(KindInvalidArgument, format, args...)
}

func closedf(format string, args ...any) *Error {
	return errf(KindClosed, format, args...)
}

func internalf(format string, args ...any) *Error {
	return errf(KindInternal, format, args...)
}

// mapEngineError translates an engine boundary failure into the public
// taxonomy. The mapping is total: every engine code maps to exactly one
// kind, and a code this runtime does not know is a defect reported as
// Internal with the code preserved in the message.
func mapEngineError(err error) error {
	if err == nil {
		return nil
	}

	var ee *engine.Error
	if !errors.As(err, &ee) {
		return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
	}

	var kind Kind
	switch ee.Code {
	case engine.CodeInvalid:
		kind = KindInvalidArgument
	case engine.CodeClosed:
		kind = KindClosed
	case engine.CodeUnavailable:
		kind = KindUnavailable
	case engine.CodeData:
		kind = KindData
	case engine.CodeTransactionConflict:
		kind = KindTransactionConflict
	case engine.CodeInternal:
		kind = KindInternal
	default:
		return &Error{
			Kind:    KindInternal,
			Message: fmt.Sprintf("slatekv: unmapped engine code %s: %s", ee.Code, ee.Message),
			Err:     err,
		}
	}
	return &Error{Kind: kind, Message: ee.Message, Err: err}
}
