package vbht

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind is the closed set of recoverable outcomes a hash-table operation
// can report to a caller. Internal invariant violations (lock not held,
// table inactive, lost chain link) are not Kinds — they panic, since they
// signal a bug rather than a condition a caller can act on.
type Kind uint8

const (
	// KindNotFound: key absent in the table.
	KindNotFound Kind = iota
	// KindInvalidCas: CAS mismatch on a warmup insert or an explicit
	// CAS precondition.
	KindInvalidCas
	// KindWasClean: mutation succeeded; the entry was clean beforehand.
	KindWasClean
	// KindWasDirty: mutation succeeded; the entry was dirty beforehand.
	KindWasDirty
	// KindIsLocked: entry is temporarily locked (LOCKED_CAS sentinel).
	KindIsLocked
	// KindNoMem: factory allocation failed.
	KindNoMem
	// KindNeedBgFetch: entry is non-resident and the caller needs the
	// value.
	KindNeedBgFetch
	// KindIsPendingSyncWrite: a prepare in flight blocks this mutation.
	KindIsPendingSyncWrite
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidCas:
		return "InvalidCas"
	case KindWasClean:
		return "WasClean"
	case KindWasDirty:
		return "WasDirty"
	case KindIsLocked:
		return "IsLocked"
	case KindNoMem:
		return "NoMem"
	case KindNeedBgFetch:
		return "NeedBgFetch"
	case KindIsPendingSyncWrite:
		return "IsPendingSyncWrite"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Error
// --------------------------------------------------------------------------

// Error is the concrete error type every hash-table operation returns.
// It carries a Kind a caller can branch on (via Is/As, or by reading
// Kind directly) plus the operation name and an optionally wrapped
// cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vbht: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vbht: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, KindNotFound)-style matching against a bare
// Kind sentinel wrapped as an *Error with no cause, as well as against
// another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds an *Error for the given op/kind, capturing a stack trace
// via cockroachdb/errors so that a Kind surfaced several call frames up
// (Set -> unlockedUpdateStoredValue -> epilogue) still carries enough
// context to debug.
func New(op string, kind Kind) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Newf("%s: %s", op, kind)}
}

// Wrap builds an *Error that also carries an underlying cause.
func Wrap(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Wrapf(cause, "%s: %s", op, kind)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
