// Package svcerr defines the error taxonomy shared by every layer of the
// metadata core, from the DAL up through the RPC surface.
package svcerr

import (
	"errors"
	"fmt"
)

// Kind identifies a position in the error taxonomy. Errors returned by the
// dal.DB methods and the services above them are nil or a *Error with one
// of these kinds; dialect adapters may return raw driver errors, which
// dal.DB translates.
type Kind int

const (
	// KindUnknown should never appear on a returned error; its presence
	// indicates a call site constructed an Error without a Kind.
	KindUnknown Kind = iota

	// KindMissingItem: a selector resolved to nothing.
	KindMissingItem
	// KindDuplicateItem: an identity or preallocation collision.
	KindDuplicateItem
	// KindWrongItemType: the type at rest disagrees with the type requested.
	KindWrongItemType
	// KindVersionConflict: a losing race for the next version/tag.
	KindVersionConflict
	// KindInputValidation: a malformed request.
	KindInputValidation
	// KindVersionValidation: the external validator rejected the increment.
	KindVersionValidation
	// KindTransientStorage: a deadlock or serialisation failure. Retried
	// internally; only surfaced to the caller after the retry cap.
	KindTransientStorage
	// KindPermanentStorage: any other storage fault.
	KindPermanentStorage
	// KindDeadlineExceeded: the per-request deadline expired.
	KindDeadlineExceeded
	// KindDataCorruption: a stored value failed to decode as its declared
	// type (see internal/wire's no-coercion rule).
	KindDataCorruption
	// KindInternal: an invariant was violated inside the service. Surfaced
	// to the client as opaque.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMissingItem:
		return "MissingItem"
	case KindDuplicateItem:
		return "DuplicateItem"
	case KindWrongItemType:
		return "WrongItemType"
	case KindVersionConflict:
		return "VersionConflict"
	case KindInputValidation:
		return "InputValidation"
	case KindVersionValidation:
		return "VersionValidation"
	case KindTransientStorage:
		return "TransientStorage"
	case KindPermanentStorage:
		return "PermanentStorage"
	case KindDeadlineExceeded:
		return "DeadlineExceeded"
	case KindDataCorruption:
		return "DataCorruption"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across package boundaries in
// this module. It always carries a Kind, a human-readable message, and
// (where available) the underlying cause for logging — the cause is never
// serialised onto the wire.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "dal.saveNewVersions"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
		}
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, svcerr.ErrMissingItem) style checks by
// comparing Kind rather than identity, so wrapped *Error values with
// different messages still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs an *Error of the given kind, attaching cause for logging.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons against a bare Kind, independent of Op
// or Message. Construct call-site errors with New/Wrap, not these directly,
// so Op and Message stay accurate; use these only as the `target` argument.
var (
	ErrMissingItem      = &Error{Kind: KindMissingItem}
	ErrDuplicateItem    = &Error{Kind: KindDuplicateItem}
	ErrWrongItemType    = &Error{Kind: KindWrongItemType}
	ErrVersionConflict  = &Error{Kind: KindVersionConflict}
	ErrInputValidation  = &Error{Kind: KindInputValidation}
	ErrVersionValidation = &Error{Kind: KindVersionValidation}
	ErrTransientStorage = &Error{Kind: KindTransientStorage}
	ErrPermanentStorage = &Error{Kind: KindPermanentStorage}
	ErrDeadlineExceeded = &Error{Kind: KindDeadlineExceeded}
	ErrDataCorruption   = &Error{Kind: KindDataCorruption}
	ErrInternal         = &Error{Kind: KindInternal}
)

// Of returns the Kind of err if it is (or wraps) an *Error, else KindUnknown.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err should be retried internally by the DAL.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}
