package shared

import "errors"

// ErrorKind classifies domain errors so callers can map them without string matching
type ErrorKind string

const (
	// KindValidation is bad input shape - the caller's fault
	KindValidation ErrorKind = "VALIDATION_ERROR"
	// KindNotFound means the referenced aggregate does not exist
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInsufficientStock means sellable stock cannot cover the requested quantity
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	// KindInvalidTransition means the aggregate is not in the required source state
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	// KindReturnTargetAlreadySold means a purchase return targets a batch with sold units
	KindReturnTargetAlreadySold ErrorKind = "RETURN_TARGET_ALREADY_SOLD"
	// KindCancellationConflict means a reversal would underflow current stock or money state
	KindCancellationConflict ErrorKind = "CANCELLATION_CONFLICT"
	// KindReconciliation means a ledger does not fold to its stored total
	KindReconciliation ErrorKind = "RECONCILIATION_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by kind, and by code when the target carries one
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewKindError creates a domain error of the given kind
func NewKindError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Kind sentinels, usable with errors.Is to match any error of that kind
var (
	ErrValidation              = &DomainError{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound                = &DomainError{Kind: KindNotFound, Message: "Resource not found"}
	ErrInsufficientStock       = &DomainError{Kind: KindInsufficientStock, Message: "Insufficient stock available"}
	ErrInvalidTransition       = &DomainError{Kind: KindInvalidTransition, Message: "Operation not allowed in current state"}
	ErrReturnTargetAlreadySold = &DomainError{Kind: KindReturnTargetAlreadySold, Message: "Batch already has sold units"}
	ErrCancellationConflict    = &DomainError{Kind: KindCancellationConflict, Message: "Reversal conflicts with current state"}
	ErrReconciliation          = &DomainError{Kind: KindReconciliation, Message: "Ledger does not reconcile"}
)

// KindOf returns the kind of a domain error, or "" for other errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsBusinessError reports whether err is a business-rule violation rather than an integrity
// or infrastructure failure
func IsBusinessError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindInsufficientStock, KindInvalidTransition,
		KindReturnTargetAlreadySold, KindCancellationConflict:
		return true
	}
	return false
}
