package domain

import (
	"errors"
	"fmt"
)

// RejectionKind classifies why a request was refused. Every kind is an
// expected, recoverable outcome surfaced to the caller, never a system fault.
type RejectionKind string

const (
	// RejectionInvalidArgument covers missing identifiers and non-positive amounts.
	RejectionInvalidArgument RejectionKind = "INVALID_ARGUMENT"
	// RejectionSelfTransfer covers transfers where source and destination match.
	RejectionSelfTransfer RejectionKind = "SELF_TRANSFER"
	// RejectionNotFound covers identifiers that resolve to no benefit.
	RejectionNotFound RejectionKind = "NOT_FOUND"
	// RejectionInactiveBenefit covers transfers touching an inactive benefit.
	RejectionInactiveBenefit RejectionKind = "INACTIVE_BENEFIT"
	// RejectionInsufficientFunds covers source balances below the requested amount.
	RejectionInsufficientFunds RejectionKind = "INSUFFICIENT_FUNDS"
	// RejectionConcurrencyConflict covers version token mismatches on the update path.
	RejectionConcurrencyConflict RejectionKind = "CONCURRENCY_CONFLICT"
	// RejectionLockTimeout covers bounded lock waits that expired before acquisition.
	RejectionLockTimeout RejectionKind = "LOCK_TIMEOUT"
)

// Retryable reports whether retrying the same request can succeed without the
// caller changing anything. Contention outcomes are retryable; business rule
// violations are not.
func (k RejectionKind) Retryable() bool {
	return k == RejectionLockTimeout || k == RejectionConcurrencyConflict
}

// RejectionError is a tagged rejection of a request. Callers branch on Kind
// rather than matching message text.
type RejectionError struct {
	Kind    RejectionKind
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewRejection builds a RejectionError with a formatted message.
func NewRejection(kind RejectionKind, format string, args ...any) *RejectionError {
	return &RejectionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the rejection kind from err, unwrapping as needed.
// The second return is false when err is not a rejection.
func KindOf(err error) (RejectionKind, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind, true
	}
	return "", false
}

// IsRejection reports whether err is a rejection of the given kind.
func IsRejection(err error, kind RejectionKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
