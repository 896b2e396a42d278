// Package errs provides the structured error taxonomy shared across the
// contest engine. Every user-visible failure carries a machine-readable
// Kind plus a human-readable reason; callers branch on Kind, never on
// message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies an engine error category.
type Kind string

const (
	// KindValidation indicates malformed input, rejected before any mutation.
	KindValidation Kind = "validation_error"
	// KindInsufficientBalance indicates the participant cannot cover the trade cost.
	KindInsufficientBalance Kind = "insufficient_balance"
	// KindTradeLimitExceeded indicates a per-participant trade or position cap was hit.
	KindTradeLimitExceeded Kind = "trade_limit_exceeded"
	// KindContestNotJoinable indicates the contest is in the wrong lifecycle state,
	// full, or the user already joined.
	KindContestNotJoinable Kind = "contest_not_joinable"
	// KindAlreadyClosed indicates an attempt to close a trade twice.
	KindAlreadyClosed Kind = "already_closed"
	// KindNotFound indicates a missing contest, trade, or participant.
	KindNotFound Kind = "not_found"
	// KindConcurrentModification is the optimistic-lock retry signal.
	// Recoverable: retry against fresh state.
	KindConcurrentModification Kind = "concurrent_modification"
	// KindSettlementConflict indicates attempted re-settlement. Treated as
	// success-no-op by the coordinator, never surfaced as a user error.
	KindSettlementConflict Kind = "settlement_conflict"
	// KindUnavailable indicates market data or the payment gateway is down.
	// Triggers last-known-value fallback behavior.
	KindUnavailable Kind = "external_dependency_unavailable"
	// KindInternal captures uncategorized failures.
	KindInternal Kind = "internal"
)

// E is the structured error carried through the engine.
type E struct {
	Kind   Kind
	Reason string
	cause  error
}

// New constructs an error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap constructs an error of the given kind wrapping a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *E {
	return &E{Kind: kind, Reason: fmt.Sprintf(format, args...), cause: cause}
}

func (e *E) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *E) Unwrap() error {
	return e.cause
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the caller may safely retry the operation
// against fresh state.
func Retryable(err error) bool {
	return KindOf(err) == KindConcurrentModification
}
