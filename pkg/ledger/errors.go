package ledger

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how a caller should react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindVerification Kind = "verification"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindTransient    Kind = "transient"
	KindFatal        Kind = "fatal"
)

// Code is the stable identifier returned to clients.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeDuplicateDeposit     Code = "DUPLICATE_DEPOSIT"
	CodeVerificationFailed   Code = "VERIFICATION_FAILED"
	CodeVerifierUnavailable  Code = "VERIFIER_UNAVAILABLE"
	CodeSessionActive        Code = "SESSION_ACTIVE"
	CodeInvalidSession       Code = "INVALID_SESSION"
	CodeNotOwner             Code = "NOT_OWNER"
	CodeAlreadySettled       Code = "ALREADY_SETTLED"
	CodeSessionExpired       Code = "SESSION_EXPIRED"
	CodeSettlementInProgress Code = "SETTLEMENT_IN_PROGRESS"
	CodePriceUnavailable     Code = "PRICE_UNAVAILABLE"
	CodePayoutFailed         Code = "PAYOUT_FAILED"
	CodePayoutPending        Code = "PAYOUT_PENDING"
	CodeCustodyAddressLocked Code = "CUSTODY_ADDRESS_LOCKED"
	CodeLockTimeout          Code = "LOCK_TIMEOUT"
	CodeConcurrentUpdate     Code = "CONCURRENT_UPDATE"
	CodeInvariantViolation   Code = "INVARIANT_VIOLATION"
	CodeUnavailable          Code = "SERVICE_UNAVAILABLE"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the typed error returned by every Engine operation.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation           = &Error{Kind: KindValidation, Code: CodeValidation, Message: "invalid request"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Code: CodeUserNotFound, Message: "user not found"}
	ErrDuplicateDeposit     = &Error{Kind: KindConflict, Code: CodeDuplicateDeposit, Message: "deposit reference already used"}
	ErrVerificationFailed   = &Error{Kind: KindVerification, Code: CodeVerificationFailed, Message: "deposit could not be verified"}
	ErrVerifierUnavailable  = &Error{Kind: KindTransient, Code: CodeVerifierUnavailable, Message: "deposit verification is temporarily unavailable"}
	ErrSessionActive        = &Error{Kind: KindConflict, Code: CodeSessionActive, Message: "user already has an active session"}
	ErrInvalidSession       = &Error{Kind: KindNotFound, Code: CodeInvalidSession, Message: "session not found"}
	ErrNotOwner             = &Error{Kind: KindConflict, Code: CodeNotOwner, Message: "session belongs to another user"}
	ErrAlreadySettled       = &Error{Kind: KindConflict, Code: CodeAlreadySettled, Message: "session already settled"}
	ErrSessionExpired       = &Error{Kind: KindConflict, Code: CodeSessionExpired, Message: "session expired"}
	ErrSettlementInProgress = &Error{Kind: KindConflict, Code: CodeSettlementInProgress, Message: "settlement already in progress"}
	ErrPriceUnavailable     = &Error{Kind: KindTransient, Code: CodePriceUnavailable, Message: "price unavailable"}
	ErrPayoutFailed         = &Error{Kind: KindTransient, Code: CodePayoutFailed, Message: "payout failed"}
	ErrPayoutPending        = &Error{Kind: KindTransient, Code: CodePayoutPending, Message: "payout submitted, outcome pending reconciliation"}
	ErrCustodyAddressLocked = &Error{Kind: KindConflict, Code: CodeCustodyAddressLocked, Message: "custody address cannot be changed"}
	ErrLockTimeout          = &Error{Kind: KindTransient, Code: CodeLockTimeout, Message: "timed out waiting for user lock"}
	ErrConcurrentUpdate     = &Error{Kind: KindTransient, Code: CodeConcurrentUpdate, Message: "user record changed concurrently"}
	ErrInvariantViolation   = &Error{Kind: KindFatal, Code: CodeInvariantViolation, Message: "ledger invariant violated"}
	ErrUnavailable          = &Error{Kind: KindTransient, Code: CodeUnavailable, Message: "service temporarily unavailable"}
	ErrInternal             = &Error{Kind: KindFatal, Code: CodeInternal, Message: "internal error"}
)

// newError derives a detailed error from one of the package sentinels.
func newError(base *Error, err error, format string, args ...any) *Error {
	msg := base.Message
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: base.Kind, Code: base.Code, Message: msg, Err: err}
}

// KindOf returns the kind of a ledger error, or KindFatal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// CodeOf returns the code of a ledger error, or CodeInternal for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
