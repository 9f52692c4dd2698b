package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode identifies a domain failure. Codes are stable and appear in CLI
// output, audit events and scenario assertions.
type ErrorCode string

// ErrorClass groups codes for callers that only care about the kind of
// failure.
type ErrorClass string

const (
	ClassAuthorization ErrorClass = "AuthorizationError"
	ClassLimit         ErrorClass = "LimitError"
	ClassFunds         ErrorClass = "FundsError"
	ClassSecurity      ErrorClass = "SecurityError"
	ClassState         ErrorClass = "StateError"
	ClassGovernance    ErrorClass = "GovernanceError"
)

const (
	// AuthorizationError
	CodeInvalidAuthority     ErrorCode = "InvalidAuthority"
	CodeUnauthorizedDelegate ErrorCode = "UnauthorizedDelegate"
	CodeDelegateExpired      ErrorCode = "DelegateExpired"
	CodeNotAdmin             ErrorCode = "NotAdmin"
	CodeUnauthorized         ErrorCode = "Unauthorized"

	// LimitError
	CodeSpendingLimitExceeded  ErrorCode = "SpendingLimitExceeded"
	CodeIntentWouldExceedLimit ErrorCode = "IntentWouldExceedLimit"
	CodeArithmeticOverflow     ErrorCode = "ArithmeticOverflow"

	// FundsError
	CodeInsufficientFunds         ErrorCode = "InsufficientFunds"
	CodeIntentInsufficientFunds   ErrorCode = "IntentInsufficientFunds"
	CodeInsufficientTreasuryFunds ErrorCode = "InsufficientTreasuryFunds"

	// SecurityError
	CodeSuspiciousDestination ErrorCode = "SuspiciousDestination"
	CodeNeoShieldCheckFailed  ErrorCode = "NeoShieldCheckFailed"
	CodeLowReputationScore    ErrorCode = "LowReputationScore"

	// StateError
	CodeBankPaused          ErrorCode = "BankPaused"
	CodeHookDisabled        ErrorCode = "HookDisabled"
	CodeHookConditionNotMet ErrorCode = "HookConditionNotMet"
	CodeInvalidPercentage   ErrorCode = "InvalidPercentage"
	CodeInvalidProtocol     ErrorCode = "InvalidProtocol"
	CodeInvalidDestination  ErrorCode = "InvalidDestination"
	CodeInvalidFeeRate      ErrorCode = "InvalidFeeRate"
	CodeInvalidName         ErrorCode = "InvalidName"
	CodeNotFound            ErrorCode = "NotFound"

	// GovernanceError
	CodeTooManyAdmins       ErrorCode = "TooManyAdmins"
	CodeInvalidThreshold    ErrorCode = "InvalidThreshold"
	CodeProposalNotPending  ErrorCode = "ProposalNotPending"
	CodeProposalExpired     ErrorCode = "ProposalExpired"
	CodeProposalNotApproved ErrorCode = "ProposalNotApproved"
	CodeDuplicateAdmin      ErrorCode = "DuplicateAdmin"
	CodeAlreadyInitialized  ErrorCode = "AlreadyInitialized"
)

var codeClasses = map[ErrorCode]ErrorClass{
	CodeInvalidAuthority:     ClassAuthorization,
	CodeUnauthorizedDelegate: ClassAuthorization,
	CodeDelegateExpired:      ClassAuthorization,
	CodeNotAdmin:             ClassAuthorization,
	CodeUnauthorized:         ClassAuthorization,

	CodeSpendingLimitExceeded:  ClassLimit,
	CodeIntentWouldExceedLimit: ClassLimit,
	CodeArithmeticOverflow:     ClassLimit,

	CodeInsufficientFunds:         ClassFunds,
	CodeIntentInsufficientFunds:   ClassFunds,
	CodeInsufficientTreasuryFunds: ClassFunds,

	CodeSuspiciousDestination: ClassSecurity,
	CodeNeoShieldCheckFailed:  ClassSecurity,
	CodeLowReputationScore:    ClassSecurity,

	CodeBankPaused:          ClassState,
	CodeHookDisabled:        ClassState,
	CodeHookConditionNotMet: ClassState,
	CodeInvalidPercentage:   ClassState,
	CodeInvalidProtocol:     ClassState,
	CodeInvalidDestination:  ClassState,
	CodeInvalidFeeRate:      ClassState,
	CodeInvalidName:         ClassState,
	CodeNotFound:            ClassState,

	CodeTooManyAdmins:       ClassGovernance,
	CodeInvalidThreshold:    ClassGovernance,
	CodeProposalNotPending:  ClassGovernance,
	CodeProposalExpired:     ClassGovernance,
	CodeProposalNotApproved: ClassGovernance,
	CodeDuplicateAdmin:      ClassGovernance,
	CodeAlreadyInitialized:  ClassGovernance,
}

// Class returns the class a code belongs to, or "" for unknown codes.
func (c ErrorCode) Class() ErrorClass {
	return codeClasses[c]
}

// Error is the single typed failure returned by every engine operation.
//
// Two Errors match under errors.Is when their codes are equal, so callers
// compare against the sentinels below even when the returned value carries
// details:
//
//	if errors.Is(err, model.ErrBankPaused) { ... }
type Error struct {
	// Code identifies the failure.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (amounts, identities, reasons).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Details[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is matches on code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Class returns the error's class.
func (e *Error) Class() ErrorClass {
	return e.Code.Class()
}

// With returns a copy of e carrying an additional detail.
// Sentinels are never mutated.
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// Sentinels, one per code.
var (
	ErrInvalidAuthority     = &Error{Code: CodeInvalidAuthority, Message: "invalid authority"}
	ErrUnauthorizedDelegate = &Error{Code: CodeUnauthorizedDelegate, Message: "delegate is not permitted to perform this action"}
	ErrDelegateExpired      = &Error{Code: CodeDelegateExpired, Message: "delegate authorization has expired"}
	ErrNotAdmin             = &Error{Code: CodeNotAdmin, Message: "not an admin"}
	ErrUnauthorized         = &Error{Code: CodeUnauthorized, Message: "only the bank admin can perform this action"}

	ErrSpendingLimitExceeded  = &Error{Code: CodeSpendingLimitExceeded, Message: "spending limit exceeded for the current period"}
	ErrIntentWouldExceedLimit = &Error{Code: CodeIntentWouldExceedLimit, Message: "intent would exceed spending limit"}
	ErrArithmeticOverflow     = &Error{Code: CodeArithmeticOverflow, Message: "amount arithmetic overflow"}

	ErrInsufficientFunds         = &Error{Code: CodeInsufficientFunds, Message: "amount exceeds balance"}
	ErrIntentInsufficientFunds   = &Error{Code: CodeIntentInsufficientFunds, Message: "intent exceeds vault balance"}
	ErrInsufficientTreasuryFunds = &Error{Code: CodeInsufficientTreasuryFunds, Message: "insufficient treasury funds"}

	ErrSuspiciousDestination = &Error{Code: CodeSuspiciousDestination, Message: "destination flagged as suspicious"}
	ErrNeoShieldCheckFailed  = &Error{Code: CodeNeoShieldCheckFailed, Message: "destination screening failed"}
	ErrLowReputationScore    = &Error{Code: CodeLowReputationScore, Message: "destination reputation score too low"}

	ErrBankPaused          = &Error{Code: CodeBankPaused, Message: "bank is paused"}
	ErrHookDisabled        = &Error{Code: CodeHookDisabled, Message: "hook is disabled"}
	ErrHookConditionNotMet = &Error{Code: CodeHookConditionNotMet, Message: "hook condition not met"}
	ErrInvalidPercentage   = &Error{Code: CodeInvalidPercentage, Message: "percentage must be between 0 and 100"}
	ErrInvalidProtocol     = &Error{Code: CodeInvalidProtocol, Message: "invalid protocol for this operation"}
	ErrInvalidDestination  = &Error{Code: CodeInvalidDestination, Message: "invalid destination"}
	ErrInvalidFeeRate      = &Error{Code: CodeInvalidFeeRate, Message: "fee rate must be at most 10000 basis points"}
	ErrInvalidName         = &Error{Code: CodeInvalidName, Message: "agent name must be 1 to 32 characters"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "record not found"}

	ErrTooManyAdmins       = &Error{Code: CodeTooManyAdmins, Message: "too many admins (max 5)"}
	ErrInvalidThreshold    = &Error{Code: CodeInvalidThreshold, Message: "threshold must be between 1 and the admin count"}
	ErrProposalNotPending  = &Error{Code: CodeProposalNotPending, Message: "proposal is not pending"}
	ErrProposalExpired     = &Error{Code: CodeProposalExpired, Message: "proposal has expired"}
	ErrProposalNotApproved = &Error{Code: CodeProposalNotApproved, Message: "proposal is not approved"}
	ErrDuplicateAdmin      = &Error{Code: CodeDuplicateAdmin, Message: "admin listed more than once"}
	ErrAlreadyInitialized  = &Error{Code: CodeAlreadyInitialized, Message: "already initialized"}
)

// CodeOf extracts the domain code from err, or "" if err is not a domain
// error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsClass reports whether err is a domain error of the given class.
func IsClass(err error, class ErrorClass) bool {
	code := CodeOf(err)
	return code != "" && code.Class() == class
}
