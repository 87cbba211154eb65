package vesting

import "errors"

// Code is a machine-readable error code surfaced to API callers.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeDuplicatePool        Code = "DUPLICATE_POOL"
	CodeDuplicateGrant       Code = "DUPLICATE_GRANT"
	CodeNotPoolOwner         Code = "NOT_POOL_OWNER"
	CodeNotBeneficiary       Code = "NOT_BENEFICIARY"
	CodeClaimNotAvailable    Code = "CLAIM_NOT_AVAILABLE"
	CodeInvalidVestingPeriod Code = "INVALID_VESTING_PERIOD"
	CodeOverflow             Code = "OVERFLOW"
	CodeNoTokensToClaim      Code = "NO_TOKENS_TO_CLAIM"
	CodePoolNotFound         Code = "POOL_NOT_FOUND"
	CodeGrantNotFound        Code = "GRANT_NOT_FOUND"
	CodePoolMismatch         Code = "POOL_MISMATCH"
	CodeInvalidSchedule      Code = "INVALID_SCHEDULE"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeInvalidCompanyName   Code = "INVALID_COMPANY_NAME"
	CodeCompanyNameTooLong   Code = "COMPANY_NAME_TOO_LONG"
	CodeInvalidIdentity      Code = "INVALID_IDENTITY"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeUnauthorizedTransfer Code = "UNAUTHORIZED_TRANSFER"
	CodeConflict             Code = "CONFLICT"
)

// Error is a vesting failure with a stable code. Values are compared by identity,
// so wrap them with %w and test with errors.Is.
type Error struct {
	code Code
	msg  string
}

func newError(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Code returns the machine-readable code.
func (e *Error) Code() Code {
	return e.code
}

var (
	ErrDuplicatePool        = newError(CodeDuplicatePool, "vesting pool already exists for company")
	ErrDuplicateGrant       = newError(CodeDuplicateGrant, "grant already exists for beneficiary and pool")
	ErrNotPoolOwner         = newError(CodeNotPoolOwner, "caller is not the pool owner")
	ErrNotBeneficiary       = newError(CodeNotBeneficiary, "caller is not the grant beneficiary")
	ErrClaimNotAvailable    = newError(CodeClaimNotAvailable, "claiming is not available yet")
	ErrInvalidVestingPeriod = newError(CodeInvalidVestingPeriod, "invalid vesting period")
	ErrOverflow             = newError(CodeOverflow, "calculation overflow")
	ErrNoTokensToClaim      = newError(CodeNoTokensToClaim, "no tokens to claim")
	ErrPoolNotFound         = newError(CodePoolNotFound, "vesting pool not found")
	ErrGrantNotFound        = newError(CodeGrantNotFound, "grant not found")
	ErrPoolMismatch         = newError(CodePoolMismatch, "pool does not match grant")
	ErrInvalidSchedule      = newError(CodeInvalidSchedule, "invalid vesting schedule")
	ErrInvalidAmount        = newError(CodeInvalidAmount, "amount must be greater than zero")
	ErrInvalidCompanyName   = newError(CodeInvalidCompanyName, "company name must not be empty")
	ErrCompanyNameTooLong   = newError(CodeCompanyNameTooLong, "company name is too long")
	ErrInvalidIdentity      = newError(CodeInvalidIdentity, "invalid account identity")
	ErrInsufficientFunds    = newError(CodeInsufficientFunds, "insufficient funds in source account")
	ErrUnauthorizedTransfer = newError(CodeUnauthorizedTransfer, "transfer is not authorized")
	ErrConflict             = newError(CodeConflict, "concurrent modification detected")
)

// CodeOf returns the code of the first vesting error in err's chain.
func CodeOf(err error) Code {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.code
	}
	return CodeUnknown
}
