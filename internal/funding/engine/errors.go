package engine

import "fmt"

// Error is a rejected engine operation. Every failure leaves pool and ledger
// state untouched; none are retryable without the caller correcting the
// request.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the error code so wrapped errors compare against sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrValidation        = &Error{Code: "VALIDATION_ERROR", Message: "invalid input"}
	ErrInvalidState      = &Error{Code: "INVALID_STATE", Message: "operation not allowed in current state"}
	ErrPoolNotOpen       = &Error{Code: "POOL_NOT_OPEN", Message: "pool is not open for investment"}
	ErrPoolNotFilled     = &Error{Code: "POOL_NOT_FILLED", Message: "pool is not fully funded"}
	ErrPoolNotDisbursed  = &Error{Code: "POOL_NOT_DISBURSED", Message: "pool has not been disbursed"}
	ErrCapacityExceeded  = &Error{Code: "CAPACITY_EXCEEDED", Message: "investment exceeds tranche capacity"}
	ErrAlreadyExists     = &Error{Code: "ALREADY_EXISTS", Message: "pool already exists for this invoice"}
	ErrNotFound          = &Error{Code: "NOT_FOUND", Message: "pool not found"}
	ErrGracePeriodActive = &Error{Code: "GRACE_PERIOD_ACTIVE", Message: "grace period has not expired"}
	ErrOverAllocation    = &Error{Code: "OVER_ALLOCATION", Message: "repayment allocation does not reconcile"}
	ErrEngineDisabled    = &Error{Code: "ENGINE_DISABLED", Message: "engine is disabled"}
)

func validationError(format string, args ...interface{}) *Error {
	return newError(ErrValidation.Code, format, args...)
}
