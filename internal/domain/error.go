package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrValidation         = errors.New("invalid input")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("conflicting state change")
	ErrBlocked            = errors.New("account is blocked")
	ErrNotEntitled        = errors.New("no active entitlement")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrBadSignature       = errors.New("invalid callback signature")
	ErrCodeAlreadyUsed    = errors.New("activation code already bound to another device")
	ErrCodeExhausted      = errors.New("could not generate a unique activation code")
	ErrInference          = errors.New("inference call failed")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
