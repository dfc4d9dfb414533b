package services

import "errors"

// Domain error kinds. Callers match with errors.Is; mutating operations are
// all-or-nothing, so any of these means the ledger is exactly as it was
// before the call.
var (
	// ErrNotFound signals the account or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals bad input the caller must correct before resubmitting.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is a business rejection of a withdrawal or fee, not a fault.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateActiveAccount rejects a second active account for the same
	// (property, account type) pair.
	ErrDuplicateActiveAccount = errors.New("active account already exists for property and type")

	// ErrNonZeroBalance rejects deactivating an account that still holds funds.
	ErrNonZeroBalance = errors.New("account balance must be zero")

	// ErrSameAccountTransfer rejects a transfer where both legs name one account.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrInvalidInterestConfig rejects an interest-bearing account without a
	// positive annual rate.
	ErrInvalidInterestConfig = errors.New("interest-bearing account requires a rate greater than zero")
)
