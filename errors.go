package genie

import "errors"

// Sentinel errors for every caller-visible failure. Each one is
// synchronous and leaves state exactly as it was before the call.
var (
	// General errors
	ErrNotFound      = errors.New("genie: not found")
	ErrAlreadyExists = errors.New("genie: already exists")
	ErrInvalidInput  = errors.New("genie: invalid input")

	// Service registry errors
	ErrServiceNotFound    = errors.New("genie: service not found")
	ErrInvalidEndDate     = errors.New("genie: end date must be in the future")
	ErrInvalidCycleLength = errors.New("genie: cycle length must be positive")
	ErrServiceIsPaused    = errors.New("genie: service is paused")

	// Subscription errors
	ErrAlreadySubscribed    = errors.New("genie: already subscribed")
	ErrNoActiveSubscription = errors.New("genie: no active subscription")
	ErrIncorrectPayment     = errors.New("genie: payment must equal price times periods")

	// Authorization errors
	ErrNotServiceOwner  = errors.New("genie: caller is not the service owner")
	ErrNotContractOwner = errors.New("genie: caller is not the contract owner")

	// Withdrawal errors
	ErrAmountMustBeGreaterThanZero = errors.New("genie: amount must be greater than zero")
	ErrInsufficientBalance         = errors.New("genie: insufficient balance")
	ErrTransferFailed              = errors.New("genie: outbound transfer failed")

	// Boundary errors
	ErrUnrecognizedOperation = errors.New("genie: unrecognized operation")
	ErrUnsolicitedPayment    = errors.New("genie: unsolicited payment")

	// Store errors
	ErrStoreClosed     = errors.New("genie: store is closed")
	ErrMigrationFailed = errors.New("genie: migration failed")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrServiceNotFound)
}

// IsAuthorizationError returns true if the error is an ownership check
// failure.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotServiceOwner) ||
		errors.Is(err, ErrNotContractOwner)
}

// IsPaymentError returns true if the error is related to attached or
// withdrawable funds.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrIncorrectPayment) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAmountMustBeGreaterThanZero) ||
		errors.Is(err, ErrUnsolicitedPayment) ||
		errors.Is(err, ErrTransferFailed)
}
