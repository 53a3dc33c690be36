package coin

import "errors"

var (
	// ErrInsufficientBalance is returned when a debit exceeds the user's coins
	ErrInsufficientBalance = errors.New("insufficient coin balance")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable wraps every infrastructure failure of the balance store
	ErrStoreUnavailable = errors.New("coin store unavailable")
)
