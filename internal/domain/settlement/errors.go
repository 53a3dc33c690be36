package settlement

import "errors"

var (
	ErrInvalidEvent = errors.New("invalid payment event")

	// ErrDuplicateEvent signals that the event was already applied; Settle
	// turns it into OutcomeDuplicate.
	ErrDuplicateEvent = errors.New("payment event already processed")

	// ErrUserResolution means no account matches the purchaser. Redelivery
	// cannot fix it, so the event is dropped.
	ErrUserResolution = errors.New("payment event user not found")
)
