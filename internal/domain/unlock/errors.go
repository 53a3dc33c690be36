package unlock

import (
	"errors"
	"fmt"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
)

var (
	ErrAuthRequired    = errors.New("sign in to unlock contact details")
	ErrAlreadyUnlocked = errors.New("contact already unlocked")
	ErrPriceChanged    = errors.New("unlock price changed")
	ErrAccountBanned   = errors.New("account is banned")
)

// InsufficientBalanceError carries what the viewer needs to top up.
type InsufficientBalanceError struct {
	Required int
	Balance  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient coin balance: need %d, have %d", e.Required, e.Balance)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return coin.ErrInsufficientBalance
}
