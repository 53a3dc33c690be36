package coin

import (
	"time"

	"github.com/google/uuid"
)

// TxType defines supported coin transaction types.
type TxType string

const (
	TxTypePurchase TxType = "purchase"
	TxTypeUnlock   TxType = "unlock"
)

// IsValid reports whether t is a known transaction type.
func (t TxType) IsValid() bool {
	switch t {
	case TxTypePurchase, TxTypeUnlock:
		return true
	}
	return false
}

// TxMeta is optional metadata attached to a ledger row.
type TxMeta struct {
	ReferenceType string
	ReferenceID   string
	Description   string
}

// Transaction is a coin_transactions ledger row.
type Transaction struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"-"`
	AmountDelta   int       `db:"amount_delta" json:"amount_delta"`
	BalanceAfter  int       `db:"balance_after" json:"balance_after"`
	TxType        TxType    `db:"tx_type" json:"tx_type"`
	ReferenceType *string   `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string   `db:"reference_id" json:"reference_id,omitempty"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps the page to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
