package domain

import "time"

type TransactionType string

const (
	TypeTopUp      TransactionType = "T"
	TypeWithdrawal TransactionType = "W"
)

const transactionTypeMessage = "Type must be either 'T' for Top Up or 'W' for Withdrawal"

func (t TransactionType) Valid() bool {
	return t == TypeTopUp || t == TypeWithdrawal
}

// InventoryTransaction is the append-style record of a single stock change.
// Once applied it moves Inventory.Stock by +Qty (top-up) or -Qty (withdrawal).
type InventoryTransaction struct {
	ID        int64           `db:"id" json:"id"`
	ItemID    int64           `db:"item_id" json:"itemId"`
	Qty       int             `db:"qty" json:"qty"`
	Type      TransactionType `db:"type" json:"type"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time      `db:"deleted_at" json:"deletedAt,omitempty"`
}

func (t InventoryTransaction) Validate() error {
	ve := newValidationError()

	if t.ItemID <= 0 {
		ve.Fields["itemId"] = "must be positive"
	}
	if t.Qty <= 0 {
		ve.Fields["qty"] = "must be positive"
	}
	if !t.Type.Valid() {
		ve.Fields["type"] = transactionTypeMessage
	}

	if len(ve.Fields) > 0 {
		return ve
	}

	return nil
}
