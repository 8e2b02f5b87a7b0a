package domain

import "time"

type Inventory struct {
	ID        int64      `db:"id" json:"id"`
	ItemID    int64      `db:"item_id" json:"itemId"`
	Stock     int        `db:"stock" json:"stock"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

func (inv Inventory) Validate() error {
	ve := newValidationError()

	if inv.ItemID <= 0 {
		ve.Fields["itemId"] = "must be positive"
	}
	if inv.Stock < 0 {
		ve.Fields["stock"] = "must be zero or positive"
	}

	if len(ve.Fields) > 0 {
		return ve
	}

	return nil
}

// Apply computes the stock level after a transaction. It never mutates the
// receiver and fails with InsufficientStock when a withdrawal would drive the
// level negative, leaving the caller free to abort without any write.
func (inv Inventory) Apply(t TransactionType, qty int) (int, error) {
	next := inv.Stock

	switch t {
	case TypeTopUp:
		next += qty
	case TypeWithdrawal:
		next -= qty
	default:
		ve := newValidationError()
		ve.Fields["type"] = transactionTypeMessage
		return inv.Stock, ve
	}

	if next < 0 {
		return inv.Stock, InsufficientStock()
	}

	return next, nil
}
