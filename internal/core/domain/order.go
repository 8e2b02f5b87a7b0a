package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const orderNoPrefix = "O"

// Order records a purchase. OrderNo is assigned once at creation and Price is
// the catalog price snapshotted at that moment, never re-derived.
type Order struct {
	ID        int64      `db:"id" json:"id"`
	OrderNo   string     `db:"order_no" json:"orderNo"`
	ItemID    int64      `db:"item_id" json:"itemId"`
	Qty       int        `db:"qty" json:"qty"`
	Price     int        `db:"price" json:"price"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

func (o Order) Validate() error {
	ve := newValidationError()

	if o.ItemID <= 0 {
		ve.Fields["itemId"] = "must be positive"
	}
	if o.Qty <= 0 {
		ve.Fields["qty"] = "must be positive"
	}

	if len(ve.Fields) > 0 {
		return ve
	}

	return nil
}

// ParseOrderNo extracts the numeric suffix from an "O"+N order number.
func ParseOrderNo(no string) (int64, error) {
	suffix, found := strings.CutPrefix(no, orderNoPrefix)
	if !found {
		return 0, fmt.Errorf("order number %q lacks the %q prefix", no, orderNoPrefix)
	}

	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("order number %q has an invalid numeric suffix", no)
	}

	return n, nil
}

// NextOrderNo returns the order number following last, or "O1" when last is
// empty (no prior order).
func NextOrderNo(last string) (string, error) {
	if last == "" {
		return orderNoPrefix + "1", nil
	}

	n, err := ParseOrderNo(last)
	if err != nil {
		return "", err
	}

	return orderNoPrefix + strconv.FormatInt(n+1, 10), nil
}
