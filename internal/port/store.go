package port

import (
	"context"

	"github.com/michaelmgp/obs/internal/core/domain"
)

// Store is the persistence contract shared by the MySQL and in-memory
// adapters. All lookups exclude soft-deleted rows; deletes only stamp
// deleted_at. The two composite operations, RecordTransaction and
// CreateOrder, must be atomic: on failure no row is written, and stock
// mutations for one item are serialized against each other.
type Store interface {
	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)
	ItemByID(ctx context.Context, id int64) (domain.Item, error)
	Items(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Item], error)
	UpdateItem(ctx context.Context, item domain.Item) error
	SoftDeleteItem(ctx context.Context, id int64) error

	CreateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error)
	InventoryByID(ctx context.Context, id int64) (domain.Inventory, error)
	InventoryByItemID(ctx context.Context, itemID int64) (domain.Inventory, error)
	Inventories(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Inventory], error)
	UpdateInventory(ctx context.Context, inv domain.Inventory) error
	SoftDeleteInventory(ctx context.Context, id int64) error

	// RecordTransaction applies tx to the inventory ledger and persists the
	// transaction record in one unit: lazily creates the inventory row on a
	// first top-up, fails with OutOfStock on a withdrawal without a row, and
	// with InsufficientStock when stock would go negative.
	RecordTransaction(ctx context.Context, tx domain.InventoryTransaction) (domain.InventoryTransaction, domain.Inventory, error)
	TransactionByID(ctx context.Context, id int64) (domain.InventoryTransaction, error)
	Transactions(ctx context.Context, page domain.PageRequest) (domain.Page[domain.InventoryTransaction], error)
	// UpdateTransaction rewrites the stored record in place without
	// re-running ledger arithmetic.
	UpdateTransaction(ctx context.Context, tx domain.InventoryTransaction) error
	SoftDeleteTransaction(ctx context.Context, id int64) error

	// CreateOrder debits stock via withdrawal, records the withdrawal,
	// assigns the next order number from the highest prior order, and
	// persists the order, all in one unit. A concurrent allocation of the
	// same number surfaces as Conflict and leaves no partial state.
	CreateOrder(ctx context.Context, order domain.Order, withdrawal domain.InventoryTransaction) (domain.Order, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
	Orders(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Order], error)
	// UpdateOrder rewrites the mutable order fields; the order number and the
	// price snapshot are immutable once assigned.
	UpdateOrder(ctx context.Context, order domain.Order) error
	SoftDeleteOrder(ctx context.Context, id int64) error
}
