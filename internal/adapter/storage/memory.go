package storage

import (
	"context"
	"sync"
	"time"

	"github.com/michaelmgp/obs/internal/core/domain"
)

// memTable keeps rows in insertion order with an auto-increment counter, the
// same shape a SQL table with an auto-increment id has. Soft-deleted rows
// stay in the slice as the audit trail.
type memTable[T any] struct {
	seq  int64
	rows []T
}

func (t *memTable[T]) nextID() int64 {
	t.seq++
	return t.seq
}

func findIndex[T any](rows []T, id int64, idOf func(T) int64, alive func(T) bool) int {
	for i, row := range rows {
		if idOf(row) == id && alive(row) {
			return i
		}
	}
	return -1
}

func paginate[T any](rows []T, page domain.PageRequest, alive func(T) bool) domain.Page[T] {
	page = page.Normalize()

	living := make([]T, 0, len(rows))
	for _, row := range rows {
		if alive(row) {
			living = append(living, row)
		}
	}

	start := page.Offset()
	if start > len(living) {
		start = len(living)
	}
	end := start + page.Size
	if end > len(living) {
		end = len(living)
	}

	return domain.NewPage(living[start:end], page, int64(len(living)))
}

// MemoryStore is an in-process implementation of port.Store used by unit
// tests and the memory run mode. A single mutex serializes all mutations,
// which trivially satisfies the per-item and order-numbering serialization
// the composite operations require.
type MemoryStore struct {
	mu           sync.Mutex
	items        memTable[domain.Item]
	inventories  memTable[domain.Inventory]
	transactions memTable[domain.InventoryTransaction]
	orders       memTable[domain.Order]
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func itemID(i domain.Item) int64                 { return i.ID }
func itemAlive(i domain.Item) bool               { return i.DeletedAt == nil }
func invID(i domain.Inventory) int64             { return i.ID }
func invAlive(i domain.Inventory) bool           { return i.DeletedAt == nil }
func txID(t domain.InventoryTransaction) int64   { return t.ID }
func txAlive(t domain.InventoryTransaction) bool { return t.DeletedAt == nil }
func orderID(o domain.Order) int64               { return o.ID }
func orderAlive(o domain.Order) bool             { return o.DeletedAt == nil }

func (s *MemoryStore) CreateItem(_ context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// uniqueness spans soft-deleted rows, same as the unique index in SQL
	for _, existing := range s.items.rows {
		if existing.Name == item.Name {
			return domain.Item{}, domain.ErrDuplicate
		}
	}

	item.ID = s.items.nextID()
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt
	item.DeletedAt = nil
	s.items.rows = append(s.items.rows, item)

	return item, nil
}

func (s *MemoryStore) ItemByID(_ context.Context, id int64) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.items.rows, id, itemID, itemAlive)
	if i < 0 {
		return domain.Item{}, domain.ErrNotFound
	}

	return s.items.rows[i], nil
}

func (s *MemoryStore) Items(_ context.Context, page domain.PageRequest) (domain.Page[domain.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return paginate(s.items.rows, page, itemAlive), nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.items.rows, item.ID, itemID, itemAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	for j, existing := range s.items.rows {
		if j != i && existing.Name == item.Name {
			return domain.ErrDuplicate
		}
	}

	s.items.rows[i].Name = item.Name
	s.items.rows[i].Price = item.Price
	s.items.rows[i].UpdatedAt = s.now()

	return nil
}

func (s *MemoryStore) SoftDeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.items.rows, id, itemID, itemAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	now := s.now()
	s.items.rows[i].DeletedAt = &now
	s.items.rows[i].UpdatedAt = now

	return nil
}

func (s *MemoryStore) CreateInventory(_ context.Context, inv domain.Inventory) (domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.inventories.rows {
		if existing.ItemID == inv.ItemID {
			return domain.Inventory{}, domain.ErrDuplicate
		}
	}

	inv = s.insertInventory(inv)

	return inv, nil
}

func (s *MemoryStore) InventoryByID(_ context.Context, id int64) (domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.inventories.rows, id, invID, invAlive)
	if i < 0 {
		return domain.Inventory{}, domain.ErrNotFound
	}

	return s.inventories.rows[i], nil
}

func (s *MemoryStore) InventoryByItemID(_ context.Context, itemID int64) (domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.aliveInventoryIndex(itemID)
	if i < 0 {
		return domain.Inventory{}, domain.ErrNotFound
	}

	return s.inventories.rows[i], nil
}

func (s *MemoryStore) Inventories(_ context.Context, page domain.PageRequest) (domain.Page[domain.Inventory], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return paginate(s.inventories.rows, page, invAlive), nil
}

func (s *MemoryStore) UpdateInventory(_ context.Context, inv domain.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.inventories.rows, inv.ID, invID, invAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	s.inventories.rows[i].ItemID = inv.ItemID
	s.inventories.rows[i].Stock = inv.Stock
	s.inventories.rows[i].UpdatedAt = s.now()

	return nil
}

func (s *MemoryStore) SoftDeleteInventory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.inventories.rows, id, invID, invAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	now := s.now()
	s.inventories.rows[i].DeletedAt = &now
	s.inventories.rows[i].UpdatedAt = now

	return nil
}

func (s *MemoryStore) RecordTransaction(_ context.Context, tx domain.InventoryTransaction) (domain.InventoryTransaction, domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.applyToLedger(tx)
	if err != nil {
		return domain.InventoryTransaction{}, domain.Inventory{}, err
	}

	tx = s.insertTransaction(tx)

	return tx, inv, nil
}

func (s *MemoryStore) TransactionByID(_ context.Context, id int64) (domain.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.transactions.rows, id, txID, txAlive)
	if i < 0 {
		return domain.InventoryTransaction{}, domain.ErrNotFound
	}

	return s.transactions.rows[i], nil
}

func (s *MemoryStore) Transactions(_ context.Context, page domain.PageRequest) (domain.Page[domain.InventoryTransaction], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return paginate(s.transactions.rows, page, txAlive), nil
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, tx domain.InventoryTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.transactions.rows, tx.ID, txID, txAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	s.transactions.rows[i].ItemID = tx.ItemID
	s.transactions.rows[i].Qty = tx.Qty
	s.transactions.rows[i].Type = tx.Type
	s.transactions.rows[i].UpdatedAt = s.now()

	return nil
}

func (s *MemoryStore) SoftDeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.transactions.rows, id, txID, txAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	now := s.now()
	s.transactions.rows[i].DeletedAt = &now
	s.transactions.rows[i].UpdatedAt = now

	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order domain.Order, withdrawal domain.InventoryTransaction) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.applyToLedger(withdrawal); err != nil {
		return domain.Order{}, err
	}

	s.insertTransaction(withdrawal)

	next, err := domain.NextOrderNo(s.lastOrderNo())
	if err != nil {
		return domain.Order{}, err
	}
	order.OrderNo = next

	order.ID = s.orders.nextID()
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt
	order.DeletedAt = nil
	s.orders.rows = append(s.orders.rows, order)

	return order, nil
}

func (s *MemoryStore) OrderByID(_ context.Context, id int64) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.orders.rows, id, orderID, orderAlive)
	if i < 0 {
		return domain.Order{}, domain.ErrNotFound
	}

	return s.orders.rows[i], nil
}

func (s *MemoryStore) Orders(_ context.Context, page domain.PageRequest) (domain.Page[domain.Order], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return paginate(s.orders.rows, page, orderAlive), nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.orders.rows, order.ID, orderID, orderAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	// the order number and the price snapshot survive updates
	s.orders.rows[i].ItemID = order.ItemID
	s.orders.rows[i].Qty = order.Qty
	s.orders.rows[i].UpdatedAt = s.now()

	return nil
}

func (s *MemoryStore) SoftDeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findIndex(s.orders.rows, id, orderID, orderAlive)
	if i < 0 {
		return domain.ErrNotFound
	}

	now := s.now()
	s.orders.rows[i].DeletedAt = &now
	s.orders.rows[i].UpdatedAt = now

	return nil
}

// AuditTransactions returns every transaction row including soft-deleted
// ones, bypassing the liveness filter the port methods apply.
func (s *MemoryStore) AuditTransactions() []domain.InventoryTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.InventoryTransaction, len(s.transactions.rows))
	copy(out, s.transactions.rows)

	return out
}

// AuditOrders returns every order row including soft-deleted ones.
func (s *MemoryStore) AuditOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, len(s.orders.rows))
	copy(out, s.orders.rows)

	return out
}

// applyToLedger mutates the inventory row for tx.ItemID per the ledger rules
// and returns the row after the change. Callers hold the store mutex.
func (s *MemoryStore) applyToLedger(tx domain.InventoryTransaction) (domain.Inventory, error) {
	// the ledger addresses the per-item row even when it is soft-deleted;
	// deletion only hides it from reads
	i := s.anyInventoryIndex(tx.ItemID)

	if i < 0 {
		if tx.Type == domain.TypeWithdrawal {
			return domain.Inventory{}, domain.OutOfStock()
		}
		inv := s.insertInventory(domain.Inventory{ItemID: tx.ItemID, Stock: tx.Qty})
		return inv, nil
	}

	next, err := s.inventories.rows[i].Apply(tx.Type, tx.Qty)
	if err != nil {
		return domain.Inventory{}, err
	}

	s.inventories.rows[i].Stock = next
	s.inventories.rows[i].UpdatedAt = s.now()

	return s.inventories.rows[i], nil
}

func (s *MemoryStore) insertInventory(inv domain.Inventory) domain.Inventory {
	inv.ID = s.inventories.nextID()
	inv.CreatedAt = s.now()
	inv.UpdatedAt = inv.CreatedAt
	inv.DeletedAt = nil
	s.inventories.rows = append(s.inventories.rows, inv)

	return inv
}

func (s *MemoryStore) insertTransaction(tx domain.InventoryTransaction) domain.InventoryTransaction {
	tx.ID = s.transactions.nextID()
	tx.CreatedAt = s.now()
	tx.UpdatedAt = tx.CreatedAt
	tx.DeletedAt = nil
	s.transactions.rows = append(s.transactions.rows, tx)

	return tx
}

// lastOrderNo includes soft-deleted orders: their numbers stay consumed, so
// the sequence never reissues one.
func (s *MemoryStore) lastOrderNo() string {
	if n := len(s.orders.rows); n > 0 {
		return s.orders.rows[n-1].OrderNo
	}
	return ""
}

func (s *MemoryStore) aliveInventoryIndex(itemID int64) int {
	for i, inv := range s.inventories.rows {
		if invAlive(inv) && inv.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) anyInventoryIndex(itemID int64) int {
	for i, inv := range s.inventories.rows {
		if inv.ItemID == itemID {
			return i
		}
	}
	return -1
}
