package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/michaelmgp/obs/internal/core/domain"
)

const (
	tableItems        = "items"
	tableInventory    = "inventory"
	tableTransactions = "inventory_transactions"
	tableOrders       = "orders"

	colID        = "id"
	colItemID    = "item_id"
	colDeletedAt = "deleted_at"
	colUpdatedAt = "updated_at"

	mysqlErrDuplicateEntry = 1062
)

var dialect = goqu.Dialect("mysql")

func notDeleted() exp.BooleanExpression {
	return goqu.C(colDeletedAt).IsNull()
}

func isDuplicateKey(err error) bool {
	var myErr *gomysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}

// MySQLStore implements port.Store on MySQL. Per-item serialization comes
// from a FOR UPDATE lock on the inventory row; order numbering is a
// transactional read of the highest live order backstopped by the unique
// index on orders.order_no. Lock waits are bounded by the request context.
type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	now := time.Now().UTC()

	query, args, err := dialect.Insert(tableItems).Rows(goqu.Record{
		"name":       item.Name,
		"price":      item.Price,
		"created_at": now,
		colUpdatedAt: now,
	}).Prepared(true).ToSQL()
	if err != nil {
		return domain.Item{}, fmt.Errorf("build item insert: %w", err)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if isDuplicateKey(err) {
		return domain.Item{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}

	item.ID, _ = res.LastInsertId()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.DeletedAt = nil

	return item, nil
}

func (m *MySQLStore) ItemByID(ctx context.Context, id int64) (domain.Item, error) {
	return getByID[domain.Item](ctx, m.db, tableItems, id)
}

func (m *MySQLStore) Items(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Item], error) {
	return listPage[domain.Item](ctx, m.db, tableItems, page)
}

func (m *MySQLStore) UpdateItem(ctx context.Context, item domain.Item) error {
	err := m.updateRow(ctx, tableItems, item.ID, goqu.Record{
		"name":  item.Name,
		"price": item.Price,
	})
	if isDuplicateKey(err) {
		return domain.ErrDuplicate
	}

	return err
}

func (m *MySQLStore) SoftDeleteItem(ctx context.Context, id int64) error {
	return m.softDeleteRow(ctx, tableItems, id)
}

func (m *MySQLStore) CreateInventory(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	now := time.Now().UTC()

	query, args, err := dialect.Insert(tableInventory).Rows(goqu.Record{
		colItemID:    inv.ItemID,
		"stock":      inv.Stock,
		"created_at": now,
		colUpdatedAt: now,
	}).Prepared(true).ToSQL()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("build inventory insert: %w", err)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if isDuplicateKey(err) {
		return domain.Inventory{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("insert inventory: %w", err)
	}

	inv.ID, _ = res.LastInsertId()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	inv.DeletedAt = nil

	return inv, nil
}

func (m *MySQLStore) InventoryByID(ctx context.Context, id int64) (domain.Inventory, error) {
	return getByID[domain.Inventory](ctx, m.db, tableInventory, id)
}

func (m *MySQLStore) InventoryByItemID(ctx context.Context, itemID int64) (domain.Inventory, error) {
	query, args, err := dialect.From(tableInventory).
		Where(goqu.C(colItemID).Eq(itemID), notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("build inventory select: %w", err)
	}

	var inv domain.Inventory
	err = m.db.GetContext(ctx, &inv, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Inventory{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("query inventory: %w", err)
	}

	return inv, nil
}

func (m *MySQLStore) Inventories(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Inventory], error) {
	return listPage[domain.Inventory](ctx, m.db, tableInventory, page)
}

func (m *MySQLStore) UpdateInventory(ctx context.Context, inv domain.Inventory) error {
	return m.updateRow(ctx, tableInventory, inv.ID, goqu.Record{
		colItemID: inv.ItemID,
		"stock":   inv.Stock,
	})
}

func (m *MySQLStore) SoftDeleteInventory(ctx context.Context, id int64) error {
	return m.softDeleteRow(ctx, tableInventory, id)
}

func (m *MySQLStore) RecordTransaction(ctx context.Context, t domain.InventoryTransaction) (domain.InventoryTransaction, domain.Inventory, error) {
	var (
		recorded domain.InventoryTransaction
		inv      domain.Inventory
	)

	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		applied, ledgerErr := applyToLedger(ctx, tx, t)
		if ledgerErr != nil {
			return ledgerErr
		}

		stored, insertErr := insertTransaction(ctx, tx, t)
		if insertErr != nil {
			return insertErr
		}

		recorded = stored
		inv = applied

		return nil
	})
	if err != nil {
		return domain.InventoryTransaction{}, domain.Inventory{}, err
	}

	return recorded, inv, nil
}

func (m *MySQLStore) TransactionByID(ctx context.Context, id int64) (domain.InventoryTransaction, error) {
	return getByID[domain.InventoryTransaction](ctx, m.db, tableTransactions, id)
}

func (m *MySQLStore) Transactions(ctx context.Context, page domain.PageRequest) (domain.Page[domain.InventoryTransaction], error) {
	return listPage[domain.InventoryTransaction](ctx, m.db, tableTransactions, page)
}

func (m *MySQLStore) UpdateTransaction(ctx context.Context, t domain.InventoryTransaction) error {
	return m.updateRow(ctx, tableTransactions, t.ID, goqu.Record{
		colItemID: t.ItemID,
		"qty":     t.Qty,
		"type":    string(t.Type),
	})
}

func (m *MySQLStore) SoftDeleteTransaction(ctx context.Context, id int64) error {
	return m.softDeleteRow(ctx, tableTransactions, id)
}

func (m *MySQLStore) CreateOrder(ctx context.Context, order domain.Order, withdrawal domain.InventoryTransaction) (domain.Order, error) {
	var placed domain.Order

	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, ledgerErr := applyToLedger(ctx, tx, withdrawal); ledgerErr != nil {
			return ledgerErr
		}

		if _, insertErr := insertTransaction(ctx, tx, withdrawal); insertErr != nil {
			return insertErr
		}

		last, lockErr := lockLastOrderNo(ctx, tx)
		if lockErr != nil {
			return lockErr
		}

		next, noErr := domain.NextOrderNo(last)
		if noErr != nil {
			return noErr
		}
		order.OrderNo = next

		now := time.Now().UTC()
		query, args, buildErr := dialect.Insert(tableOrders).Rows(goqu.Record{
			"order_no":   order.OrderNo,
			colItemID:    order.ItemID,
			"qty":        order.Qty,
			"price":      order.Price,
			"created_at": now,
			colUpdatedAt: now,
		}).Prepared(true).ToSQL()
		if buildErr != nil {
			return fmt.Errorf("build order insert: %w", buildErr)
		}

		res, execErr := tx.ExecContext(ctx, query, args...)
		if isDuplicateKey(execErr) {
			// another placement took this number first
			return domain.ErrConflict
		}
		if execErr != nil {
			return fmt.Errorf("insert order: %w", execErr)
		}

		order.ID, _ = res.LastInsertId()
		order.CreatedAt = now
		order.UpdatedAt = now
		order.DeletedAt = nil
		placed = order

		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return placed, nil
}

func (m *MySQLStore) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	return getByID[domain.Order](ctx, m.db, tableOrders, id)
}

func (m *MySQLStore) Orders(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return listPage[domain.Order](ctx, m.db, tableOrders, page)
}

func (m *MySQLStore) UpdateOrder(ctx context.Context, order domain.Order) error {
	// the order number and the price snapshot survive updates
	return m.updateRow(ctx, tableOrders, order.ID, goqu.Record{
		colItemID: order.ItemID,
		"qty":     order.Qty,
	})
}

func (m *MySQLStore) SoftDeleteOrder(ctx context.Context, id int64) error {
	return m.softDeleteRow(ctx, tableOrders, id)
}

func (m *MySQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// applyToLedger locks the inventory row for the transaction's item, applies
// the quantity change, and persists the new level. The row lock serializes
// concurrent mutations for the same item while other items proceed in
// parallel.
func applyToLedger(ctx context.Context, tx *sqlx.Tx, t domain.InventoryTransaction) (domain.Inventory, error) {
	// no deleted_at filter: the ledger addresses the per-item row even when
	// it is soft-deleted, deletion only hides it from reads
	query, args, err := dialect.From(tableInventory).
		Where(goqu.C(colItemID).Eq(t.ItemID)).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("build inventory lock: %w", err)
	}

	var inv domain.Inventory
	err = tx.GetContext(ctx, &inv, query, args...)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if t.Type == domain.TypeWithdrawal {
			return domain.Inventory{}, domain.OutOfStock()
		}
		return insertInventory(ctx, tx, domain.Inventory{ItemID: t.ItemID, Stock: t.Qty})

	case err != nil:
		return domain.Inventory{}, fmt.Errorf("lock inventory: %w", err)
	}

	next, err := inv.Apply(t.Type, t.Qty)
	if err != nil {
		return domain.Inventory{}, err
	}

	now := time.Now().UTC()
	query, args, err = dialect.Update(tableInventory).
		Set(goqu.Record{"stock": next, colUpdatedAt: now}).
		Where(goqu.C(colID).Eq(inv.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("build stock update: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return domain.Inventory{}, fmt.Errorf("update stock: %w", err)
	}

	inv.Stock = next
	inv.UpdatedAt = now

	return inv, nil
}

func insertInventory(ctx context.Context, tx *sqlx.Tx, inv domain.Inventory) (domain.Inventory, error) {
	now := time.Now().UTC()

	query, args, err := dialect.Insert(tableInventory).Rows(goqu.Record{
		colItemID:    inv.ItemID,
		"stock":      inv.Stock,
		"created_at": now,
		colUpdatedAt: now,
	}).Prepared(true).ToSQL()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("build inventory insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("insert inventory: %w", err)
	}

	inv.ID, _ = res.LastInsertId()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	return inv, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t domain.InventoryTransaction) (domain.InventoryTransaction, error) {
	now := time.Now().UTC()

	query, args, err := dialect.Insert(tableTransactions).Rows(goqu.Record{
		colItemID:    t.ItemID,
		"qty":        t.Qty,
		"type":       string(t.Type),
		"created_at": now,
		colUpdatedAt: now,
	}).Prepared(true).ToSQL()
	if err != nil {
		return domain.InventoryTransaction{}, fmt.Errorf("build transaction insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.InventoryTransaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	t.ID, _ = res.LastInsertId()
	t.CreatedAt = now
	t.UpdatedAt = now

	return t, nil
}

// lockLastOrderNo reads the order number of the highest order under a row
// lock, or "" when no order exists yet. Soft-deleted orders count: their
// numbers stay consumed. With an empty table there is nothing to lock; the
// unique index on order_no catches that race and the caller retries.
func lockLastOrderNo(ctx context.Context, tx *sqlx.Tx) (string, error) {
	query, args, err := dialect.From(tableOrders).
		Select(goqu.C("order_no")).
		Order(goqu.C(colID).Desc()).
		Limit(1).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build last order select: %w", err)
	}

	var last string
	err = tx.GetContext(ctx, &last, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last order: %w", err)
	}

	return last, nil
}

func getByID[T any](ctx context.Context, db *sqlx.DB, table string, id int64) (T, error) {
	var row T

	query, args, err := dialect.From(table).
		Where(goqu.C(colID).Eq(id), notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return row, fmt.Errorf("build select for %s: %w", table, err)
	}

	err = db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return row, domain.ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("query %s: %w", table, err)
	}

	return row, nil
}

func listPage[T any](ctx context.Context, db *sqlx.DB, table string, page domain.PageRequest) (domain.Page[T], error) {
	var empty domain.Page[T]
	page = page.Normalize()

	query, args, err := dialect.From(table).
		Where(notDeleted()).
		Order(goqu.C(colID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return empty, fmt.Errorf("build list for %s: %w", table, err)
	}

	rows := make([]T, 0, page.Size)
	if err = db.SelectContext(ctx, &rows, query, args...); err != nil {
		return empty, fmt.Errorf("list %s: %w", table, err)
	}

	countQuery, countArgs, err := dialect.From(table).
		Select(goqu.COUNT(goqu.Star())).
		Where(notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return empty, fmt.Errorf("build count for %s: %w", table, err)
	}

	var total int64
	if err = db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return empty, fmt.Errorf("count %s: %w", table, err)
	}

	return domain.NewPage(rows, page, total), nil
}

// updateRow merges the given columns onto an existing live row. Existence is
// checked first because MySQL reports zero affected rows for a no-op update.
func (m *MySQLStore) updateRow(ctx context.Context, table string, id int64, set goqu.Record) error {
	query, args, err := dialect.From(table).
		Select(goqu.C(colID)).
		Where(goqu.C(colID).Eq(id), notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build existence check for %s: %w", table, err)
	}

	var existing int64
	err = m.db.GetContext(ctx, &existing, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}

	set[colUpdatedAt] = time.Now().UTC()
	query, args, err = dialect.Update(table).
		Set(set).
		Where(goqu.C(colID).Eq(id), notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build update for %s: %w", table, err)
	}

	if _, err = m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	return nil
}

func (m *MySQLStore) softDeleteRow(ctx context.Context, table string, id int64) error {
	now := time.Now().UTC()

	query, args, err := dialect.Update(table).
		Set(goqu.Record{colDeletedAt: now, colUpdatedAt: now}).
		Where(goqu.C(colID).Eq(id), notDeleted()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build soft delete for %s: %w", table, err)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("soft delete %s: %w", table, err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
