package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/port"
)

// TransactionService validates and records stock-changing events. The stock
// mutation and the transaction row are written in one storage unit, so a
// rejected ledger change never leaves a dangling record.
type TransactionService struct {
	store  port.Store
	logger *zap.Logger
}

func NewTransactionService(store port.Store, logger *zap.Logger) *TransactionService {
	return &TransactionService{store: store, logger: logger}
}

func (s *TransactionService) Record(ctx context.Context, tx domain.InventoryTransaction) (domain.InventoryTransaction, error) {
	if err := tx.Validate(); err != nil {
		return domain.InventoryTransaction{}, err
	}

	if _, err := s.store.ItemByID(ctx, tx.ItemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.InventoryTransaction{}, domain.NotFound("item is not found")
		}
		return domain.InventoryTransaction{}, fmt.Errorf("resolve item: %w", err)
	}

	recorded, inv, err := s.store.RecordTransaction(ctx, tx)
	if err != nil {
		return domain.InventoryTransaction{}, err
	}

	s.logger.Info("transaction recorded",
		zap.Int64("transaction_id", recorded.ID),
		zap.Int64("item_id", recorded.ItemID),
		zap.String("type", string(recorded.Type)),
		zap.Int("qty", recorded.Qty),
		zap.Int("stock", inv.Stock),
	)

	return recorded, nil
}

func (s *TransactionService) FindByID(ctx context.Context, id int64) (domain.InventoryTransaction, error) {
	tx, err := s.store.TransactionByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.InventoryTransaction{}, domain.NotFound("inventory transaction not found")
	}
	if err != nil {
		return domain.InventoryTransaction{}, fmt.Errorf("find transaction: %w", err)
	}

	return tx, nil
}

func (s *TransactionService) FindAll(ctx context.Context, page domain.PageRequest) (domain.Page[domain.InventoryTransaction], error) {
	txs, err := s.store.Transactions(ctx, page.Normalize())
	if err != nil {
		return domain.Page[domain.InventoryTransaction]{}, fmt.Errorf("list transactions: %w", err)
	}

	return txs, nil
}

// Update rewrites a recorded transaction without re-running ledger
// arithmetic: amending a record is a freeform correction and never
// re-balances stock.
func (s *TransactionService) Update(ctx context.Context, tx domain.InventoryTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	err := s.store.UpdateTransaction(ctx, tx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("inventory transaction not found")
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	return nil
}

// Delete soft-deletes the record only; the stock change it once applied
// stays applied.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	err := s.store.SoftDeleteTransaction(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("inventory transaction not found")
	}
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	return nil
}
