package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/port"
)

// InventoryService exposes the ledger records directly. Stock levels are only
// ever moved through transactions; Create and Update exist for the CRUD
// surface and enforce the one-record-per-item rule.
type InventoryService struct {
	store port.Store
}

func NewInventoryService(store port.Store) *InventoryService {
	return &InventoryService{store: store}
}

func (s *InventoryService) Create(ctx context.Context, inv domain.Inventory) (domain.Inventory, error) {
	if err := inv.Validate(); err != nil {
		return domain.Inventory{}, err
	}

	created, err := s.store.CreateInventory(ctx, inv)
	if errors.Is(err, domain.ErrDuplicate) {
		return domain.Inventory{}, domain.Duplicate("inventory already registered")
	}
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("create inventory: %w", err)
	}

	return created, nil
}

func (s *InventoryService) FindByID(ctx context.Context, id int64) (domain.Inventory, error) {
	inv, err := s.store.InventoryByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Inventory{}, domain.NotFound("inventory not found")
	}
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("find inventory: %w", err)
	}

	return inv, nil
}

func (s *InventoryService) FindAll(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Inventory], error) {
	invs, err := s.store.Inventories(ctx, page.Normalize())
	if err != nil {
		return domain.Page[domain.Inventory]{}, fmt.Errorf("list inventories: %w", err)
	}

	return invs, nil
}

func (s *InventoryService) Update(ctx context.Context, inv domain.Inventory) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	err := s.store.UpdateInventory(ctx, inv)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("inventory not found")
	}
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	return nil
}

func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	err := s.store.SoftDeleteInventory(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("inventory not found")
	}
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}

	return nil
}
