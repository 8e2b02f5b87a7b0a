package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/port"
)

// ItemService is the catalog: name/price lookup with a unique-name rule.
type ItemService struct {
	store port.Store
}

func NewItemService(store port.Store) *ItemService {
	return &ItemService{store: store}
}

func (s *ItemService) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	if err := item.Validate(); err != nil {
		return domain.Item{}, err
	}

	created, err := s.store.CreateItem(ctx, item)
	if errors.Is(err, domain.ErrDuplicate) {
		return domain.Item{}, domain.Duplicate("item already registered")
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}

	return created, nil
}

func (s *ItemService) FindByID(ctx context.Context, id int64) (domain.Item, error) {
	item, err := s.store.ItemByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Item{}, domain.NotFound("item not found")
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("find item: %w", err)
	}

	return item, nil
}

func (s *ItemService) FindAll(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Item], error) {
	items, err := s.store.Items(ctx, page.Normalize())
	if err != nil {
		return domain.Page[domain.Item]{}, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

func (s *ItemService) Update(ctx context.Context, item domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	err := s.store.UpdateItem(ctx, item)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("item not found")
	}
	if errors.Is(err, domain.ErrDuplicate) {
		return domain.Duplicate("item already registered")
	}
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	return nil
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	err := s.store.SoftDeleteItem(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("item not found")
	}
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}
