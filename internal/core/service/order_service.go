package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/port"
)

// placeOrderAttempts bounds the retry loop around order-number allocation.
// Conflicts only happen when two placements race for the same number, so a
// couple of retries is plenty before reporting Busy.
const placeOrderAttempts = 3

// OrderService places orders: it snapshots the catalog price, debits stock
// through a withdrawal transaction, and assigns the next sequential order
// number. Debit, transaction record, number allocation and order row are one
// atomic storage unit, so a failed placement consumes no order number and
// writes nothing.
type OrderService struct {
	store  port.Store
	cache  port.Cache
	logger *zap.Logger
}

// NewOrderService wires the sequencer. cache may be nil, which disables
// duplicate-request suppression.
func NewOrderService(store port.Store, cache port.Cache, logger *zap.Logger) *OrderService {
	return &OrderService{store: store, cache: cache, logger: logger}
}

// Place creates an order for qty units of the given item. requestID is an
// optional client token: a replay with the same token is rejected without
// touching stock or the order sequence. A failed placement releases the
// token so the client may retry the same request.
func (s *OrderService) Place(ctx context.Context, itemID int64, qty int, requestID string) (domain.Order, error) {
	order := domain.Order{ItemID: itemID, Qty: qty}
	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	// releaseKey frees the claimed idempotency key when the placement fails,
	// so a client retry of the same request is not mistaken for a replay
	releaseKey := func() {}
	if s.cache != nil && requestID != "" {
		key := "order:" + requestID

		ok, err := s.cache.SetIdempotency(ctx, key)
		if err != nil {
			return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Order{}, domain.DuplicateRequest()
		}

		releaseKey = func() {
			if err := s.cache.DeleteIdempotency(ctx, key); err != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}

	item, err := s.store.ItemByID(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		releaseKey()
		return domain.Order{}, domain.NotFound("item is not found")
	}
	if err != nil {
		releaseKey()
		return domain.Order{}, fmt.Errorf("resolve item: %w", err)
	}

	order.Price = item.Price
	withdrawal := domain.InventoryTransaction{
		ItemID: itemID,
		Qty:    qty,
		Type:   domain.TypeWithdrawal,
	}

	for attempt := 1; attempt <= placeOrderAttempts; attempt++ {
		placed, err := s.store.CreateOrder(ctx, order, withdrawal)
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn("order number conflict",
				zap.Int64("item_id", itemID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			releaseKey()
			return domain.Order{}, err
		}

		s.logger.Info("order placed",
			zap.String("order_no", placed.OrderNo),
			zap.Int64("item_id", placed.ItemID),
			zap.Int("qty", placed.Qty),
			zap.Int("price", placed.Price),
		)

		return placed, nil
	}

	releaseKey()
	return domain.Order{}, domain.Busy("order number allocation kept conflicting, try again")
}

func (s *OrderService) FindByID(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.store.OrderByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Order{}, domain.NotFound("order not found")
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}

	return order, nil
}

func (s *OrderService) FindAll(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Order], error) {
	orders, err := s.store.Orders(ctx, page.Normalize())
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

// Update rewrites the mutable order fields. The order number, the price
// snapshot and the ledger history are left alone.
func (s *OrderService) Update(ctx context.Context, order domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	err := s.store.UpdateOrder(ctx, order)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("order not found")
	}
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	return nil
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	err := s.store.SoftDeleteOrder(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("order not found")
	}
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return nil
}
