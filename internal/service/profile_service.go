package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderHistoryEntry is an order as shown on the customer's profile
type OrderHistoryEntry struct {
	*domain.Order
	IsDelivered      bool              `json:"is_delivered"`
	ExpectedDelivery time.Time         `json:"expected_delivery"`
	ProductsSummary  string            `json:"products_summary"`
	Items            []domain.LineItem `json:"items"`
}

// ProfileService defines the customer order history
type ProfileService interface {
	OrderHistory(ctx context.Context, email string) ([]OrderHistoryEntry, error)
}

type profileService struct {
	orderRepo repository.OrderRepository
	now       func() time.Time
}

// NewProfileService creates a new instance of ProfileService
func NewProfileService(orderRepo repository.OrderRepository) ProfileService {
	return &profileService{
		orderRepo: orderRepo,
		now:       time.Now,
	}
}

// OrderHistory lists the orders placed with email, newest first
func (s *profileService) OrderHistory(ctx context.Context, email string) ([]OrderHistoryEntry, error) {
	orders, err := s.orderRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	delivered, err := s.orderRepo.DeliveredOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery state: %w", err)
	}

	now := s.now()
	entries := make([]OrderHistoryEntry, 0, len(orders))
	for _, o := range orders {
		items, err := domain.ParseCart(o.ItemsJSON)
		if err != nil {
			items = []domain.LineItem{}
		}
		entries = append(entries, OrderHistoryEntry{
			Order:            o,
			IsDelivered:      delivered[o.ID],
			ExpectedDelivery: o.ExpectedDelivery(now),
			ProductsSummary:  o.ProductsSummary(),
			Items:            items,
		})
	}
	return entries, nil
}
