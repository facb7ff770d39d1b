package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

type OrderStatsServiceDeps struct {
	Orders repositories.OrderRepository
}

type orderStatsService struct {
	orders repositories.OrderRepository
}

func NewOrderStatsService(deps OrderStatsServiceDeps) (OrderStatsService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order stats service: order repository is required")
	}
	return &orderStatsService{orders: deps.Orders}, nil
}

// ComputeStats aggregates on every call. Revenue counts unpaid orders too.
func (s *orderStatsService) ComputeStats(ctx context.Context) (domain.OrderStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	return stats, nil
}
