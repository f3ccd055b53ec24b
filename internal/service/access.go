package service

import (
	"context"

	"github.com/hema22923/AgriConnect/internal/domain"
)

// OrderEvents receives order lifecycle notifications. Delivery is best
// effort: failures are logged by the caller and never undo a commit.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
}

func requireBuyer(id domain.Identity) error {
	if !id.Authenticated() {
		return domain.ErrAuthRequired
	}
	if !id.Role.CanBuy() {
		return domain.ErrForbidden
	}
	return nil
}

func requireSeller(id domain.Identity) error {
	if !id.Authenticated() {
		return domain.ErrAuthRequired
	}
	if !id.Role.CanSell() {
		return domain.ErrForbidden
	}
	return nil
}

func requireAdmin(id domain.Identity) error {
	if !id.Authenticated() {
		return domain.ErrAuthRequired
	}
	if !id.Role.CanAdminister() {
		return domain.ErrForbidden
	}
	return nil
}
