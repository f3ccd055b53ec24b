package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/rs/zerolog"
)

type CheckoutService struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	carts  cache.CartStore
	events OrderEvents
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func NewCheckoutService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	carts cache.CartStore,
	events OrderEvents,
	log zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders: orders,
		users:  users,
		carts:  carts,
		events: events,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// PlaceOrder turns the buyer's cart into a pending order. The stock
// decrements and the order insert commit together; on failure nothing is
// written and the cart is left as it was. On success only the ordered
// quantities leave the cart. shippingAddress falls back to the
// buyer's profile address when empty.
func (s *CheckoutService) PlaceOrder(ctx context.Context, id domain.Identity, shippingAddress string) (string, error) {
	if err := requireBuyer(id); err != nil {
		return "", err
	}
	log := logger.FromContext(ctx, s.log).With().Str("user_id", id.UserID).Logger()

	cart, err := s.carts.Get(ctx, id.UserID)
	if err != nil {
		return "", fmt.Errorf("%w: load cart: %w", domain.ErrOrderFailed, err)
	}
	if cart.IsEmpty() {
		return "", domain.ErrEmptyCart
	}

	buyer, address := s.buyerSnapshot(ctx, log, id, shippingAddress)

	order, err := domain.NewOrder(s.newID(), buyer, cart, address, s.now().UTC())
	if err != nil {
		return "", err
	}

	if err := s.orders.PlaceOrder(ctx, order); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("order commit failed")
		return "", fmt.Errorf("%w: %w", domain.ErrOrderFailed, err)
	}

	log.Info().
		Str("order_id", order.ID).
		Str("total", order.Total.StringFixed(2)).
		Int("items", len(order.Items)).
		Msg("order placed")

	_, err = s.carts.Update(ctx, id.UserID, func(c *domain.Cart) error {
		c.RemoveOrdered(order.Items)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to clear cart after checkout")
	}
	if err := s.events.OrderPlaced(ctx, order); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order placed")
	}

	return order.ID, nil
}

// buyerSnapshot resolves the buyer name and shipping address frozen into
// the order. Profile lookup failures degrade to the identity alone.
func (s *CheckoutService) buyerSnapshot(ctx context.Context, log zerolog.Logger, id domain.Identity, shippingAddress string) (domain.Identity, string) {
	address := strings.TrimSpace(shippingAddress)

	profile, err := s.users.GetUser(ctx, id.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("buyer profile unavailable for order snapshot")
		return id, address
	}
	if id.Name == "" {
		id.Name = profile.FullName
	}
	if address == "" {
		address = profile.ShippingAddress()
	}
	return id, address
}
