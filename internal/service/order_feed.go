package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/rs/zerolog"
)

// OrderFeed serves buyer and farmer views of orders, live subscriptions to
// them, farmer status updates and buyer item ratings.
type OrderFeed struct {
	orders  repository.OrderRepository
	ratings *RatingAggregator
	events  OrderEvents
	log     zerolog.Logger
}

func NewOrderFeed(orders repository.OrderRepository, ratings *RatingAggregator, events OrderEvents, log zerolog.Logger) *OrderFeed {
	return &OrderFeed{
		orders:  orders,
		ratings: ratings,
		events:  events,
		log:     log,
	}
}

// BuyerOrders returns the caller's own orders, newest first.
func (f *OrderFeed) BuyerOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	orders, err := f.orders.ListOrdersByBuyer(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list buyer orders: %w", err)
	}
	return orders, nil
}

// FarmerOrders returns every order with at least one item sold by the
// caller, newest first. Items of other sellers stay in the order.
func (f *OrderFeed) FarmerOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	return f.farmerOrders(ctx, id.UserID)
}

func (f *OrderFeed) farmerOrders(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	orders, err := f.orders.ListOrdersBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list farmer orders: %w", err)
	}
	filtered := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.HasSeller(sellerID) {
			filtered = append(filtered, o)
		}
	}
	domain.SortOrdersNewestFirst(filtered)
	return filtered, nil
}

func (f *OrderFeed) SubscribeBuyerOrders(ctx context.Context, id domain.Identity, fn func([]*domain.Order)) (*Subscription, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	return subscribe(ctx, f.orders.WatchOrders,
		func(ctx context.Context) ([]*domain.Order, error) {
			return f.orders.ListOrdersByBuyer(ctx, id.UserID)
		},
		fn,
		f.subscriptionError(ctx, id),
	)
}

func (f *OrderFeed) SubscribeFarmerOrders(ctx context.Context, id domain.Identity, fn func([]*domain.Order)) (*Subscription, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	return subscribe(ctx, f.orders.WatchOrders,
		func(ctx context.Context) ([]*domain.Order, error) {
			return f.farmerOrders(ctx, id.UserID)
		},
		fn,
		f.subscriptionError(ctx, id),
	)
}

func (f *OrderFeed) subscriptionError(ctx context.Context, id domain.Identity) func(error) {
	log := logger.FromContext(ctx, f.log)
	return func(err error) {
		log.Warn().Err(err).Str("user_id", id.UserID).Msg("order subscription refresh failed")
	}
}

// Order returns one order if the caller may see it. Orders the caller may
// not see are reported as not found.
func (f *OrderFeed) Order(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	o, err := f.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.VisibleTo(id) {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// UpdateStatus lets a farmer settle one of their pending orders as
// delivered or cancelled.
func (f *OrderFeed) UpdateStatus(ctx context.Context, id domain.Identity, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}

	o, err := f.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.HasSeller(id.UserID) {
		return nil, domain.ErrOrderNotFound
	}
	if next != domain.OrderStatusDelivered && next != domain.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: farmers may only mark orders %s or %s",
			domain.ErrIllegalTransition, domain.OrderStatusDelivered, domain.OrderStatusCancelled)
	}
	if o.Status != domain.OrderStatusPending || !o.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, o.Status, next)
	}

	from := o.Status
	if err := f.orders.UpdateOrderStatus(ctx, orderID, from, next); err != nil {
		return nil, err
	}
	o.Status = next

	log := logger.FromContext(ctx, f.log)
	log.Info().
		Str("order_id", orderID).
		Str("farmer_id", id.UserID).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("order status updated")

	if err := f.events.OrderStatusChanged(ctx, o, from); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("failed to publish status change")
	}
	return o, nil
}

// RateItem records the buyer's rating for one delivered item. The product
// aggregate is updated first; failing to flag the item afterwards is
// logged and does not undo the aggregate.
func (f *OrderFeed) RateItem(ctx context.Context, id domain.Identity, orderID, productID string, rating int) error {
	if !id.Authenticated() {
		return domain.ErrAuthRequired
	}
	if err := domain.ValidateRating(rating); err != nil {
		return err
	}

	o, err := f.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != id.UserID {
		return domain.ErrOrderNotFound
	}
	if err := o.CheckRatable(productID); err != nil {
		return err
	}

	if _, err := f.ratings.Rate(ctx, productID, rating); err != nil {
		return err
	}

	if err := f.orders.MarkItemRated(ctx, orderID, productID); err != nil {
		lvl := zerolog.WarnLevel
		if !errors.Is(err, domain.ErrNotFound) {
			lvl = zerolog.ErrorLevel
		}
		logger.FromContext(ctx, f.log).WithLevel(lvl).Err(err).
			Str("order_id", orderID).
			Str("product_id", productID).
			Msg("rating counted but item could not be marked rated")
	}
	return nil
}
