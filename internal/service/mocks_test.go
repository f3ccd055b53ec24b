package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	buyer   = domain.Identity{UserID: "buyer-1", Name: "Asha", Role: domain.RoleBuyer}
	farmer1 = domain.Identity{UserID: "farmer-1", Name: "Green Acres", Role: domain.RoleFarmer}
	farmer2 = domain.Identity{UserID: "farmer-2", Name: "Hill Farm", Role: domain.RoleFarmer}
	admin   = domain.Identity{UserID: "admin-1", Name: "Admin", Role: domain.RoleAdmin}
)

type mockEvents struct {
	m       sync.Mutex
	placed  []string
	changed []domain.OrderStatus
	err     error
}

func (e *mockEvents) OrderPlaced(_ context.Context, o *domain.Order) error {
	e.m.Lock()
	defer e.m.Unlock()
	e.placed = append(e.placed, o.ID)
	return e.err
}

func (e *mockEvents) OrderStatusChanged(_ context.Context, o *domain.Order, _ domain.OrderStatus) error {
	e.m.Lock()
	defer e.m.Unlock()
	e.changed = append(e.changed, o.Status)
	return e.err
}

// failingOrders wraps a real store and fails selected operations.
type failingOrders struct {
	repository.OrderRepository
	placeErr      error
	markRatedErr  error
	markRatedHits int
}

func (f *failingOrders) PlaceOrder(ctx context.Context, o *domain.Order) error {
	if f.placeErr != nil {
		return f.placeErr
	}
	return f.OrderRepository.PlaceOrder(ctx, o)
}

func (f *failingOrders) MarkItemRated(ctx context.Context, orderID, productID string) error {
	f.markRatedHits++
	if f.markRatedErr != nil {
		return f.markRatedErr
	}
	return f.OrderRepository.MarkItemRated(ctx, orderID, productID)
}

// hookedOrders runs afterPlace once an order has committed.
type hookedOrders struct {
	repository.OrderRepository
	afterPlace func()
}

func (h *hookedOrders) PlaceOrder(ctx context.Context, o *domain.Order) error {
	if err := h.OrderRepository.PlaceOrder(ctx, o); err != nil {
		return err
	}
	h.afterPlace()
	return nil
}

// failingProducts wraps a real store and fails ApplyRating.
type failingProducts struct {
	repository.ProductRepository
	ratingErr error
}

func (f *failingProducts) ApplyRating(ctx context.Context, productID string, rating int) (*domain.Product, error) {
	if f.ratingErr != nil {
		return nil, f.ratingErr
	}
	return f.ProductRepository.ApplyRating(ctx, productID, rating)
}

type fixture struct {
	store    *repository.MemoryStore
	carts    *cache.MemoryCartStore
	events   *mockEvents
	catalog  *CatalogService
	cart     *CartService
	checkout *CheckoutService
	ratings  *RatingAggregator
	feed     *OrderFeed
	users    *UserService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	store := repository.NewMemoryStore()
	carts := cache.NewMemoryCartStore(time.Hour)
	events := &mockEvents{}

	f := &fixture{
		store:  store,
		carts:  carts,
		events: events,
		clock:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.catalog = NewCatalogService(store, log)
	f.cart = NewCartService(carts, f.catalog, log)
	f.checkout = NewCheckoutService(store, store, carts, events, log)
	f.checkout.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.ratings = NewRatingAggregator(store, log)
	f.feed = NewOrderFeed(store, f.ratings, events, log)
	f.users = NewUserService(store, log)

	for _, id := range []domain.Identity{buyer, farmer1, farmer2, admin} {
		require.NoError(t, store.CreateUser(context.Background(), &domain.User{
			ID:       id.UserID,
			FullName: id.Name,
			Email:    id.UserID + "@example.com",
			Role:     id.Role,
			Address:  "1 Market St",
			City:     "Pune",
		}))
	}
	return f
}

func (f *fixture) seedProduct(t *testing.T, id, farmerID, price, stock string) {
	t.Helper()
	require.NoError(t, f.store.CreateProduct(context.Background(), &domain.Product{
		ID:       id,
		FarmerID: farmerID,
		Name:     "Product " + id,
		Price:    dec(price),
		Stock:    dec(stock),
	}))
}

func (f *fixture) stock(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// placeDeliveredOrder checks out the given lines and marks the order delivered.
func (f *fixture) placeDeliveredOrder(t *testing.T, lines map[string]string) string {
	t.Helper()
	ctx := context.Background()
	for productID, qty := range lines {
		_, _, err := f.cart.AddItem(ctx, buyer, productID, dec(qty))
		require.NoError(t, err)
	}
	orderID, err := f.checkout.PlaceOrder(ctx, buyer, "")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateOrderStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusDelivered))
	return orderID
}
