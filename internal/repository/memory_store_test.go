package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedProduct(t *testing.T, s *MemoryStore, id, farmerID, price, stock string) {
	t.Helper()
	require.NoError(t, s.CreateProduct(context.Background(), &domain.Product{
		ID:       id,
		FarmerID: farmerID,
		Name:     "Product " + id,
		Price:    dec(price),
		Stock:    dec(stock),
	}))
}

func testOrder(id, buyerID string, createdAt time.Time, items ...domain.OrderItem) *domain.Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(it.Quantity))
	}
	return &domain.Order{
		ID:        id,
		UserID:    buyerID,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatusPending,
		CreatedAt: createdAt,
	}
}

func TestMemoryStore_PlaceOrder_DecrementsStock(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "5.00", "10")
	seedProduct(t, store, "p2", "f2", "3.00", "4")

	order := testOrder("o1", "b1", time.Now(),
		domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("5.00"), Quantity: dec("2")},
		domain.OrderItem{ProductID: "p2", SellerID: "f2", Price: dec("3.00"), Quantity: dec("1")},
	)
	require.NoError(t, store.PlaceOrder(ctx, order))

	p1, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	p2, err := store.GetProduct(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, dec("8").Equal(p1.Stock))
	assert.True(t, dec("3").Equal(p2.Stock))

	stored, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, dec("13.00").Equal(stored.Total))
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestMemoryStore_PlaceOrder_IsAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "5.00", "10")
	seedProduct(t, store, "p2", "f1", "3.00", "1")

	order := testOrder("o1", "b1", time.Now(),
		domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("5.00"), Quantity: dec("2")},
		domain.OrderItem{ProductID: "p2", SellerID: "f1", Price: dec("3.00"), Quantity: dec("2")},
	)
	err := store.PlaceOrder(ctx, order)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p1, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(p1.Stock), "first decrement must not be applied")

	_, err = store.GetOrder(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	missing := testOrder("o2", "b1", time.Now(),
		domain.OrderItem{ProductID: "gone", Price: dec("1"), Quantity: dec("1")})
	assert.ErrorIs(t, store.PlaceOrder(ctx, missing), domain.ErrProductNotFound)
}

func TestMemoryStore_ListOrders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "1.00", "100")
	seedProduct(t, store, "p2", "f2", "1.00", "100")

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	item1 := domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("1"), Quantity: dec("1")}
	item2 := domain.OrderItem{ProductID: "p2", SellerID: "f2", Price: dec("1"), Quantity: dec("1")}
	require.NoError(t, store.PlaceOrder(ctx, testOrder("old", "b1", base, item1)))
	require.NoError(t, store.PlaceOrder(ctx, testOrder("new", "b1", base.Add(time.Hour), item1, item2)))
	require.NoError(t, store.PlaceOrder(ctx, testOrder("other", "b2", base.Add(2*time.Hour), item2)))

	buyerOrders, err := store.ListOrdersByBuyer(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, buyerOrders, 2)
	assert.Equal(t, "new", buyerOrders[0].ID)
	assert.Equal(t, "old", buyerOrders[1].ID)

	sellerOrders, err := store.ListOrdersBySeller(ctx, "f2")
	require.NoError(t, err)
	require.Len(t, sellerOrders, 2)
	assert.Equal(t, "other", sellerOrders[0].ID)
	assert.Equal(t, "new", sellerOrders[1].ID)

	none, err := store.ListOrdersBySeller(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_UpdateOrderStatus_Conditional(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "1.00", "10")
	require.NoError(t, store.PlaceOrder(ctx, testOrder("o1", "b1", time.Now(),
		domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("1"), Quantity: dec("1")})))

	require.NoError(t, store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusDelivered))

	err := store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	err = store.UpdateOrderStatus(ctx, "missing", domain.OrderStatusPending, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMemoryStore_ApplyRating_ConcurrentNoLostUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "1.00", "10")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ApplyRating(ctx, "p1", 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 50, p.ReviewCount)
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
}

func TestMemoryStore_MarkItemRated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, store, "p1", "f1", "1.00", "10")
	require.NoError(t, store.PlaceOrder(ctx, testOrder("o1", "b1", time.Now(),
		domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("1"), Quantity: dec("1")})))

	require.NoError(t, store.MarkItemRated(ctx, "o1", "p1"))

	o, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, o.Items[0].IsRated)
	assert.ErrorIs(t, store.MarkItemRated(ctx, "o1", "p9"), domain.ErrNotFound)
}

func TestMemoryStore_WatchOrders(t *testing.T) {
	store := NewMemoryStore()
	seedProduct(t, store, "p1", "f1", "1.00", "10")

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := store.WatchOrders(ctx)
	require.NoError(t, err)

	require.NoError(t, store.PlaceOrder(context.Background(), testOrder("o1", "b1", time.Now(),
		domain.OrderItem{ProductID: "p1", SellerID: "f1", Price: dec("1"), Quantity: dec("1")})))

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Users(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleBuyer}))
	assert.ErrorIs(t, store.CreateUser(ctx, &domain.User{ID: "u2", Email: "A@example.com"}), domain.ErrAlreadyExists)

	u, err := store.GetUserByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u.City = "Nashik"
	require.NoError(t, store.UpdateUser(ctx, u))
	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Nashik", got.City)

	_, err = store.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
