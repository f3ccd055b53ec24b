package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hema22923/AgriConnect/internal/assistant"
	"github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/hema22923/AgriConnect/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopEvents struct{}

func (nopEvents) OrderPlaced(context.Context, *domain.Order) error { return nil }

func (nopEvents) OrderStatusChanged(context.Context, *domain.Order, domain.OrderStatus) error {
	return nil
}

type stubCompleter struct {
	out string
	err error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.out, s.err
}

type testAPI struct {
	store  *repository.MemoryStore
	router http.Handler
}

func newTestAPI(t *testing.T, completer assistant.Completer) *testAPI {
	t.Helper()
	log := zerolog.Nop()
	store := repository.NewMemoryStore()
	carts := cache.NewMemoryCartStore(time.Hour)

	catalog := service.NewCatalogService(store, log)
	ratings := service.NewRatingAggregator(store, log)
	users := service.NewUserService(store, log)
	timeout := 5 * time.Second

	router := NewRouter(Handlers{
		Products:  NewProductHandler(catalog, timeout),
		Cart:      NewCartHandler(service.NewCartService(carts, catalog, log), timeout),
		Checkout:  NewCheckoutHandler(service.NewCheckoutService(store, store, carts, nopEvents{}, log), timeout),
		Orders:    NewOrdersHandler(service.NewOrderFeed(store, ratings, nopEvents{}, log), timeout, log),
		Users:     NewUserHandler(users, timeout),
		Assistant: NewAssistantHandler(assistant.New(completer), timeout),
	}, users, log, timeout)

	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: "buyer-1", FullName: "Asha", Email: "asha@example.com", Role: domain.RoleBuyer, Address: "1 Market St"},
		{ID: "farmer-1", FullName: "Green Acres", Email: "green@example.com", Role: domain.RoleFarmer},
		{ID: "farmer-2", FullName: "Hill Farm", Email: "hill@example.com", Role: domain.RoleFarmer},
		{ID: "admin-1", FullName: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
	} {
		require.NoError(t, store.CreateUser(ctx, u))
	}
	require.NoError(t, store.CreateProduct(ctx, &domain.Product{
		ID: "p1", FarmerID: "farmer-1", Name: "Tomatoes",
		Price: decimal.RequireFromString("5.00"), Stock: decimal.RequireFromString("10"),
	}))
	require.NoError(t, store.CreateProduct(ctx, &domain.Product{
		ID: "p2", FarmerID: "farmer-2", Name: "Honey",
		Price: decimal.RequireFromString("3.00"), Stock: decimal.RequireFromString("1"),
	}))

	return &testAPI{store: store, router: router}
}

func (a *testAPI) do(t *testing.T, method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if uid != "" {
		req.Header.Set(UserIDHeader, uid)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProducts_ListAndSearch(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/products?search=tom", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "p1", resp.Products[0].ID)

	rec = api.do(t, http.MethodGet, "/api/v1/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeError(t, rec).Code)
}

func TestProducts_CreateRequiresFarmer(t *testing.T) {
	api := newTestAPI(t, nil)
	body := map[string]interface{}{"name": "Kale", "price": 2.5, "stock": 4}

	rec := api.do(t, http.MethodPost, "/api/v1/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeAuthRequired, decodeError(t, rec).Code)

	rec = api.do(t, http.MethodPost, "/api/v1/products", "buyer-1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/products", "farmer-1", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "farmer-1", p.FarmerID)
	assert.Equal(t, "Green Acres", p.Seller)

	rec = api.do(t, http.MethodGet, "/api/v1/farmer/products", "farmer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&mine))
	assert.Len(t, mine.Products, 2)
}

func TestProducts_UpdateDeleteOwnership(t *testing.T) {
	api := newTestAPI(t, nil)
	body := map[string]interface{}{"name": "Roma Tomatoes", "price": "6.00", "stock": "8"}

	rec := api.do(t, http.MethodPut, "/api/v1/products/p1", "farmer-2", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/products/p1", "farmer-1", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/products/p1", "farmer-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/products/p1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_StockCodes(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p2", "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.CartLimitedStock, resp.Code)
	assert.NotEmpty(t, resp.Message)
	assert.True(t, decimal.NewFromInt(1).Equal(resp.Cart.ItemCount))
	assert.True(t, decimal.RequireFromString("3.00").Equal(resp.Cart.CartTotal))

	rec = api.do(t, http.MethodPut, "/api/v1/cart/items/p2", "buyer-1", map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = CartResponseDTO{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.CartOK, resp.Code)
	assert.Empty(t, resp.Cart.Items)

	rec = api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1", "quantity": "0.25"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidArgument, decodeError(t, rec).Code)
}

func TestCart_AddWithoutQuantityAddsOneUnit(t *testing.T) {
	api := newTestAPI(t, nil)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/api/v1/cart", "buyer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Cart.Items, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(resp.Cart.Items[0].Quantity))
	assert.True(t, decimal.RequireFromString("10.00").Equal(resp.Cart.CartTotal))

	rec = api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidArgument, decodeError(t, rec).Code)
}

func TestCart_InvalidJSON(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("invalid json"))
	req.Header.Set(UserIDHeader, "buyer-1")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, rec).Code)
}

func TestCheckout_Flow(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/checkout", "buyer-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeEmptyCart, decodeError(t, rec).Code)

	api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1", "quantity": 2})
	api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p2", "quantity": 1})

	rec = api.do(t, http.MethodPost, "/api/v1/checkout", "buyer-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.OrderID)

	rec = api.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID, "buyer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.True(t, decimal.RequireFromString("13.00").Equal(order.Total))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "1 Market St", order.ShippingAddress)

	rec = api.do(t, http.MethodGet, "/api/v1/cart", "buyer-1", nil)
	var cart CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cart))
	assert.Empty(t, cart.Cart.Items)

	rec = api.do(t, http.MethodGet, "/api/v1/farmer/orders", "farmer-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var farmerOrders OrdersResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&farmerOrders))
	require.Len(t, farmerOrders.Orders, 1)
}

func TestOrders_StatusAndRating(t *testing.T) {
	api := newTestAPI(t, nil)

	api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1", "quantity": 1})
	rec := api.do(t, http.MethodPost, "/api/v1/checkout", "buyer-1", map[string]string{"shippingAddress": "9 Orchard Way"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	ratingPath := "/api/v1/orders/" + created.OrderID + "/items/p1/rating"
	rec = api.do(t, http.MethodPost, ratingPath, "buyer-1", map[string]int{"rating": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeNotDelivered, decodeError(t, rec).Code)

	statusPath := "/api/v1/farmer/orders/" + created.OrderID + "/status"
	rec = api.do(t, http.MethodPatch, statusPath, "farmer-2", map[string]string{"status": "Delivered"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPatch, statusPath, "farmer-1", map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, statusPath, "farmer-1", map[string]string{"status": "Delivered"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPatch, statusPath, "farmer-1", map[string]string{"status": "Cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeIllegalTransition, decodeError(t, rec).Code)

	rec = api.do(t, http.MethodPost, ratingPath, "buyer-1", map[string]int{"rating": 4})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPost, ratingPath, "buyer-1", map[string]int{"rating": 4})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeAlreadyRated, decodeError(t, rec).Code)

	p, err := api.store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewCount)
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
}

func TestOrders_StreamDeliversSnapshots(t *testing.T) {
	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/orders/stream", nil)
	require.NoError(t, err)
	req.Header.Set(UserIDHeader, "buyer-1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan OrdersResponseDTO, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var snapshot OrdersResponseDTO
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snapshot) == nil {
				events <- snapshot
			}
		}
		close(events)
	}()

	select {
	case snapshot := <-events:
		assert.Empty(t, snapshot.Orders)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	api.do(t, http.MethodPost, "/api/v1/cart/items", "buyer-1", map[string]interface{}{"productId": "p1", "quantity": 1})
	rec := api.do(t, http.MethodPost, "/api/v1/checkout", "buyer-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case snapshot := <-events:
		assert.Len(t, snapshot.Orders, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after checkout")
	}
}

func TestOrders_StreamRequiresAuth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/farmer/orders/stream", "buyer-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsers_RegisterAndProfile(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/users/register", "new-uid", map[string]string{
		"fullName": "Meera", "email": "meera@example.com", "role": "buyer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/users/register", "other-uid", map[string]string{
		"fullName": "Meera", "email": "MEERA@example.com", "role": "buyer",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeAlreadyExists, decodeError(t, rec).Code)

	rec = api.do(t, http.MethodPut, "/api/v1/users/me", "new-uid", map[string]string{"city": "Pune"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/users/me", "new-uid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var u domain.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.Equal(t, "Pune", u.City)

	rec = api.do(t, http.MethodGet, "/api/v1/users/me", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_ListUsers(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/admin/users", "farmer-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/admin/users", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UsersResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Users, 4)
}

func TestAssistant(t *testing.T) {
	api := newTestAPI(t, stubCompleter{out: "Hello! How can I help?"})

	rec := api.do(t, http.MethodPost, "/api/v1/assistant/chat", "", map[string]string{"query": "hi", "userType": "buyer"})
	require.Equal(t, http.StatusOK, rec.Code)
	var chat ChatResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chat))
	assert.Equal(t, "Hello! How can I help?", chat.Response)

	rec = api.do(t, http.MethodPost, "/api/v1/assistant/suggest-reply", "", map[string]string{
		"productListing": "Tomatoes, 5.00/kg", "buyerQuestion": "Are they organic?",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var reply SuggestReplyResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.NotEmpty(t, reply.SuggestedResponse)
}

func TestAssistant_Unavailable(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/assistant/chat", "", map[string]string{"query": "hi", "userType": "farmer"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, codeUnavailable, decodeError(t, rec).Code)
}
