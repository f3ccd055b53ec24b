package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hema22923/AgriConnect/internal/domain"
)

// MemoryStore implements ProductRepository, OrderRepository and
// UserRepository with in-memory storage. All mutations run under one lock,
// so a multi-document write is atomic the same way a transaction is.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	users    map[string]*domain.User

	// sellerID -> orderIDs
	sellerOrders map[string]map[string]struct{}

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
}

var (
	_ ProductRepository = (*MemoryStore)(nil)
	_ OrderRepository   = (*MemoryStore)(nil)
	_ UserRepository    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[string]*domain.Product),
		orders:       make(map[string]*domain.Order),
		users:        make(map[string]*domain.User),
		sellerOrders: make(map[string]map[string]struct{}),
		watchers:     make(map[chan struct{}]struct{}),
	}
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, cloneProduct(p))
	}
	sortProducts(result)
	return result, nil
}

func (s *MemoryStore) ListProductsByFarmer(_ context.Context, farmerID string) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Product{}
	for _, p := range s.products {
		if p.FarmerID == farmerID {
			result = append(result, cloneProduct(p))
		}
	}
	sortProducts(result)
	return result, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.products[p.ID] = cloneProduct(p)
	return nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[p.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	current.Name = p.Name
	current.Description = p.Description
	current.Price = p.Price
	current.Stock = p.Stock
	current.Image = p.Image
	current.AIHint = p.AIHint
	current.Seller = p.Seller
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ApplyRating(_ context.Context, productID string, rating int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	updated := cloneProduct(p)
	if err := updated.ApplyRating(rating); err != nil {
		return nil, err
	}
	s.products[productID] = updated
	return cloneProduct(updated), nil
}

func (s *MemoryStore) PlaceOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrAlreadyExists
	}

	decrements := order.Decrements()

	// First pass: validate every product exists with enough stock
	for _, d := range decrements {
		p, ok := s.products[d.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Stock.LessThan(d.Quantity) {
			return domain.ErrInsufficientStock
		}
	}

	// Second pass: apply decrements and insert the order
	for _, d := range decrements {
		p := s.products[d.ProductID]
		p.Stock = p.Stock.Sub(d.Quantity)
	}
	stored := cloneOrder(order)
	s.orders[stored.ID] = stored
	for _, sellerID := range stored.SellerIDs() {
		if s.sellerOrders[sellerID] == nil {
			s.sellerOrders[sellerID] = make(map[string]struct{})
		}
		s.sellerOrders[sellerID][stored.ID] = struct{}{}
	}

	s.notify()
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) ListOrdersByBuyer(_ context.Context, buyerID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Order{}
	for _, o := range s.orders {
		if o.UserID == buyerID {
			result = append(result, cloneOrder(o))
		}
	}
	domain.SortOrdersNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) ListOrdersBySeller(_ context.Context, sellerID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Order{}
	for id := range s.sellerOrders[sellerID] {
		result = append(result, cloneOrder(s.orders[id]))
	}
	domain.SortOrdersNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrIllegalTransition
	}
	o.Status = to

	s.notify()
	return nil
}

func (s *MemoryStore) MarkItemRated(_ context.Context, orderID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	item, ok := o.Item(productID)
	if !ok {
		return domain.ErrProductNotFound
	}
	item.IsRated = true

	s.notify()
	return nil
}

func (s *MemoryStore) WatchOrders(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.watchMu.Unlock()
	}()

	return ch, nil
}

// notify signals every watcher without blocking; a watcher that has not
// drained its previous signal gets the two coalesced.
func (s *MemoryStore) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrAlreadyExists
		}
	}
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	current.FullName = u.FullName
	current.Address = u.Address
	current.City = u.City
	current.Zip = u.Zip
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	copied := *p
	return &copied
}

func cloneOrder(o *domain.Order) *domain.Order {
	copied := *o
	copied.Items = append([]domain.OrderItem(nil), o.Items...)
	return &copied
}

func sortProducts(products []*domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}
