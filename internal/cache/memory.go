package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
)

// MemoryCartStore keeps carts in process memory. Used when Redis is not
// configured and in tests.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCartStore(ttl time.Duration) *MemoryCartStore {
	return &MemoryCartStore{
		carts: make(map[string]*domain.Cart),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryCartStore) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCart(m.current(userID)), nil
}

func (m *MemoryCartStore) Update(_ context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := cloneCart(m.current(userID))
	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = m.now()

	if cart.IsEmpty() {
		delete(m.carts, userID)
	} else {
		m.carts[userID] = cart
	}
	return cloneCart(cart), nil
}

func (m *MemoryCartStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// current returns the stored cart, dropping it first if it expired.
// Callers hold m.mu.
func (m *MemoryCartStore) current(userID string) *domain.Cart {
	cart, ok := m.carts[userID]
	if !ok {
		return domain.NewCart(userID)
	}
	if m.ttl > 0 && m.now().Sub(cart.UpdatedAt) > m.ttl {
		delete(m.carts, userID)
		return domain.NewCart(userID)
	}
	return cart
}
