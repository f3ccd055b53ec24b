package cache

import (
	"context"
	"errors"

	"github.com/hema22923/AgriConnect/internal/domain"
)

// CartStore keeps the per-buyer session cart. Get returns an empty cart
// for buyers without one.
type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Update runs fn against the current cart and persists the result as
	// one atomic read-modify-write. fn may be invoked more than once when
	// a concurrent writer wins; an error from fn aborts without writing.
	Update(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

var ErrCartConflict = errors.New("cart was modified concurrently, retries exhausted")

func cloneCart(c *domain.Cart) *domain.Cart {
	copied := *c
	copied.Lines = append([]domain.CartLine{}, c.Lines...)
	return &copied
}
