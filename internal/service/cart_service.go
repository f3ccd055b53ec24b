package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type productReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartService struct {
	carts    cache.CartStore
	products productReader
	log      zerolog.Logger
}

func NewCartService(carts cache.CartStore, products productReader, log zerolog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		log:      log,
	}
}

func (s *CartService) GetCart(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	return s.carts.Get(ctx, id.UserID)
}

// AddItem adds qty of the product at its live stock. A stock problem is
// reported through the result code, not as an error.
func (s *CartService) AddItem(ctx context.Context, id domain.Identity, productID string, qty decimal.Decimal) (*domain.Cart, domain.CartResult, error) {
	if err := requireBuyer(id); err != nil {
		return nil, domain.CartResult{}, err
	}
	if err := domain.ValidateQuantity(qty); err != nil {
		return nil, domain.CartResult{}, err
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, domain.CartResult{}, err
	}

	var res domain.CartResult
	cart, err := s.carts.Update(ctx, id.UserID, func(c *domain.Cart) error {
		var errAdd error
		res, errAdd = c.Add(product, qty)
		return errAdd
	})
	if err != nil {
		return nil, domain.CartResult{}, fmt.Errorf("add to cart: %w", err)
	}

	s.logOutcome(ctx, id, productID, res)
	return cart, res, nil
}

// UpdateQuantity sets the quantity of a line, clamping against the latest
// stock reading. A product deleted since it was added keeps the ceiling
// remembered in the cart.
func (s *CartService) UpdateQuantity(ctx context.Context, id domain.Identity, productID string, qty decimal.Decimal) (*domain.Cart, domain.CartResult, error) {
	if err := requireBuyer(id); err != nil {
		return nil, domain.CartResult{}, err
	}

	var live *domain.Product
	if qty.IsPositive() {
		p, err := s.products.GetProduct(ctx, productID)
		switch {
		case err == nil:
			live = p
		case errors.Is(err, domain.ErrProductNotFound):
		default:
			return nil, domain.CartResult{}, err
		}
	}

	var res domain.CartResult
	cart, err := s.carts.Update(ctx, id.UserID, func(c *domain.Cart) error {
		if live != nil {
			c.RefreshStock(productID, live.Stock)
		}
		var errUpdate error
		res, errUpdate = c.UpdateQuantity(productID, qty)
		return errUpdate
	})
	if err != nil {
		return nil, domain.CartResult{}, fmt.Errorf("update cart: %w", err)
	}

	s.logOutcome(ctx, id, productID, res)
	return cart, res, nil
}

func (s *CartService) RemoveItem(ctx context.Context, id domain.Identity, productID string) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	cart, err := s.carts.Update(ctx, id.UserID, func(c *domain.Cart) error {
		c.Remove(productID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, id domain.Identity) error {
	if err := requireBuyer(id); err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, id.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) logOutcome(ctx context.Context, id domain.Identity, productID string, res domain.CartResult) {
	if res.Code == domain.CartOK {
		return
	}
	logger.FromContext(ctx, s.log).Debug().
		Str("user_id", id.UserID).
		Str("product_id", productID).
		Str("code", string(res.Code)).
		Msg("cart mutation limited by stock")
}
