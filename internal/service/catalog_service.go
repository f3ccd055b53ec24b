package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const placeholderImage = "https://placehold.co/600x400.png"

type CatalogService struct {
	repo  repository.ProductRepository
	sfg   singleflight.Group // collapses concurrent reads of the same product
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func NewCatalogService(repo repository.ProductRepository, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ProductInput carries the fields a farmer sets on a listing.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       decimal.Decimal
	Image       string
	AIHint      string
}

// ListProducts returns the catalog, filtered by a case-insensitive name
// search when query is non-empty.
func (s *CatalogService) ListProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return products, nil
	}

	filtered := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if p.MatchesName(query) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetProduct collapses concurrent reads of one product. The shared lookup
// does not inherit any caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ch := s.sfg.DoChan(id, func() (interface{}, error) {
		return s.repo.GetProduct(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// shared across singleflight callers
		p := *res.Val.(*domain.Product)
		return &p, nil
	}
}

func (s *CatalogService) ListFarmerProducts(ctx context.Context, id domain.Identity) ([]*domain.Product, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	return s.repo.ListProductsByFarmer(ctx, id.UserID)
}

func (s *CatalogService) CreateProduct(ctx context.Context, id domain.Identity, in ProductInput) (*domain.Product, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:        s.newID(),
		FarmerID:  id.UserID,
		Seller:    id.Name,
		CreatedAt: s.now().UTC(),
	}
	applyInput(p, in)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.FromContext(ctx, s.log).Info().
		Str("product_id", p.ID).
		Str("farmer_id", p.FarmerID).
		Msg("product listed")
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id domain.Identity, productID string, in ProductInput) (*domain.Product, error) {
	p, err := s.ownedProduct(ctx, id, productID)
	if err != nil {
		return nil, err
	}

	applyInput(p, in)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id domain.Identity, productID string) error {
	if _, err := s.ownedProduct(ctx, id, productID); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	logger.FromContext(ctx, s.log).Info().
		Str("product_id", productID).
		Str("user_id", id.UserID).
		Msg("product deleted")
	return nil
}

// ownedProduct loads a product the caller may edit: its farmer or an admin.
func (s *CatalogService) ownedProduct(ctx context.Context, id domain.Identity, productID string) (*domain.Product, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	if !id.Role.CanSell() && !id.Role.CanAdminister() {
		return nil, domain.ErrForbidden
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(id.UserID) && !id.Role.CanAdminister() {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func applyInput(p *domain.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price
	p.Stock = in.Stock
	p.Image = strings.TrimSpace(in.Image)
	p.AIHint = strings.TrimSpace(in.AIHint)
	if p.Image == "" {
		p.Image = placeholderImage
	}
}
