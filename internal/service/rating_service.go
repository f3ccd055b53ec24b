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

// RatingAggregator maintains the running average rating of each product.
type RatingAggregator struct {
	products repository.ProductRepository
	log      zerolog.Logger
}

func NewRatingAggregator(products repository.ProductRepository, log zerolog.Logger) *RatingAggregator {
	return &RatingAggregator{products: products, log: log}
}

// Rate folds rating into the product aggregate. Concurrent calls for the
// same product never lose an update.
func (a *RatingAggregator) Rate(ctx context.Context, productID string, rating int) (*domain.Product, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}

	p, err := a.products.ApplyRating(ctx, productID, rating)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		logger.FromContext(ctx, a.log).Error().Err(err).
			Str("product_id", productID).
			Msg("rating transaction failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrRatingFailed, err)
	}

	logger.FromContext(ctx, a.log).Info().
		Str("product_id", productID).
		Int("rating", rating).
		Float64("average", p.Rating).
		Int("review_count", p.ReviewCount).
		Msg("product rated")
	return p, nil
}
