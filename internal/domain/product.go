package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a farmer listing. Stock may be fractional (1.5 kg) but never
// carries more than one decimal digit.
type Product struct {
	ID          string          `json:"id"`
	FarmerID    string          `json:"uid"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       decimal.Decimal `json:"stock"`
	Image       string          `json:"image"`
	Seller      string          `json:"seller"`
	AIHint      string          `json:"aiHint"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"reviewCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)

func (p *Product) InStock() bool {
	return p.Stock.IsPositive()
}

func (p *Product) OwnedBy(farmerID string) bool {
	return farmerID != "" && p.FarmerID == farmerID
}

// MatchesName reports whether the product name contains query, ignoring case.
// An empty query matches everything.
func (p *Product) MatchesName(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(query))
}

// ApplyRating folds a single 1..5 rating into the running average.
func (p *Product) ApplyRating(rating int) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}
	total := p.Rating*float64(p.ReviewCount) + float64(rating)
	p.ReviewCount++
	p.Rating = total / float64(p.ReviewCount)
	return nil
}

// Validate checks the fields a farmer is allowed to set.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("product name is required")
	}
	if !p.Price.IsPositive() {
		return invalid("price must be greater than zero")
	}
	if p.Stock.IsNegative() {
		return invalid("stock cannot be negative")
	}
	if !hasQuantityPrecision(p.Stock) {
		return invalid("stock allows at most one decimal place")
	}
	return nil
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return invalid("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateQuantity accepts positive quantities with at most one decimal digit.
func ValidateQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return invalid("quantity must be greater than zero")
	}
	if !hasQuantityPrecision(qty) {
		return invalid("quantity allows at most one decimal place")
	}
	return nil
}

func hasQuantityPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(1))
}
