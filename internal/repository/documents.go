package repository

import (
	"fmt"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money and quantities are stored as Decimal128 so $inc and $gte stay exact.

type productDocument struct {
	ID          string               `bson:"_id"`
	UID         string               `bson:"uid"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       primitive.Decimal128 `bson:"stock"`
	Image       string               `bson:"image"`
	Seller      string               `bson:"seller"`
	AIHint      string               `bson:"aiHint"`
	Rating      float64              `bson:"rating"`
	ReviewCount int                  `bson:"reviewCount"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

type orderItemDocument struct {
	ProductID string               `bson:"productId"`
	SellerID  string               `bson:"sellerId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  primitive.Decimal128 `bson:"quantity"`
	Image     string               `bson:"image"`
	AIHint    string               `bson:"aiHint"`
	IsRated   bool                 `bson:"isRated"`
}

type orderDocument struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"userId"`
	BuyerName       string               `bson:"buyerName"`
	Items           []orderItemDocument  `bson:"items"`
	SellerIDs       []string             `bson:"sellerIds"`
	Total           primitive.Decimal128 `bson:"total"`
	Status          string               `bson:"status"`
	Date            time.Time            `bson:"date"`
	ShippingAddress string               `bson:"shippingAddress"`
}

type userDocument struct {
	ID        string    `bson:"_id"`
	FullName  string    `bson:"fullName"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	Address   string    `bson:"address,omitempty"`
	City      string    `bson:"city,omitempty"`
	Zip       string    `bson:"zip,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal.String never produces something Decimal128 cannot parse
		panic(fmt.Sprintf("decimal128 conversion of %s: %v", d, err))
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", v.String(), err)
	}
	return d, nil
}

func newProductDocument(p *domain.Product) productDocument {
	return productDocument{
		ID:          p.ID,
		UID:         p.FarmerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       toDecimal128(p.Price),
		Stock:       toDecimal128(p.Stock),
		Image:       p.Image,
		Seller:      p.Seller,
		AIHint:      p.AIHint,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   p.CreatedAt,
	}
}

func (d productDocument) toDomain() (*domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", d.ID, err)
	}
	stock, err := fromDecimal128(d.Stock)
	if err != nil {
		return nil, fmt.Errorf("product %s stock: %w", d.ID, err)
	}
	return &domain.Product{
		ID:          d.ID,
		FarmerID:    d.UID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Stock:       stock,
		Image:       d.Image,
		Seller:      d.Seller,
		AIHint:      d.AIHint,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func newOrderDocument(o *domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDocument{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.Name,
			Price:     toDecimal128(it.Price),
			Quantity:  toDecimal128(it.Quantity),
			Image:     it.Image,
			AIHint:    it.AIHint,
			IsRated:   it.IsRated,
		})
	}
	return orderDocument{
		ID:              o.ID,
		UserID:          o.UserID,
		BuyerName:       o.BuyerName,
		Items:           items,
		SellerIDs:       o.SellerIDs(),
		Total:           toDecimal128(o.Total),
		Status:          string(o.Status),
		Date:            o.CreatedAt,
		ShippingAddress: o.ShippingAddress,
	}
}

func (d orderDocument) toDomain() (*domain.Order, error) {
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", d.ID, err)
	}
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s item %s price: %w", d.ID, it.ProductID, err)
		}
		qty, err := fromDecimal128(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("order %s item %s quantity: %w", d.ID, it.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.Name,
			Price:     price,
			Quantity:  qty,
			Image:     it.Image,
			AIHint:    it.AIHint,
			IsRated:   it.IsRated,
		})
	}
	return &domain.Order{
		ID:              d.ID,
		UserID:          d.UserID,
		BuyerName:       d.BuyerName,
		Items:           items,
		Total:           total,
		Status:          domain.OrderStatus(d.Status),
		CreatedAt:       d.Date,
		ShippingAddress: d.ShippingAddress,
	}, nil
}

func newUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		Address:   u.Address,
		City:      u.City,
		Zip:       u.Zip,
		CreatedAt: u.CreatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:        d.ID,
		FullName:  d.FullName,
		Email:     d.Email,
		Role:      domain.Role(d.Role),
		Address:   d.Address,
		City:      d.City,
		Zip:       d.Zip,
		CreatedAt: d.CreatedAt,
	}
}
