package repository

import (
	"context"

	"github.com/hema22923/AgriConnect/internal/domain"
)

// ProductRepository defines the catalog storage operations.
// Consumers define this interface, not the MongoDB implementation
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	ListProductsByFarmer(ctx context.Context, farmerID string) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error

	// UpdateProduct overwrites the farmer-editable fields. Rating and
	// review count are left alone.
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// ApplyRating folds rating into the product aggregate as one isolated
	// read-modify-write and returns the updated product.
	ApplyRating(ctx context.Context, productID string, rating int) (*domain.Product, error)
}

// OrderRepository defines order storage operations.
type OrderRepository interface {
	// PlaceOrder decrements the stock of every item and inserts the order
	// as one atomic batch. Either all of it commits or none of it does.
	PlaceOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrdersByBuyer returns the buyer's orders, newest first.
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)

	// ListOrdersBySeller returns orders containing at least one item sold
	// by sellerID, newest first.
	ListOrdersBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error)

	// UpdateOrderStatus moves the order from one status to another and
	// fails with ErrIllegalTransition if it is not currently in from.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
	MarkItemRated(ctx context.Context, orderID, productID string) error

	// WatchOrders emits a signal after every committed order change until
	// ctx is done. Signals may be coalesced.
	WatchOrders(ctx context.Context) (<-chan struct{}, error)
}

// UserRepository defines user profile storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
