package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", invalid("unknown order status %q", s)
}

// OrderItem is frozen at checkout: later product edits never change it.
// IsRated is the only field that mutates afterwards.
type OrderItem struct {
	ProductID string          `json:"productId"`
	SellerID  string          `json:"sellerId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Image     string          `json:"image"`
	AIHint    string          `json:"aiHint"`
	IsRated   bool            `json:"isRated"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	BuyerName       string          `json:"buyerName"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"date"`
	ShippingAddress string          `json:"shippingAddress"`
}

// StockDecrement is one conditional stock reduction applied with an order.
type StockDecrement struct {
	ProductID string
	Quantity  decimal.Decimal
}

// NewOrder freezes the cart into a pending order. The total is computed
// from the same snapshots that become the items.
func NewOrder(id string, buyer Identity, cart *Cart, shippingAddress string, createdAt time.Time) (*Order, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]OrderItem, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, OrderItem{
			ProductID: l.Product.ID,
			SellerID:  l.Product.FarmerID,
			Name:      l.Product.Name,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			Image:     l.Product.Image,
			AIHint:    l.Product.AIHint,
		})
	}

	return &Order{
		ID:              id,
		UserID:          buyer.UserID,
		BuyerName:       buyer.Name,
		Items:           items,
		Total:           cart.Total(),
		Status:          OrderStatusPending,
		CreatedAt:       createdAt,
		ShippingAddress: shippingAddress,
	}, nil
}

// Decrements merges items per product so one batch never touches a
// product twice.
func (o *Order) Decrements() []StockDecrement {
	var out []StockDecrement
	seen := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		if i, ok := seen[it.ProductID]; ok {
			out[i].Quantity = out[i].Quantity.Add(it.Quantity)
			continue
		}
		seen[it.ProductID] = len(out)
		out = append(out, StockDecrement{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (o *Order) HasSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerIDs lists the distinct sellers in item order.
func (o *Order) SellerIDs() []string {
	var ids []string
	seen := map[string]bool{}
	for _, it := range o.Items {
		if it.SellerID == "" || seen[it.SellerID] {
			continue
		}
		seen[it.SellerID] = true
		ids = append(ids, it.SellerID)
	}
	return ids
}

func (o *Order) Item(productID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// VisibleTo reports whether id may read the order: its buyer, any farmer
// with an item in it, or an admin.
func (o *Order) VisibleTo(id Identity) bool {
	switch {
	case id.UserID == "":
		return false
	case id.Role.CanAdminister():
		return true
	case o.UserID == id.UserID:
		return true
	case id.Role.CanSell():
		return o.HasSeller(id.UserID)
	}
	return false
}

// CheckRatable returns nil when the buyer may rate productID on this order.
func (o *Order) CheckRatable(productID string) error {
	if o.Status != OrderStatusDelivered {
		return ErrNotDelivered
	}
	item, ok := o.Item(productID)
	if !ok {
		return fmt.Errorf("order item %w", ErrNotFound)
	}
	if item.IsRated {
		return ErrAlreadyRated
	}
	return nil
}

// SortOrdersNewestFirst orders by creation time, newest first. Equal
// timestamps fall back to id so the result is stable across reads.
func SortOrdersNewestFirst(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
