package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartCode is the non-fatal outcome of a cart mutation. The mutation itself
// always succeeds; the code tells the caller whether stock got in the way.
type CartCode string

const (
	CartOK           CartCode = "OK"
	CartOutOfStock   CartCode = "OUT_OF_STOCK"
	CartLimitedStock CartCode = "LIMITED_STOCK"
)

// ProductSnapshot is what the cart remembers about a product at add time.
// Stock is the ceiling used for clamping and is refreshed on every mutation
// that reads the live product.
type ProductSnapshot struct {
	ID       string          `json:"id"`
	FarmerID string          `json:"uid"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    decimal.Decimal `json:"stock"`
	Image    string          `json:"image"`
	AIHint   string          `json:"aiHint"`
	Seller   string          `json:"seller"`
}

func SnapshotOf(p *Product) ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		FarmerID: p.FarmerID,
		Name:     p.Name,
		Price:    p.Price,
		Stock:    p.Stock,
		Image:    p.Image,
		AIHint:   p.AIHint,
		Seller:   p.Seller,
	}
}

type CartLine struct {
	Product  ProductSnapshot `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(l.Quantity)
}

// Cart is a buyer's session cart. Lines keep insertion order and hold at
// most one entry per product, always with 0 < quantity <= snapshot stock.
type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartResult reports the code of a mutation and the resulting line, or nil
// when the product is not (or no longer) in the cart.
type CartResult struct {
	Code CartCode
	Line *CartLine
}

func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Lines: []CartLine{}}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Line(productID string) (*CartLine, bool) {
	i := c.indexOf(productID)
	if i < 0 {
		return nil, false
	}
	return &c.Lines[i], true
}

// Add merges qty of p into the cart, clamping the line to the live stock.
// Out-of-stock products leave the cart untouched.
func (c *Cart) Add(p *Product, qty decimal.Decimal) (CartResult, error) {
	if err := ValidateQuantity(qty); err != nil {
		return CartResult{}, err
	}

	i := c.indexOf(p.ID)
	if !p.InStock() {
		return CartResult{Code: CartOutOfStock, Line: c.lineAt(i)}, nil
	}

	code := CartOK
	wanted := qty
	if i >= 0 {
		wanted = c.Lines[i].Quantity.Add(qty)
	}
	if wanted.GreaterThan(p.Stock) {
		wanted = p.Stock
		code = CartLimitedStock
	}

	if i >= 0 {
		c.Lines[i].Product.Stock = p.Stock
		c.Lines[i].Quantity = wanted
	} else {
		c.Lines = append(c.Lines, CartLine{Product: SnapshotOf(p), Quantity: wanted})
		i = len(c.Lines) - 1
	}
	return CartResult{Code: code, Line: c.lineAt(i)}, nil
}

// UpdateQuantity sets the quantity of an existing line. Non-positive values
// remove the line; values above the snapshot stock are clamped. Products
// not in the cart are ignored.
func (c *Cart) UpdateQuantity(productID string, qty decimal.Decimal) (CartResult, error) {
	i := c.indexOf(productID)
	if i < 0 {
		return CartResult{Code: CartOK}, nil
	}
	if !qty.IsPositive() {
		c.removeAt(i)
		return CartResult{Code: CartOK}, nil
	}
	if !hasQuantityPrecision(qty) {
		return CartResult{}, invalid("quantity allows at most one decimal place")
	}

	stock := c.Lines[i].Product.Stock
	if qty.GreaterThan(stock) {
		if !stock.IsPositive() {
			c.removeAt(i)
			return CartResult{Code: CartOutOfStock}, nil
		}
		c.Lines[i].Quantity = stock
		return CartResult{Code: CartLimitedStock, Line: c.lineAt(i)}, nil
	}

	c.Lines[i].Quantity = qty
	return CartResult{Code: CartOK, Line: c.lineAt(i)}, nil
}

// RefreshStock updates the stock ceiling remembered for a line.
func (c *Cart) RefreshStock(productID string, stock decimal.Decimal) {
	if i := c.indexOf(productID); i >= 0 {
		c.Lines[i].Product.Stock = stock
	}
}

// Remove drops the line for productID and reports whether one existed.
func (c *Cart) Remove(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// RemoveOrdered takes the ordered quantities out of the cart. A line keeps
// whatever the buyer added on top of what was ordered.
func (c *Cart) RemoveOrdered(items []OrderItem) {
	for _, it := range items {
		i := c.indexOf(it.ProductID)
		if i < 0 {
			continue
		}
		left := c.Lines[i].Quantity.Sub(it.Quantity)
		if !left.IsPositive() {
			c.removeAt(i)
			continue
		}
		c.Lines[i].Quantity = left
	}
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

// ItemCount is the sum of line quantities, not the number of lines.
func (c *Cart) ItemCount() decimal.Decimal {
	count := decimal.Zero
	for _, l := range c.Lines {
		count = count.Add(l.Quantity)
	}
	return count
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) lineAt(i int) *CartLine {
	if i < 0 || i >= len(c.Lines) {
		return nil
	}
	line := c.Lines[i]
	return &line
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}
