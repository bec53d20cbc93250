package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one cart line joined with the product it points to.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"added_at"`
}

// AddItemRequest payload of add to cart.
// swagger:model AddItemRequest
type AddItemRequest struct {
	ProductID string `json:"product_id" example:"6f1c2d7e-4b1a-4f7c-9a3e-2f5d8c9b0a11"`
	Quantity  int    `json:"quantity"   example:"2"`
}

// SetQuantityRequest payload of quantity change.
// swagger:model SetQuantityRequest
type SetQuantityRequest struct {
	Quantity int `json:"quantity" example:"3"`
}

// Subtotal is price x quantity summed over items, rounded to cents.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}
