package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// fulfilment is the admin-driven chain; CANCELLED sits outside it.
var fulfilment = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

// ParseStatus accepts any letter case and the "canceled" spelling.
func ParseStatus(s string) (Status, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "CANCELED" {
		v = string(StatusCancelled)
	}
	switch st := Status(v); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) rank() int {
	for i, st := range fulfilment {
		if st == s {
			return i
		}
	}
	return -1
}

// CanAdvance reports whether an admin may move an order from one status to another.
// Moves go forward along PENDING -> PROCESSING -> SHIPPED -> DELIVERED, skipping is allowed.
func CanAdvance(from, to Status) bool {
	if from.Terminal() || to == StatusCancelled {
		return false
	}
	f, t := from.rank(), to.rank()
	return f >= 0 && t > f
}

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Items     []Item          `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Item is immutable once created; Price is the product price when the order was placed.
type Item struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// CartLine is a cart row joined with the product it references.
type CartLine struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Stock       int
	Quantity    int
}

type Confirmation struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

// Total sums price x quantity over the lines and rounds half away from zero to cents.
func Total(lines []CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, ln := range lines {
		sum = sum.Add(ln.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	return sum.Round(2)
}
