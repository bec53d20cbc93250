package order

import (
	"context"

	"github.com/MikeMC777/store-api/internal/events"
)

// Tx is the set of reads and writes available inside one unit of work.
// Implementations must make all of them commit or roll back together.
type Tx interface {
	// CartLines returns the user's cart joined with current product data and holds
	// those lines until the unit of work ends.
	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	ClearCart(ctx context.Context, userID string) error

	// DecrementStockIfAvailable subtracts qty only while stock >= qty and reports whether it did.
	DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID string, qty int) error
	ProductStock(ctx context.Context, productID string) (int, error)

	CreateOrder(ctx context.Context, o *Order) error
	// LockOrder loads the order with its items and holds it until the unit of work ends.
	LockOrder(ctx context.Context, orderID string) (*Order, error)
	// SetStatusIf writes to only when the current status is from.
	SetStatusIf(ctx context.Context, orderID string, from, to Status) (bool, error)

	AppendEvent(ctx context.Context, ev events.Event) error
}

type Store interface {
	// WithinTx runs fn in a single transaction. An error from fn rolls it back and is
	// returned unchanged.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
}
