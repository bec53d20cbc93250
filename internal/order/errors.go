package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

type StockShortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Required    int    `json:"required"`
}

// InsufficientStockError lists every cart line that could not be covered.
type InsufficientStockError struct {
	Lines []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		name := l.ProductName
		if name == "" {
			name = l.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s (available %d, required %d)", name, l.Available, l.Required))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s order with status %s", e.Op, e.Status)
}

// StorageError wraps a failed unit of work. Nothing it touched was committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func isDomainErr(err error) bool {
	if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidStatus) {
		return true
	}
	var (
		stock *InsufficientStockError
		state *InvalidStateError
		store *StorageError
	)
	return errors.As(err, &stock) || errors.As(err, &state) || errors.As(err, &store)
}

func wrapStorage(op string, err error) error {
	if err == nil || isDomainErr(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
