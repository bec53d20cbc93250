package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSubtotal(t *testing.T) {
	items := []Item{
		{Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{Price: decimal.RequireFromString("5.50"), Quantity: 1},
	}
	if got := Subtotal(items).StringFixed(2); got != "25.50" {
		t.Fatalf("subtotal=%s", got)
	}
	if got := Subtotal(nil).StringFixed(2); got != "0.00" {
		t.Fatalf("empty subtotal=%s", got)
	}
}
