package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestSchemaDeclaresEveryTable(t *testing.T) {
	for _, table := range []string{"users", "products", "cart_items", "wishlist_items", "orders", "order_items", "outbox"} {
		if !strings.Contains(Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema misses table %s", table)
		}
	}
	if !strings.Contains(Schema(), "CHECK (stock >= 0)") {
		t.Fatalf("stock must be guarded by a CHECK constraint")
	}
}

func TestNewPoolRejectsBadDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "://nope", 1); err == nil {
		t.Fatalf("expected parse error")
	}
}
