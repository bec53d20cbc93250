package order_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/store-api/internal/events"
	"github.com/MikeMC777/store-api/internal/order"
	"github.com/MikeMC777/store-api/internal/storage/postgres"
)

// These tests run the SQL of PGStore against a real database and are skipped
// unless POSTGRES_TEST_DSN is set. Every test seeds its own rows.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn, 16)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, 'x')
	`, id, "u-"+id[:8], id+"@test.io")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, price string, stock int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)
	`, id, "p-"+id[:8], price, stock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func seedCart(t *testing.T, pool *pgxpool.Pool, userID, productID string, qty int) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
	`, userID, productID, qty)
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func stockOf(t *testing.T, pool *pgxpool.Pool, productID string) int {
	return countRows(t, pool, `SELECT stock FROM products WHERE id = $1`, productID)
}

func newPGManager(pool *pgxpool.Pool) (*order.Manager, *order.PGStore) {
	st := order.NewPGStore(pool, events.DefaultTopic)
	return order.NewManager(st, zap.NewNop(), nil), st
}

func TestPGStore_PlaceAndCancel(t *testing.T) {
	pool := testPool(t)
	mgr, _ := newPGManager(pool)
	ctx := context.Background()

	uid := seedUser(t, pool)
	a := seedProduct(t, pool, "10.00", 5)
	b := seedProduct(t, pool, "5.50", 3)
	seedCart(t, pool, uid, a, 2)
	seedCart(t, pool, uid, b, 1)

	o, err := mgr.PlaceOrder(ctx, uid)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if o.Total.StringFixed(2) != "25.50" || len(o.Items) != 2 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if stockOf(t, pool, a) != 3 || stockOf(t, pool, b) != 2 {
		t.Fatalf("stock not taken")
	}
	if n := countRows(t, pool, `SELECT count(*) FROM cart_items WHERE user_id = $1`, uid); n != 0 {
		t.Fatalf("cart not cleared: %d", n)
	}
	if n := countRows(t, pool, `SELECT count(*) FROM outbox WHERE key = $1`, o.ID); n != 1 {
		t.Fatalf("outbox rows=%d", n)
	}

	got, err := mgr.GetOrder(ctx, uid, o.ID)
	if err != nil || got.Items[0].ProductName == "" {
		t.Fatalf("get: %+v %v", got, err)
	}

	if _, err := mgr.CancelOrder(ctx, seedUser(t, pool), o.ID); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("foreign cancel: %v", err)
	}
	if _, err := mgr.CancelOrder(ctx, uid, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if stockOf(t, pool, a) != 5 || stockOf(t, pool, b) != 3 {
		t.Fatalf("stock not restored")
	}
	var state *order.InvalidStateError
	if _, err := mgr.CancelOrder(ctx, uid, o.ID); !errors.As(err, &state) {
		t.Fatalf("second cancel: %v", err)
	}
	if n := countRows(t, pool, `SELECT count(*) FROM outbox WHERE key = $1`, o.ID); n != 2 {
		t.Fatalf("outbox rows=%d", n)
	}
}

func TestPGStore_InsufficientStockLeavesNoTrace(t *testing.T) {
	pool := testPool(t)
	mgr, _ := newPGManager(pool)

	uid := seedUser(t, pool)
	a := seedProduct(t, pool, "1.00", 4)
	b := seedProduct(t, pool, "1.00", 1)
	seedCart(t, pool, uid, a, 2)
	seedCart(t, pool, uid, b, 3)

	_, err := mgr.PlaceOrder(context.Background(), uid)
	var short *order.InsufficientStockError
	if !errors.As(err, &short) || len(short.Lines) != 1 || short.Lines[0].ProductID != b {
		t.Fatalf("want shortage on %s, got %v", b, err)
	}
	if stockOf(t, pool, a) != 4 || stockOf(t, pool, b) != 1 {
		t.Fatalf("stock changed")
	}
	if n := countRows(t, pool, `SELECT count(*) FROM orders WHERE user_id = $1`, uid); n != 0 {
		t.Fatalf("orders=%d", n)
	}
	if n := countRows(t, pool, `SELECT count(*) FROM cart_items WHERE user_id = $1`, uid); n != 2 {
		t.Fatalf("cart lines=%d", n)
	}
}

func TestPGStore_GuardedWrites(t *testing.T) {
	pool := testPool(t)
	_, st := newPGManager(pool)
	ctx := context.Background()
	pid := seedProduct(t, pool, "1.00", 2)

	err := st.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		if ok, err := tx.DecrementStockIfAvailable(ctx, pid, 3); err != nil || ok {
			return fmt.Errorf("decrement 3 of 2: ok=%v err=%v", ok, err)
		}
		if ok, err := tx.DecrementStockIfAvailable(ctx, pid, 2); err != nil || !ok {
			return fmt.Errorf("decrement 2 of 2: ok=%v err=%v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if stockOf(t, pool, pid) != 0 {
		t.Fatalf("stock=%d", stockOf(t, pool, pid))
	}

	uid := seedUser(t, pool)
	seedCart(t, pool, uid, seedProduct(t, pool, "1.00", 1), 1)
	mgr, _ := newPGManager(pool)
	o, err := mgr.PlaceOrder(ctx, uid)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	err = st.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		if ok, err := tx.SetStatusIf(ctx, o.ID, order.StatusProcessing, order.StatusShipped); err != nil || ok {
			return fmt.Errorf("write from wrong status: ok=%v err=%v", ok, err)
		}
		if ok, err := tx.SetStatusIf(ctx, o.ID, order.StatusPending, order.StatusProcessing); err != nil || !ok {
			return fmt.Errorf("write from PENDING: ok=%v err=%v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := st.GetOrder(ctx, o.ID)
	if err != nil || got.Status != order.StatusProcessing {
		t.Fatalf("status: %+v %v", got, err)
	}
}

func TestPGStore_ConcurrentBuyersNeverOversell(t *testing.T) {
	pool := testPool(t)
	mgr, _ := newPGManager(pool)
	pid := seedProduct(t, pool, "3.00", 3)

	const buyers = 10
	users := make([]string, buyers)
	for i := range users {
		users[i] = seedUser(t, pool)
		seedCart(t, pool, users[i], pid, 1)
	}

	var ok, short atomic.Int32
	var g errgroup.Group
	for _, uid := range users {
		uid := uid
		g.Go(func() error {
			_, err := mgr.PlaceOrder(context.Background(), uid)
			var stock *order.InsufficientStockError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &stock):
				short.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Load() != 3 || short.Load() != buyers-3 || stockOf(t, pool, pid) != 0 {
		t.Fatalf("ok=%d short=%d stock=%d", ok.Load(), short.Load(), stockOf(t, pool, pid))
	}
}

func TestPGStore_SameUserConcurrentlyGetsOneOrder(t *testing.T) {
	pool := testPool(t)
	mgr, _ := newPGManager(pool)
	uid := seedUser(t, pool)
	pid := seedProduct(t, pool, "2.00", 20)
	seedCart(t, pool, uid, pid, 1)

	const attempts = 8
	var ok, empty atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := mgr.PlaceOrder(context.Background(), uid)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, order.ErrEmptyCart):
				empty.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Load() != 1 || empty.Load() != attempts-1 {
		t.Fatalf("ok=%d empty=%d", ok.Load(), empty.Load())
	}
	if stockOf(t, pool, pid) != 19 {
		t.Fatalf("stock=%d", stockOf(t, pool, pid))
	}
	if n := countRows(t, pool, `SELECT count(*) FROM orders WHERE user_id = $1`, uid); n != 1 {
		t.Fatalf("orders=%d", n)
	}
}

// A placement that reads the cart while another transaction is consuming it must
// wait for that transaction and then see an empty cart.
func TestPGStore_PlacementWaitsForCartHolder(t *testing.T) {
	pool := testPool(t)
	mgr, _ := newPGManager(pool)
	ctx := context.Background()
	uid := seedUser(t, pool)
	pid := seedProduct(t, pool, "2.00", 5)
	seedCart(t, pool, uid, pid, 1)

	holder, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = holder.Rollback(ctx) }()
	if _, err := holder.Exec(ctx, `SELECT 1 FROM cart_items WHERE user_id = $1 FOR UPDATE`, uid); err != nil {
		t.Fatalf("lock cart: %v", err)
	}
	if _, err := holder.Exec(ctx, `UPDATE products SET stock = stock - 1 WHERE id = $1`, pid); err != nil {
		t.Fatalf("take stock: %v", err)
	}
	if _, err := holder.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, uid); err != nil {
		t.Fatalf("clear cart: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := mgr.PlaceOrder(ctx, uid)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("placement did not wait for the cart holder: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
	if err := holder.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, order.ErrEmptyCart) {
			t.Fatalf("want ErrEmptyCart, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("placement still blocked")
	}
	if stockOf(t, pool, pid) != 4 {
		t.Fatalf("stock=%d", stockOf(t, pool, pid))
	}
	if n := countRows(t, pool, `SELECT count(*) FROM orders WHERE user_id = $1`, uid); n != 0 {
		t.Fatalf("orders=%d", n)
	}
}
