package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/store-api/internal/events"
	"github.com/MikeMC777/store-api/internal/metrics"
	"github.com/MikeMC777/store-api/internal/order"
	"github.com/MikeMC777/store-api/internal/order/ordertest"
)

func newManager(t *testing.T) (*order.Manager, *ordertest.MemStore, *metrics.Metrics) {
	t.Helper()
	st := ordertest.NewMemStore()
	m := metrics.New(prometheus.NewRegistry(), "test")
	return order.NewManager(st, zap.NewNop(), m), st, m
}

func TestPlaceOrder_TwoLines(t *testing.T) {
	mgr, st, m := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddProduct("B", "Bulb", "5.50", 1)
	st.AddToCart("u1", "A", 2)
	st.AddToCart("u1", "B", 1)

	o, err := mgr.PlaceOrder(context.Background(), "u1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if o.Status != order.StatusPending {
		t.Fatalf("status=%s", o.Status)
	}
	if o.Total.StringFixed(2) != "25.50" {
		t.Fatalf("total=%s", o.Total.StringFixed(2))
	}
	if len(o.Items) != 2 || o.Items[0].ProductName != "Lamp" || o.Items[0].Price.StringFixed(2) != "10.00" {
		t.Fatalf("items=%+v", o.Items)
	}
	if st.Stock("A") != 3 || st.Stock("B") != 0 {
		t.Fatalf("stock A=%d B=%d", st.Stock("A"), st.Stock("B"))
	}
	if st.CartSize("u1") != 0 {
		t.Fatalf("cart not cleared")
	}
	evs := st.Events()
	if len(evs) != 1 || evs[0].Type != events.TypeOrderPlaced || evs[0].OrderID != o.ID {
		t.Fatalf("events=%+v", evs)
	}
	if got := testutil.ToFloat64(m.OrdersPlaced); got != 1 {
		t.Fatalf("placed metric=%v", got)
	}
}

func TestPlaceOrder_PriceIsSnapshotted(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart("u1", "A", 1)

	o, err := mgr.PlaceOrder(context.Background(), "u1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	st.AddProduct("A", "Lamp", "99.99", 4)

	got := st.Order(o.ID)
	if got.Items[0].Price.StringFixed(2) != "10.00" || got.Total.StringFixed(2) != "10.00" {
		t.Fatalf("stored order changed with product price: %+v", got)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)

	_, err := mgr.PlaceOrder(context.Background(), "u1")
	if !errors.Is(err, order.ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
	if st.Stock("A") != 5 || st.OrderCount() != 0 || len(st.Events()) != 0 {
		t.Fatalf("state changed on empty cart")
	}
}

func TestPlaceOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	mgr, st, m := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 1)
	st.AddProduct("B", "Bulb", "5.50", 10)
	st.AddToCart("u1", "A", 2)
	st.AddToCart("u1", "B", 3)

	_, err := mgr.PlaceOrder(context.Background(), "u1")
	var stock *order.InsufficientStockError
	if !errors.As(err, &stock) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if len(stock.Lines) != 1 {
		t.Fatalf("lines=%+v", stock.Lines)
	}
	l := stock.Lines[0]
	if l.ProductID != "A" || l.Available != 1 || l.Required != 2 {
		t.Fatalf("line=%+v", l)
	}
	if st.Stock("A") != 1 || st.Stock("B") != 10 {
		t.Fatalf("partial decrement A=%d B=%d", st.Stock("A"), st.Stock("B"))
	}
	if st.CartSize("u1") != 2 || st.OrderCount() != 0 {
		t.Fatalf("cart or orders changed")
	}
	if got := testutil.ToFloat64(m.StockRejections); got != 1 {
		t.Fatalf("rejection metric=%v", got)
	}
}

func TestPlaceOrder_ReportsEveryShortLine(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 0)
	st.AddProduct("B", "Bulb", "5.50", 1)
	st.AddProduct("C", "Cord", "2.00", 9)
	st.AddToCart("u1", "A", 1)
	st.AddToCart("u1", "B", 2)
	st.AddToCart("u1", "C", 1)

	_, err := mgr.PlaceOrder(context.Background(), "u1")
	var stock *order.InsufficientStockError
	if !errors.As(err, &stock) || len(stock.Lines) != 2 {
		t.Fatalf("want two short lines, got %v", err)
	}
}

func TestPlaceOrder_GuardedDecrementWinsOverStaleCheck(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddProduct("B", "Bulb", "5.50", 5)
	st.AddToCart("u1", "A", 2)
	st.AddToCart("u1", "B", 2)

	// another buyer takes B after the cart was read
	st.BeforeDecrement = func(productID string) {
		if productID == "B" {
			st.SetStock("B", 1)
		}
	}

	_, err := mgr.PlaceOrder(context.Background(), "u1")
	var stock *order.InsufficientStockError
	if !errors.As(err, &stock) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if len(stock.Lines) != 1 || stock.Lines[0].ProductID != "B" || stock.Lines[0].Available != 1 {
		t.Fatalf("lines=%+v", stock.Lines)
	}
	st.BeforeDecrement = nil
	if st.Stock("A") != 5 {
		t.Fatalf("A decrement leaked: %d", st.Stock("A"))
	}
	if st.OrderCount() != 0 || st.CartSize("u1") != 2 {
		t.Fatalf("order or cart changed")
	}
}

func TestPlaceOrder_StorageFailureRollsBack(t *testing.T) {
	for _, method := range []string{"CartLines", "DecrementStockIfAvailable", "CreateOrder", "ClearCart", "AppendEvent"} {
		t.Run(method, func(t *testing.T) {
			mgr, st, _ := newManager(t)
			st.AddProduct("A", "Lamp", "10.00", 5)
			st.AddToCart("u1", "A", 2)
			st.FailOn(method)

			_, err := mgr.PlaceOrder(context.Background(), "u1")
			var se *order.StorageError
			if !errors.As(err, &se) || !errors.Is(err, ordertest.ErrInjected) {
				t.Fatalf("want StorageError, got %v", err)
			}
			st.FailOn("")
			if st.Stock("A") != 5 || st.CartSize("u1") != 1 || st.OrderCount() != 0 || len(st.Events()) != 0 {
				t.Fatalf("partial mutation escaped")
			}
		})
	}
}

func TestPlaceThenCancelRestoresStock(t *testing.T) {
	mgr, st, m := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddProduct("B", "Bulb", "5.50", 3)
	st.AddToCart("u1", "A", 2)
	st.AddToCart("u1", "B", 3)

	o, err := mgr.PlaceOrder(context.Background(), "u1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	conf, err := mgr.CancelOrder(context.Background(), "u1", o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if conf.OrderID != o.ID || conf.Status != order.StatusCancelled {
		t.Fatalf("confirmation=%+v", conf)
	}
	if st.Stock("A") != 5 || st.Stock("B") != 3 {
		t.Fatalf("stock A=%d B=%d", st.Stock("A"), st.Stock("B"))
	}
	if st.Order(o.ID).Status != order.StatusCancelled {
		t.Fatalf("status=%s", st.Order(o.ID).Status)
	}
	evs := st.Events()
	if len(evs) != 2 || evs[1].Type != events.TypeOrderCancelled {
		t.Fatalf("events=%+v", evs)
	}
	if got := testutil.ToFloat64(m.OrdersCancelled); got != 1 {
		t.Fatalf("cancel metric=%v", got)
	}
}

func TestCancelOrder_NotOwner(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart("u1", "A", 2)
	o, err := mgr.PlaceOrder(context.Background(), "u1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := mgr.CancelOrder(context.Background(), "u2", o.ID); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if st.Stock("A") != 3 || st.Order(o.ID).Status != order.StatusPending {
		t.Fatalf("state changed by foreign cancel")
	}
}

func TestCancelOrder_UnknownOrMalformedID(t *testing.T) {
	mgr, _, _ := newManager(t)
	for _, id := range []string{"not-a-uuid", "6f1c2d7e-4b1a-4f7c-9a3e-2f5d8c9b0a11"} {
		if _, err := mgr.CancelOrder(context.Background(), "u1", id); !errors.Is(err, order.ErrNotFound) {
			t.Fatalf("id %q: want ErrNotFound, got %v", id, err)
		}
	}
}

func TestCancelOrder_OnlyFromPending(t *testing.T) {
	for _, target := range []string{"PROCESSING", "SHIPPED", "DELIVERED"} {
		t.Run(target, func(t *testing.T) {
			mgr, st, _ := newManager(t)
			st.AddProduct("A", "Lamp", "10.00", 5)
			st.AddToCart("u1", "A", 2)
			o, err := mgr.PlaceOrder(context.Background(), "u1")
			if err != nil {
				t.Fatalf("place: %v", err)
			}
			if _, err := mgr.UpdateStatus(context.Background(), o.ID, target); err != nil {
				t.Fatalf("update: %v", err)
			}

			_, err = mgr.CancelOrder(context.Background(), "u1", o.ID)
			var state *order.InvalidStateError
			if !errors.As(err, &state) || string(state.Status) != target {
				t.Fatalf("want InvalidStateError with %s, got %v", target, err)
			}
			if st.Stock("A") != 3 || string(st.Order(o.ID).Status) != target {
				t.Fatalf("state changed")
			}
		})
	}
}

func TestCancelOrder_Twice(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart("u1", "A", 2)
	o, _ := mgr.PlaceOrder(context.Background(), "u1")

	if _, err := mgr.CancelOrder(context.Background(), "u1", o.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, err := mgr.CancelOrder(context.Background(), "u1", o.ID)
	var state *order.InvalidStateError
	if !errors.As(err, &state) || state.Status != order.StatusCancelled {
		t.Fatalf("want InvalidStateError, got %v", err)
	}
	if st.Stock("A") != 5 {
		t.Fatalf("stock restored twice: %d", st.Stock("A"))
	}
}

func TestCancelOrder_StorageFailureKeepsOrderPending(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart("u1", "A", 2)
	o, _ := mgr.PlaceOrder(context.Background(), "u1")

	st.FailOn("IncrementStock")
	_, err := mgr.CancelOrder(context.Background(), "u1", o.ID)
	var se *order.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("want StorageError, got %v", err)
	}
	st.FailOn("")
	if st.Order(o.ID).Status != order.StatusPending || st.Stock("A") != 3 {
		t.Fatalf("partial cancel escaped")
	}
}

func TestUpdateStatus(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart("u1", "A", 1)
	o, _ := mgr.PlaceOrder(context.Background(), "u1")

	if _, err := mgr.UpdateStatus(context.Background(), o.ID, "bogus"); !errors.Is(err, order.ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
	var state *order.InvalidStateError
	if _, err := mgr.UpdateStatus(context.Background(), o.ID, "cancelled"); !errors.As(err, &state) {
		t.Fatalf("admin must not cancel, got %v", err)
	}

	got, err := mgr.UpdateStatus(context.Background(), o.ID, "shipped")
	if err != nil || got.Status != order.StatusShipped {
		t.Fatalf("shipped: %+v %v", got, err)
	}
	if _, err := mgr.UpdateStatus(context.Background(), o.ID, "processing"); !errors.As(err, &state) {
		t.Fatalf("backwards move allowed, got %v", err)
	}
	if _, err := mgr.UpdateStatus(context.Background(), o.ID, "delivered"); err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if st.Stock("A") != 4 {
		t.Fatalf("status change touched stock")
	}
	last := st.Events()[len(st.Events())-1]
	if last.Type != events.TypeOrderStatusChanged || last.Payload["to"] != "DELIVERED" {
		t.Fatalf("event=%+v", last)
	}
}

func TestGetAndListOrders(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 50)
	var ids []string
	for i := 0; i < 3; i++ {
		st.AddToCart("u1", "A", 1)
		o, err := mgr.PlaceOrder(context.Background(), "u1")
		if err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		ids = append(ids, o.ID)
	}

	got, err := mgr.GetOrder(context.Background(), "u1", ids[0])
	if err != nil || len(got.Items) != 1 {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := mgr.GetOrder(context.Background(), "u2", ids[0]); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("foreign get: %v", err)
	}

	list, err := mgr.ListOrders(context.Background(), "u1", 2, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d %v", len(list), err)
	}
	list, _ = mgr.ListOrders(context.Background(), "u1", 0, -5)
	if len(list) != 3 {
		t.Fatalf("default limit list=%d", len(list))
	}
	list, _ = mgr.ListOrders(context.Background(), "u2", 10, 0)
	if len(list) != 0 {
		t.Fatalf("foreign list=%d", len(list))
	}
}

func TestListOrders_StorageError(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.FailOn("ListByUser")
	_, err := mgr.ListOrders(context.Background(), "u1", 10, 0)
	var se *order.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("want StorageError, got %v", err)
	}
}

func TestPlaceOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	const buyers = 12
	for i := 0; i < buyers; i++ {
		st.AddToCart(fmt.Sprintf("u%d", i), "A", 1)
	}

	var ok, short atomic.Int32
	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		user := fmt.Sprintf("u%d", i)
		g.Go(func() error {
			_, err := mgr.PlaceOrder(context.Background(), user)
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
	if ok.Load() != 5 || short.Load() != buyers-5 {
		t.Fatalf("ok=%d short=%d", ok.Load(), short.Load())
	}
	if st.Stock("A") != 0 || st.OrderCount() != 5 {
		t.Fatalf("stock=%d orders=%d", st.Stock("A"), st.OrderCount())
	}
}

func TestPlaceOrder_SameUserConcurrentlyGetsOneOrder(t *testing.T) {
	mgr, st, _ := newManager(t)
	st.AddProduct("A", "Lamp", "10.00", 50)
	st.AddToCart("u1", "A", 2)

	const attempts = 8
	var ok, empty atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := mgr.PlaceOrder(context.Background(), "u1")
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
	if st.Stock("A") != 48 || st.OrderCount() != 1 {
		t.Fatalf("stock=%d orders=%d", st.Stock("A"), st.OrderCount())
	}
}
