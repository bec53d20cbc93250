package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MikeMC777/store-api/internal/events"
	"github.com/MikeMC777/store-api/internal/metrics"
)

var tracer = otel.Tracer("github.com/MikeMC777/store-api/internal/order")

// Manager turns carts into orders and reverses them on cancellation. It never locks
// anything itself; every mutation runs inside one Store unit of work.
type Manager struct {
	store   Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewManager(store Store, log *zap.Logger, m *metrics.Metrics) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, metrics: m, now: time.Now}
}

// PlaceOrder creates a PENDING order from the user's cart, takes the stock and empties
// the cart. On any error nothing is changed.
func (m *Manager) PlaceOrder(ctx context.Context, userID string) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.place")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var placed *Order
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		if short := shortages(lines); len(short) > 0 {
			return &InsufficientStockError{Lines: short}
		}

		// same row order in every transaction keeps concurrent placements deadlock free
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		var short []StockShortage
		for _, ln := range lines {
			ok, err := tx.DecrementStockIfAvailable(ctx, ln.ProductID, ln.Quantity)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			avail, err := tx.ProductStock(ctx, ln.ProductID)
			if err != nil {
				return err
			}
			short = append(short, StockShortage{
				ProductID: ln.ProductID, ProductName: ln.ProductName, Available: avail, Required: ln.Quantity,
			})
		}
		if len(short) > 0 {
			return &InsufficientStockError{Lines: short}
		}

		now := m.now().UTC()
		o := &Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    StatusPending,
			Total:     Total(lines),
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, ln := range lines {
			o.Items = append(o.Items, Item{
				ID:          uuid.NewString(),
				OrderID:     o.ID,
				ProductID:   ln.ProductID,
				ProductName: ln.ProductName,
				Quantity:    ln.Quantity,
				Price:       ln.Price,
			})
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, events.New(events.TypeOrderPlaced, o.ID, userID, map[string]any{
			"total": o.Total.StringFixed(2),
			"items": itemPayload(o.Items),
		})); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		var stock *InsufficientStockError
		if errors.As(err, &stock) {
			m.metrics.StockRejected()
		}
		err = wrapStorage("place order", err)
		m.fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", placed.ID))
	span.SetStatus(codes.Ok, "")
	m.metrics.OrderPlaced()
	m.log.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("user_id", userID),
		zap.String("total", placed.Total.StringFixed(2)),
		zap.Int("lines", len(placed.Items)))
	return placed, nil
}

// CancelOrder moves a PENDING order owned by userID to CANCELLED and puts its stock back.
func (m *Manager) CancelOrder(ctx context.Context, userID, orderID string) (*Confirmation, error) {
	ctx, span := tracer.Start(ctx, "order.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("order.id", orderID))

	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}

	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotFound
		}
		if o.Status != StatusPending {
			return &InvalidStateError{Op: "cancel", Status: o.Status}
		}
		ok, err := tx.SetStatusIf(ctx, o.ID, StatusPending, StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return m.currentStateErr(ctx, tx, o.ID, "cancel")
		}
		for _, it := range o.Items {
			if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return tx.AppendEvent(ctx, events.New(events.TypeOrderCancelled, o.ID, userID, map[string]any{
			"items": itemPayload(o.Items),
		}))
	})
	if err != nil {
		err = wrapStorage("cancel order", err)
		m.fail(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	m.metrics.OrderCancelled()
	m.log.Info("order cancelled", zap.String("order_id", orderID), zap.String("user_id", userID))
	return &Confirmation{OrderID: orderID, Status: StatusCancelled}, nil
}

// UpdateStatus is the admin transition along the fulfilment chain.
func (m *Manager) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}

	var updated *Order
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		op := "set status " + string(to) + " on"
		if !CanAdvance(o.Status, to) {
			return &InvalidStateError{Op: op, Status: o.Status}
		}
		ok, err := tx.SetStatusIf(ctx, o.ID, o.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return m.currentStateErr(ctx, tx, o.ID, op)
		}
		if err := tx.AppendEvent(ctx, events.New(events.TypeOrderStatusChanged, o.ID, o.UserID, map[string]any{
			"from": string(o.Status),
			"to":   string(to),
		})); err != nil {
			return err
		}
		o.Status = to
		o.UpdatedAt = m.now().UTC()
		updated = o
		return nil
	})
	if err != nil {
		return nil, wrapStorage("update order status", err)
	}
	m.log.Info("order status updated", zap.String("order_id", orderID), zap.String("status", string(to)))
	return updated, nil
}

// GetOrder returns an order only to its owner.
func (m *Manager) GetOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	o, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapStorage("get order", err)
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *Manager) ListOrders(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	out, err := m.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, wrapStorage("list orders", err)
	}
	return out, nil
}

func (m *Manager) currentStateErr(ctx context.Context, tx Tx, orderID, op string) error {
	cur, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return &InvalidStateError{Op: op, Status: cur.Status}
}

func (m *Manager) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var store *StorageError
	if errors.As(err, &store) {
		m.log.Error("order storage failure", zap.Error(err))
	}
}

func shortages(lines []CartLine) []StockShortage {
	var out []StockShortage
	for _, ln := range lines {
		if ln.Stock < ln.Quantity {
			out = append(out, StockShortage{
				ProductID: ln.ProductID, ProductName: ln.ProductName, Available: ln.Stock, Required: ln.Quantity,
			})
		}
	}
	return out
}

func itemPayload(items []Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"price":      it.Price.StringFixed(2),
		})
	}
	return out
}
