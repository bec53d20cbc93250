// Package ordertest provides an in-memory order.Store for tests.
package ordertest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/store-api/internal/events"
	"github.com/MikeMC777/store-api/internal/order"
)

var ErrInjected = errors.New("injected storage failure")

type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// MemStore serializes units of work with one mutex and restores a snapshot when fn
// fails, which gives the same all-or-nothing outcome as a database transaction.
type MemStore struct {
	mu       sync.Mutex
	products map[string]*Product
	carts    map[string]map[string]int
	orders   map[string]*order.Order
	events   []events.Event

	failOn string
	// BeforeDecrement runs inside the unit of work just before each guarded decrement.
	BeforeDecrement func(productID string)
}

func NewMemStore() *MemStore {
	return &MemStore{
		products: map[string]*Product{},
		carts:    map[string]map[string]int{},
		orders:   map[string]*order.Order{},
	}
}

func (s *MemStore) AddProduct(id, name, price string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (s *MemStore) AddToCart(userID, productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] += qty
}

// FailOn makes the named Tx or Store method return ErrInjected; "" clears it.
func (s *MemStore) FailOn(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = method
}

// SetStock is safe to call from BeforeDecrement since the hook runs with the lock held.
func (s *MemStore) SetStock(productID string, stock int) {
	s.products[productID].Stock = stock
}

func (s *MemStore) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *MemStore) CartSize(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[userID])
}

func (s *MemStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *MemStore) Order(id string) *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	cp := copyOrder(o)
	return &cp
}

func (s *MemStore) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

func (s *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "GetOrder" {
		return nil, ErrInjected
	}
	o, ok := s.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "ListByUser" {
		return nil, ErrInjected
	}

	out := []order.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			cp := copyOrder(o)
			cp.Items = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []order.Order{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type snapshot struct {
	products map[string]Product
	carts    map[string]map[string]int
	orders   map[string]order.Order
	events   int
}

func (s *MemStore) snapshot() snapshot {
	snap := snapshot{
		products: map[string]Product{},
		carts:    map[string]map[string]int{},
		orders:   map[string]order.Order{},
		events:   len(s.events),
	}
	for id, p := range s.products {
		snap.products[id] = *p
	}
	for u, c := range s.carts {
		m := map[string]int{}
		for k, v := range c {
			m[k] = v
		}
		snap.carts[u] = m
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.products = map[string]*Product{}
	for id, p := range snap.products {
		p := p
		s.products[id] = &p
	}
	s.carts = snap.carts
	s.orders = map[string]*order.Order{}
	for id, o := range snap.orders {
		o := o
		s.orders[id] = &o
	}
	s.events = s.events[:snap.events]
}

func copyOrder(o *order.Order) order.Order {
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return cp
}

type memTx struct{ s *MemStore }

func (t *memTx) fail(method string) error {
	if t.s.failOn == method {
		return ErrInjected
	}
	return nil
}

func (t *memTx) CartLines(ctx context.Context, userID string) ([]order.CartLine, error) {
	if err := t.fail("CartLines"); err != nil {
		return nil, err
	}
	var lines []order.CartLine
	for pid, qty := range t.s.carts[userID] {
		p, ok := t.s.products[pid]
		if !ok {
			continue
		}
		lines = append(lines, order.CartLine{
			ProductID: pid, ProductName: p.Name, Price: p.Price, Stock: p.Stock, Quantity: qty,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (t *memTx) ClearCart(ctx context.Context, userID string) error {
	if err := t.fail("ClearCart"); err != nil {
		return err
	}
	delete(t.s.carts, userID)
	return nil
}

func (t *memTx) DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	if err := t.fail("DecrementStockIfAvailable"); err != nil {
		return false, err
	}
	if t.s.BeforeDecrement != nil {
		t.s.BeforeDecrement(productID)
	}
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	if err := t.fail("IncrementStock"); err != nil {
		return err
	}
	if p, ok := t.s.products[productID]; ok {
		p.Stock += qty
	}
	return nil
}

func (t *memTx) ProductStock(ctx context.Context, productID string) (int, error) {
	if err := t.fail("ProductStock"); err != nil {
		return 0, err
	}
	if p, ok := t.s.products[productID]; ok {
		return p.Stock, nil
	}
	return 0, nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := t.fail("CreateOrder"); err != nil {
		return err
	}
	cp := copyOrder(o)
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, orderID string) (*order.Order, error) {
	if err := t.fail("LockOrder"); err != nil {
		return nil, err
	}
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (t *memTx) SetStatusIf(ctx context.Context, orderID string, from, to order.Status) (bool, error) {
	if err := t.fail("SetStatusIf"); err != nil {
		return false, err
	}
	o, ok := t.s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (t *memTx) AppendEvent(ctx context.Context, ev events.Event) error {
	if err := t.fail("AppendEvent"); err != nil {
		return err
	}
	t.s.events = append(t.s.events, ev)
	return nil
}
