package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/store-api/internal/events"
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGStore struct {
	db         *pgxpool.Pool
	eventTopic string
	txTimeout  time.Duration
}

func NewPGStore(db *pgxpool.Pool, eventTopic string) *PGStore {
	if eventTopic == "" {
		eventTopic = events.DefaultTopic
	}
	return &PGStore{db: db, eventTopic: eventTopic, txTimeout: 10 * time.Second}
}

// WithTimeout bounds each unit of work; zero keeps the default.
func (s *PGStore) WithTimeout(d time.Duration) *PGStore {
	if d > 0 {
		s.txTimeout = d
	}
	return s
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx, topic: s.eventTopic}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return loadOrder(ctx, s.db, orderID, false)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, status, total::text, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx    pgx.Tx
	topic string
}

// CartLines locks the user's cart rows until the unit of work ends. A concurrent
// placement for the same user waits here and then finds the rows gone.
func (t *pgTx) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT ci.product_id, p.name, p.price::text, p.stock, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.product_id
		FOR UPDATE OF ci
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var (
			ln    CartLine
			price string
		)
		if err := rows.Scan(&ln.ProductID, &ln.ProductName, &price, &ln.Stock, &ln.Quantity); err != nil {
			return nil, err
		}
		if ln.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func (t *pgTx) DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1
	`, productID, qty)
	return err
}

func (t *pgTx) ProductStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return stock, err
}

func (t *pgTx) CreateOrder(ctx context.Context, o *Order) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
	`, o.ID, o.UserID, string(o.Status), o.Total.StringFixed(2), o.CreatedAt); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, it.ID, o.ID, it.ProductID, it.Quantity, it.Price.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, orderID string) (*Order, error) {
	return loadOrder(ctx, t.tx, orderID, true)
}

func (t *pgTx) SetStatusIf(ctx context.Context, orderID string, from, to Status) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, orderID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) AppendEvent(ctx context.Context, ev events.Event) error {
	return events.Insert(ctx, t.tx, t.topic, ev)
}

func loadOrder(ctx context.Context, q querier, orderID string, forUpdate bool) (*Order, error) {
	sql := `
		SELECT id, user_id, status, total::text, created_at, updated_at
		FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price::text
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
		total  string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.Total = d
	return &o, nil
}
