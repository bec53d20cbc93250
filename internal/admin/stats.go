// Package admin answers the dashboard queries.
package admin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type LowStockProduct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

type Stats struct {
	OrdersByStatus map[string]int    `json:"orders_by_status"`
	TotalOrders    int               `json:"total_orders"`
	Revenue        decimal.Decimal   `json:"revenue"`
	Products       int               `json:"products"`
	LowStock       []LowStockProduct `json:"low_stock"`
	Users          int               `json:"users"`
}

type Repository interface {
	Stats(ctx context.Context, lowStockThreshold int) (*Stats, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// Stats reads every figure from one snapshot so the numbers agree with each other.
func (r *PGRepo) Stats(ctx context.Context, lowStockThreshold int) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st := &Stats{OrdersByStatus: map[string]int{}, LowStock: []LowStockProduct{}}

	rows, err := tx.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.OrdersByStatus[status] = n
		st.TotalOrders += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var revenue string
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::text FROM orders WHERE status <> 'CANCELLED'
	`).Scan(&revenue); err != nil {
		return nil, err
	}
	if st.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&st.Products); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&st.Users); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `
		SELECT id, name, stock FROM products WHERE stock <= $1 ORDER BY stock, name LIMIT 50
	`, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock); err != nil {
			return nil, err
		}
		st.LowStock = append(st.LowStock, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return st, tx.Commit(ctx)
}
