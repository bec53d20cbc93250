// Package wishlist keeps products a user wants to buy later.
package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrUnknownProduct = errors.New("product not found")

type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	InStock     bool            `json:"in_stock"`
	AddedAt     time.Time       `json:"added_at"`
}

// AddRequest payload of add to wishlist.
// swagger:model WishlistAddRequest
type AddRequest struct {
	ProductID string `json:"product_id" example:"6f1c2d7e-4b1a-4f7c-9a3e-2f5d8c9b0a11"`
}

type Repository interface {
	List(ctx context.Context, userID string) ([]Item, error)
	// Add is idempotent and reports whether a new row was created.
	Add(ctx context.Context, userID, productID string) (bool, error)
	Remove(ctx context.Context, userID, productID string) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) List(ctx context.Context, userID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT w.product_id, p.name, p.price::text, p.stock > 0, w.created_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.ProductName, &price, &it.InStock, &it.AddedAt); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) Add(ctx context.Context, userID, productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id, created_at)
		VALUES ($1,$2,NOW())
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return false, ErrUnknownProduct
	}
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRepo) Remove(ctx context.Context, userID, productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
