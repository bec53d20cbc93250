package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateProductRequest payload of creation.
// swagger:model CreateProductRequest
type CreateProductRequest struct {
	Name        string `json:"name"        example:"Mechanical Keyboard"`
	Description string `json:"description" example:"RGB 60%"`
	Price       string `json:"price"       example:"199.90"`
	Stock       int    `json:"stock"       example:"10"`
}

// UpdateProductRequest payload of partial update. Omitted fields keep their value.
// swagger:model UpdateProductRequest
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Stock       *int    `json:"stock"`
}

// ParsePrice accepts a non-negative decimal with at most two fraction digits.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() || !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// Build validates a creation request into a Product without an id.
func (r CreateProductRequest) Build() (*Product, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	price, err := ParsePrice(r.Price)
	if err != nil {
		return nil, err
	}
	if r.Stock < 0 {
		return nil, ErrInvalidStock
	}
	return &Product{
		Name:        name,
		Description: strings.TrimSpace(r.Description),
		Price:       price,
		Stock:       r.Stock,
	}, nil
}

// Apply validates the request and copies the provided fields onto p.
func (r UpdateProductRequest) Apply(p *Product) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return ErrInvalidName
		}
		p.Name = name
	}
	if r.Description != nil {
		p.Description = strings.TrimSpace(*r.Description)
	}
	if r.Price != nil {
		price, err := ParsePrice(*r.Price)
		if err != nil {
			return err
		}
		p.Price = price
	}
	if r.Stock != nil {
		if *r.Stock < 0 {
			return ErrInvalidStock
		}
		p.Stock = *r.Stock
	}
	return nil
}
