package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/store-api/internal/admin"
	"github.com/MikeMC777/store-api/internal/cart"
	ord "github.com/MikeMC777/store-api/internal/order"
	prod "github.com/MikeMC777/store-api/internal/product"
	"github.com/MikeMC777/store-api/internal/wishlist"
)

// Money leaves the API as fixed two-decimal strings.

type productDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price" example:"199.90"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductDTO(p prod.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// productListResponse represents the paginated response of products.
type productListResponse struct {
	Q      string       `json:"q,omitempty"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	Items  []productDTO `json:"items"`
}

type orderItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type orderDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Status    string         `json:"status"`
	Total     string         `json:"total"`
	Items     []orderItemDTO `json:"items,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toOrderDTO(o *ord.Order) orderDTO {
	out := orderDTO{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			Subtotal:    it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2),
		})
	}
	return out
}

type updateStatusRequest struct {
	Status string `json:"status" example:"SHIPPED"`
}

type cartItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

type cartResponse struct {
	Items    []cartItemDTO `json:"items"`
	Subtotal string        `json:"subtotal"`
}

func toCartResponse(items []cart.Item) cartResponse {
	out := cartResponse{Items: make([]cartItemDTO, 0, len(items)), Subtotal: cart.Subtotal(items).StringFixed(2)}
	for _, it := range items {
		out.Items = append(out.Items, cartItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.StringFixed(2),
			Quantity:    it.Quantity,
		})
	}
	return out
}

type wishlistItemDTO struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       string    `json:"price"`
	InStock     bool      `json:"in_stock"`
	AddedAt     time.Time `json:"added_at"`
}

func toWishlistDTO(items []wishlist.Item) []wishlistItemDTO {
	out := make([]wishlistItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, wishlistItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.StringFixed(2),
			InStock:     it.InStock,
			AddedAt:     it.AddedAt,
		})
	}
	return out
}

type statsResponse struct {
	OrdersByStatus map[string]int          `json:"orders_by_status"`
	TotalOrders    int                     `json:"total_orders"`
	Revenue        string                  `json:"revenue"`
	Products       int                     `json:"products"`
	LowStock       []admin.LowStockProduct `json:"low_stock"`
	Users          int                     `json:"users"`
}

func toStatsResponse(s *admin.Stats) statsResponse {
	return statsResponse{
		OrdersByStatus: s.OrdersByStatus,
		TotalOrders:    s.TotalOrders,
		Revenue:        s.Revenue.StringFixed(2),
		Products:       s.Products,
		LowStock:       s.LowStock,
		Users:          s.Users,
	}
}
