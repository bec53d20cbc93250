package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/MikeMC777/store-api/internal/admin"
	"github.com/MikeMC777/store-api/internal/cart"
	"github.com/MikeMC777/store-api/internal/httpx"
	"github.com/MikeMC777/store-api/internal/metrics"
	ord "github.com/MikeMC777/store-api/internal/order"
	prod "github.com/MikeMC777/store-api/internal/product"
	"github.com/MikeMC777/store-api/internal/user"
	"github.com/MikeMC777/store-api/internal/wishlist"

	_ "github.com/MikeMC777/store-api/docs"
)

// orderService is satisfied by *order.Manager.
type orderService interface {
	PlaceOrder(ctx context.Context, userID string) (*ord.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*ord.Confirmation, error)
	GetOrder(ctx context.Context, userID, orderID string) (*ord.Order, error)
	ListOrders(ctx context.Context, userID string, limit, offset int) ([]ord.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*ord.Order, error)
}

// userService is satisfied by *user.Service.
type userService interface {
	httpx.Authenticator
	Register(ctx context.Context, in user.RegisterRequest) (*user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
}

type deps struct {
	log               *zap.Logger
	metrics           *metrics.Metrics
	gatherer          http.Handler
	users             userService
	products          prod.Repository
	carts             cart.Repository
	wishlist          wishlist.Repository
	orders            orderService
	stats             admin.Repository
	lowStockThreshold int
}

func newRouter(d deps) *gin.Engine {
	if d.log == nil {
		d.log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(d.log), httpx.Metrics(d.metrics))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if d.gatherer != nil {
		r.GET("/metrics", gin.WrapH(d.gatherer))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/register", registerHandler(d.users))

	r.GET("/products", listOnlyHandler(d.products))
	r.GET("/products/search", searchHandler(d.products))
	r.GET("/products/:id", getProductHandler(d.products))

	authed := r.Group("/", httpx.Auth(d.users))
	authed.GET("/auth/me", meHandler(d.users))

	authed.GET("/cart", getCartHandler(d.carts))
	authed.POST("/cart", addToCartHandler(d.carts))
	authed.DELETE("/cart", clearCartHandler(d.carts))
	authed.PUT("/cart/:product_id", setCartQuantityHandler(d.carts))
	authed.DELETE("/cart/:product_id", removeFromCartHandler(d.carts))

	authed.POST("/orders", createOrderHandler(d.orders, d.log))
	authed.GET("/orders", listOrdersHandler(d.orders, d.log))
	authed.GET("/orders/:id", getOrderHandler(d.orders, d.log))
	authed.POST("/orders/:id/cancel", cancelOrderHandler(d.orders, d.log))

	authed.GET("/wishlist", listWishlistHandler(d.wishlist))
	authed.POST("/wishlist", addToWishlistHandler(d.wishlist))
	authed.DELETE("/wishlist/:product_id", removeFromWishlistHandler(d.wishlist))

	adm := authed.Group("/", httpx.RequireAdmin())
	adm.POST("/products", createProductHandler(d.products))
	adm.PUT("/products/:id", updateProductHandler(d.products))
	adm.DELETE("/products/:id", deleteProductHandler(d.products))
	adm.GET("/admin/stats", statsHandler(d.stats, d.lowStockThreshold))
	adm.PUT("/admin/orders/:id/status", updateOrderStatusHandler(d.orders, d.log))

	return r
}
