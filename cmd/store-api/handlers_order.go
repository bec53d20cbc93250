package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MikeMC777/store-api/internal/httpx"
	ord "github.com/MikeMC777/store-api/internal/order"
)

// createOrderHandler godoc
// @Summary      Place order
// @Description  Turns the caller's cart into a PENDING order, takes the stock and empties the cart.
// @Tags         orders
// @Produce      json
// @Security     BasicAuth
// @Success      201  {object}  orderDTO
// @Failure      400  {object}  httpx.HTTPError  "empty cart or insufficient stock (with lines)"
// @Failure      401  {object}  httpx.HTTPError
// @Failure      500  {object}  httpx.HTTPError
// @Router       /orders [post]
func createOrderHandler(svc orderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.PlaceOrder(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			writeOrderError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, toOrderDTO(o))
	}
}

// cancelOrderHandler godoc
// @Summary      Cancel order
// @Description  Only PENDING orders can be cancelled; their stock is restored.
// @Tags         orders
// @Produce      json
// @Security     BasicAuth
// @Param        id   path  string  true  "order id"
// @Success      200  {object}  ord.Confirmation
// @Failure      400  {object}  httpx.HTTPError  "order not PENDING (with status)"
// @Failure      404  {object}  httpx.HTTPError
// @Router       /orders/{id}/cancel [post]
func cancelOrderHandler(svc orderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := svc.CancelOrder(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeOrderError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, conf)
	}
}

// getOrderHandler godoc
// @Summary   Get order
// @Tags      orders
// @Produce   json
// @Security  BasicAuth
// @Param     id   path  string  true  "order id"
// @Success   200  {object}  orderDTO
// @Failure   404  {object}  httpx.HTTPError
// @Router    /orders/{id} [get]
func getOrderHandler(svc orderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.GetOrder(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeOrderError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, toOrderDTO(o))
	}
}

// listOrdersHandler godoc
// @Summary   List my orders
// @Tags      orders
// @Produce   json
// @Security  BasicAuth
// @Param     limit   query  int  false  "max items (1-100)"  default(20)
// @Param     offset  query  int  false  "items to skip"      default(0)
// @Success   200  {array}  orderDTO
// @Router    /orders [get]
func listOrdersHandler(svc orderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Paging(c, 20)
		list, err := svc.ListOrders(c.Request.Context(), httpx.UserID(c), limit, offset)
		if err != nil {
			writeOrderError(c, log, err)
			return
		}
		out := make([]orderDTO, 0, len(list))
		for i := range list {
			out = append(out, toOrderDTO(&list[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// updateOrderStatusHandler godoc
// @Summary      Advance order status
// @Description  Admin only. Forward along PENDING, PROCESSING, SHIPPED, DELIVERED.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        id    path  string               true  "order id"
// @Param        body  body  updateStatusRequest  true  "target status"
// @Success      200  {object}  orderDTO
// @Failure      400  {object}  httpx.HTTPError
// @Failure      404  {object}  httpx.HTTPError
// @Router       /admin/orders/{id}/status [put]
func updateOrderStatusHandler(svc orderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			httpx.Error(c, http.StatusBadRequest, "status is required")
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeOrderError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, toOrderDTO(o))
	}
}

// writeOrderError maps the order error taxonomy to HTTP.
func writeOrderError(c *gin.Context, log *zap.Logger, err error) {
	var (
		stock *ord.InsufficientStockError
		state *ord.InvalidStateError
	)
	switch {
	case errors.Is(err, ord.ErrEmptyCart), errors.Is(err, ord.ErrInvalidStatus):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &stock):
		httpx.ErrorWith(c, http.StatusBadRequest, "insufficient stock", gin.H{"lines": stock.Lines})
	case errors.As(err, &state):
		httpx.ErrorWith(c, http.StatusBadRequest, err.Error(), gin.H{"status": state.Status})
	case errors.Is(err, ord.ErrNotFound):
		httpx.Error(c, http.StatusNotFound, err.Error())
	default:
		log.Error("order request failed", zap.String("rid", httpx.RID(c)), zap.Error(err))
		httpx.Error(c, http.StatusInternalServerError, "internal error")
	}
}
