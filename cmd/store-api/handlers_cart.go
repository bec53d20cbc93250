package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/store-api/internal/cart"
	"github.com/MikeMC777/store-api/internal/httpx"
)

// getCartHandler godoc
// @Summary   Show cart
// @Tags      cart
// @Produce   json
// @Security  BasicAuth
// @Success   200  {object}  cartResponse
// @Router    /cart [get]
func getCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.List(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toCartResponse(items))
	}
}

// addToCartHandler godoc
// @Summary      Add to cart
// @Description  Adding a product already in the cart increases its quantity.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        body  body  cart.AddItemRequest  true  "line"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  httpx.HTTPError
// @Failure      404  {object}  httpx.HTTPError
// @Router       /cart [post]
func addToCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if req.Quantity < 1 {
			httpx.Error(c, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
			return
		}
		if _, err := uuid.Parse(req.ProductID); err != nil {
			httpx.Error(c, http.StatusNotFound, cart.ErrUnknownProduct.Error())
			return
		}
		qty, err := repo.Add(c.Request.Context(), httpx.UserID(c), req.ProductID, req.Quantity)
		if !writeCartError(c, err) {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"product_id": req.ProductID, "quantity": qty})
	}
}

// setCartQuantityHandler godoc
// @Summary   Change quantity
// @Tags      cart
// @Accept    json
// @Security  BasicAuth
// @Param     product_id  path  string                   true  "product id"
// @Param     body        body  cart.SetQuantityRequest  true  "new quantity"
// @Success   204
// @Failure   400  {object}  httpx.HTTPError
// @Failure   404  {object}  httpx.HTTPError
// @Router    /cart/{product_id} [put]
func setCartQuantityHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := cartProductID(c)
		if !ok {
			return
		}
		var req cart.SetQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		err := repo.SetQuantity(c.Request.Context(), httpx.UserID(c), productID, req.Quantity)
		if !writeCartError(c, err) {
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// removeFromCartHandler godoc
// @Summary   Remove line
// @Tags      cart
// @Security  BasicAuth
// @Param     product_id  path  string  true  "product id"
// @Success   204
// @Failure   404  {object}  httpx.HTTPError
// @Router    /cart/{product_id} [delete]
func removeFromCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := cartProductID(c)
		if !ok {
			return
		}
		removed, err := repo.Remove(c.Request.Context(), httpx.UserID(c), productID)
		if !writeCartError(c, err) {
			return
		}
		if !removed {
			httpx.Error(c, http.StatusNotFound, cart.ErrNotFound.Error())
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// clearCartHandler godoc
// @Summary   Empty cart
// @Tags      cart
// @Security  BasicAuth
// @Success   204
// @Router    /cart [delete]
func clearCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !writeCartError(c, repo.Clear(c.Request.Context(), httpx.UserID(c))) {
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// cartProductID rejects a malformed :product_id as a missing cart line.
func cartProductID(c *gin.Context) (string, bool) {
	id := c.Param("product_id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.Error(c, http.StatusNotFound, cart.ErrNotFound.Error())
		return "", false
	}
	return id, true
}

// writeCartError reports whether err was nil; otherwise it writes the response.
func writeCartError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, cart.ErrInvalidQuantity):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrNotFound), errors.Is(err, cart.ErrUnknownProduct):
		httpx.Error(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		httpx.Error(c, http.StatusInternalServerError, "db error")
	}
	return false
}
