package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/store-api/internal/httpx"
	"github.com/MikeMC777/store-api/internal/wishlist"
)

// listWishlistHandler godoc
// @Summary   Show wishlist
// @Tags      wishlist
// @Produce   json
// @Security  BasicAuth
// @Success   200  {array}  wishlistItemDTO
// @Router    /wishlist [get]
func listWishlistHandler(repo wishlist.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.List(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toWishlistDTO(items))
	}
}

// addToWishlistHandler godoc
// @Summary      Add to wishlist
// @Description  Idempotent: 201 when added, 200 when it was already there.
// @Tags         wishlist
// @Accept       json
// @Security     BasicAuth
// @Param        body  body  wishlist.AddRequest  true  "product"
// @Success      201
// @Success      200
// @Failure      404  {object}  httpx.HTTPError
// @Router       /wishlist [post]
func addToWishlistHandler(repo wishlist.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req wishlist.AddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		if _, err := uuid.Parse(req.ProductID); err != nil {
			httpx.Error(c, http.StatusNotFound, wishlist.ErrUnknownProduct.Error())
			return
		}
		created, err := repo.Add(c.Request.Context(), httpx.UserID(c), req.ProductID)
		if errors.Is(err, wishlist.ErrUnknownProduct) {
			httpx.Error(c, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		if created {
			c.JSON(http.StatusCreated, gin.H{"product_id": req.ProductID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_id": req.ProductID})
	}
}

// removeFromWishlistHandler godoc
// @Summary   Remove from wishlist
// @Tags      wishlist
// @Security  BasicAuth
// @Param     product_id  path  string  true  "product id"
// @Success   204
// @Failure   404  {object}  httpx.HTTPError
// @Router    /wishlist/{product_id} [delete]
func removeFromWishlistHandler(repo wishlist.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")
		if _, err := uuid.Parse(productID); err != nil {
			httpx.Error(c, http.StatusNotFound, "not in wishlist")
			return
		}
		ok, err := repo.Remove(c.Request.Context(), httpx.UserID(c), productID)
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		if !ok {
			httpx.Error(c, http.StatusNotFound, "not in wishlist")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
