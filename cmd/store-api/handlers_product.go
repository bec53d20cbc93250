package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/store-api/internal/httpx"
	prod "github.com/MikeMC777/store-api/internal/product"
)

// listOnlyHandler godoc
// @Summary      List products
// @Description  Pagination only, newest first. Use /products/search to filter.
// @Tags         products
// @Produce      json
// @Param        limit   query  int  false  "max items (1-100)"  default(20)
// @Param        offset  query  int  false  "items to skip"      default(0)
// @Success      200  {object}  productListResponse
// @Failure      500  {object}  httpx.HTTPError
// @Router       /products [get]
func listOnlyHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Paging(c, 20)
		q := prod.Query{Limit: limit, Offset: offset}.Normalize()
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toListResponse(q, items))
	}
}

// searchHandler godoc
// @Summary      Search products
// @Description  Case-insensitive match on name or description.
// @Tags         products
// @Produce      json
// @Param        q       query  string  true   "search term, at least 2 characters"
// @Param        limit   query  int     false  "max items (1-100)"  default(20)
// @Param        offset  query  int     false  "items to skip"      default(0)
// @Success      200  {object}  productListResponse
// @Failure      400  {object}  httpx.HTTPError
// @Router       /products/search [get]
func searchHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("q"))
		if len([]rune(term)) < prod.MinSearchLen {
			httpx.Error(c, http.StatusBadRequest, prod.ErrShortQuery.Error())
			return
		}
		limit, offset := httpx.Paging(c, 20)
		q := prod.Query{Q: term, Limit: limit, Offset: offset}.Normalize()
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toListResponse(q, items))
	}
}

// getProductHandler godoc
// @Summary  Get product
// @Tags     products
// @Produce  json
// @Param    id   path  string  true  "product id"
// @Success  200  {object}  productDTO
// @Failure  404  {object}  httpx.HTTPError
// @Router   /products/{id} [get]
func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadProduct(c, repo)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, toProductDTO(*p))
	}
}

// createProductHandler godoc
// @Summary   Create product
// @Tags      products
// @Accept    json
// @Produce   json
// @Security  BasicAuth
// @Param     body  body  prod.CreateProductRequest  true  "product"
// @Success   201  {object}  productDTO
// @Failure   400  {object}  httpx.HTTPError
// @Failure   403  {object}  httpx.HTTPError
// @Router    /products [post]
func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		p, err := req.Build()
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		p.ID = uuid.NewString()
		if err := repo.Create(c.Request.Context(), p); err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusCreated, toProductDTO(*p))
	}
}

// updateProductHandler godoc
// @Summary      Update product
// @Description  Partial update; omitted fields keep their value.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        id    path  string                     true  "product id"
// @Param        body  body  prod.UpdateProductRequest  true  "fields to change"
// @Success      200  {object}  productDTO
// @Failure      400  {object}  httpx.HTTPError
// @Failure      404  {object}  httpx.HTTPError
// @Router       /products/{id} [put]
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		p, ok := loadProduct(c, repo)
		if !ok {
			return
		}
		if err := req.Apply(p); err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := repo.Update(c.Request.Context(), p); err != nil {
			if errors.Is(err, prod.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "not found")
				return
			}
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toProductDTO(*p))
	}
}

// deleteProductHandler godoc
// @Summary   Delete product
// @Tags      products
// @Security  BasicAuth
// @Param     id  path  string  true  "product id"
// @Success   204
// @Failure   404  {object}  httpx.HTTPError
// @Failure   409  {object}  httpx.HTTPError
// @Router    /products/{id} [delete]
func deleteProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			httpx.Error(c, http.StatusNotFound, "not found")
			return
		}
		ok, err := repo.Delete(c.Request.Context(), id)
		switch {
		case errors.Is(err, prod.ErrInUse):
			httpx.Error(c, http.StatusConflict, err.Error())
		case err != nil:
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
		case !ok:
			httpx.Error(c, http.StatusNotFound, "not found")
		default:
			c.Status(http.StatusNoContent)
		}
	}
}

func loadProduct(c *gin.Context, repo prod.Repository) (*prod.Product, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.Error(c, http.StatusNotFound, "not found")
		return nil, false
	}
	p, err := repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, prod.ErrNotFound) {
		httpx.Error(c, http.StatusNotFound, "not found")
		return nil, false
	}
	if err != nil {
		_ = c.Error(err)
		httpx.Error(c, http.StatusInternalServerError, "db error")
		return nil, false
	}
	return p, true
}

func toListResponse(q prod.Query, items []prod.Product) productListResponse {
	out := productListResponse{Q: q.Q, Limit: q.Limit, Offset: q.Offset, Items: make([]productDTO, 0, len(items))}
	for _, p := range items {
		out.Items = append(out.Items, toProductDTO(p))
	}
	return out
}
