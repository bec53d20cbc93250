package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/store-api/internal/admin"
	"github.com/MikeMC777/store-api/internal/httpx"
)

// statsHandler godoc
// @Summary      Dashboard statistics
// @Description  Order counts per status, revenue of non-cancelled orders, catalog and user counts.
// @Tags         admin
// @Produce      json
// @Security     BasicAuth
// @Success      200  {object}  statsResponse
// @Failure      403  {object}  httpx.HTTPError
// @Router       /admin/stats [get]
func statsHandler(repo admin.Repository, lowStockThreshold int) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := repo.Stats(c.Request.Context(), lowStockThreshold)
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, toStatsResponse(st))
	}
}
