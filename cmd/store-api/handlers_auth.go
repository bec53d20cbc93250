package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/store-api/internal/httpx"
	"github.com/MikeMC777/store-api/internal/user"
)

// registerHandler godoc
// @Summary  Register
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body  body  user.RegisterRequest  true  "account"
// @Success  201  {object}  user.User
// @Failure  400  {object}  httpx.HTTPError
// @Failure  409  {object}  httpx.HTTPError
// @Router   /auth/register [post]
func registerHandler(svc userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		u, err := svc.Register(c.Request.Context(), req)
		switch {
		case errors.Is(err, user.ErrInvalidUsername), errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrWeakPassword):
			httpx.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrAlreadyExist):
			httpx.Error(c, http.StatusConflict, err.Error())
		case err != nil:
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
		default:
			c.JSON(http.StatusCreated, u)
		}
	}
}

// meHandler godoc
// @Summary   Current user
// @Tags      auth
// @Produce   json
// @Security  BasicAuth
// @Success   200  {object}  user.User
// @Failure   401  {object}  httpx.HTTPError
// @Router    /auth/me [get]
func meHandler(svc userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.Get(c.Request.Context(), httpx.UserID(c))
		if errors.Is(err, user.ErrNotFound) {
			httpx.Error(c, http.StatusUnauthorized, "account no longer exists")
			return
		}
		if err != nil {
			_ = c.Error(err)
			httpx.Error(c, http.StatusInternalServerError, "db error")
			return
		}
		c.JSON(http.StatusOK, u)
	}
}
