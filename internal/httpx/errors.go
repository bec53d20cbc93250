package httpx

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPError represents a standard error in JSON.
// swagger:model
type HTTPError struct {
	// Error message
	// example: not found
	Error string `json:"error"`
}

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, HTTPError{Error: msg})
}

// ErrorWith adds detail fields next to "error".
func ErrorWith(c *gin.Context, status int, msg string, details gin.H) {
	body := gin.H{"error": msg}
	for k, v := range details {
		body[k] = v
	}
	c.JSON(status, body)
}

func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, HTTPError{Error: msg})
}

// Paging reads limit and offset query parameters; bad values fall back to def and 0.
func Paging(c *gin.Context, def int) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil {
		limit = def
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
