// Package middleware contains any custom middleware used in the app
package middleware

import (
	"bitwise74/labyrinth-api/util"

	"github.com/gin-gonic/gin"
)

// NewRequestIDMiddleware generates a request ID for each incoming request,
// stores it as requestID and echoes it in the X-Request-ID header
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := util.RandStr(10)

		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
