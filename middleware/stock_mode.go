package middleware

import (
	"net/http"

	"bitwise74/labyrinth-api/stock"

	"github.com/gin-gonic/gin"
)

const StockModeCookie = "stock-mode"

// StockModeEnabled reports whether the client turned stock mode on. Only
// the literal value "true" counts.
func StockModeEnabled(c *gin.Context) bool {
	v, err := c.Cookie(StockModeCookie)
	return err == nil && v == "true"
}

// RequireStockMode answers 400 with the disabled message when stock mode
// is off
func RequireStockMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !StockModeEnabled(c) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     stock.DisabledMessage,
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
