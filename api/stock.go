package api

import (
	"context"
	"net/http"
	"time"

	"bitwise74/labyrinth-api/stock"
	"bitwise74/labyrinth-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const stockTimeout = 30 * time.Second

// stockQuery reads the shared symbol and interval parameters. It writes the
// error response itself and returns ok=false when they are unusable.
func stockQuery(c *gin.Context, requestID string) (symbols []string, interval string, ok bool) {
	if c.Query("symbol") == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Symbol is required",
			"requestID": requestID,
		})
		return nil, "", false
	}

	interval = c.DefaultQuery("interval", stock.DefaultInterval)
	if !stock.ValidInterval(interval) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid interval",
			"requestID": requestID,
		})
		return nil, "", false
	}

	symbols, err := validators.SymbolsValidator(c.Query("symbol"), c.Query("compare_symbols"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return nil, "", false
	}

	return symbols, interval, true
}

func (a *API) StockData(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	symbols, interval, ok := stockQuery(c, requestID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), stockTimeout)
	defer cancel()

	series, err := a.Stock.Series(ctx, symbols[0], interval)
	if err != nil {
		if stock.IsNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "No data found for symbol " + symbols[0],
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to fetch stock data: " + err.Error(),
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch stock data", zap.String("symbol", symbols[0]), zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, series)
}

func (a *API) StockChart(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	symbols, interval, ok := stockQuery(c, requestID)
	if !ok {
		return
	}

	if a.Config.Stock.PolygonKey == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to get stock data: " + stock.ErrNoAPIKey.Error(),
			"requestID": requestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), stockTimeout)
	defer cancel()

	res := a.Stock.Chart(ctx, symbols, interval)
	if res.UI == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     res.Content,
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, res)
}
