package api

import (
	"net/http"
	"strings"

	"bitwise74/labyrinth-api/validators"

	"github.com/gin-gonic/gin"
)

// SearchQuery never fails because of a provider, those errors come back as
// a result set titled "Search Error"
func (a *API) SearchQuery(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data validators.SearchRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.SearchValidator(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, a.Search.Search(c.Request.Context(), data))
}

type retrieveBody struct {
	URL string `json:"url"`
}

func (a *API) SearchRetrieve(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data retrieveBody
	if err := c.ShouldBindJSON(&data); err != nil || strings.TrimSpace(data.URL) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "URL is required",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, a.Search.Retrieve(c.Request.Context(), strings.TrimSpace(data.URL)))
}
