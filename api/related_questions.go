package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type relatedBody struct {
	Content string `json:"content"`
}

func (a *API) RelatedQuestions(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data relatedBody
	if err := c.ShouldBindJSON(&data); err != nil || strings.TrimSpace(data.Content) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Content is required",
			"requestID": requestID,
		})
		return
	}

	items, err := a.Related.Generate(c.Request.Context(), data.Content)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to generate related questions: " + err.Error(),
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate related questions", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	questions := make([]string, len(items))
	for i, it := range items {
		questions[i] = it.Query
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
