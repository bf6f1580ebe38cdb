package api

import (
	"context"
	"net/http"
	"time"

	"bitwise74/labyrinth-api/chat"
	"bitwise74/labyrinth-api/middleware"
	"bitwise74/labyrinth-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const chatTimeout = 5 * time.Minute

// sseEmitter writes chat events as server sent events
type sseEmitter struct {
	c *gin.Context
}

func (e *sseEmitter) send(event string, data any) error {
	if err := e.c.Request.Context().Err(); err != nil {
		return err
	}

	e.c.SSEvent(event, data)
	e.c.Writer.Flush()

	return nil
}

func (e *sseEmitter) Text(delta string) error {
	return e.send("text", gin.H{"delta": delta})
}

func (e *sseEmitter) Annotation(a model.Annotation) error {
	return e.send("annotation", a)
}

func (a *API) ChatStream(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := chat.Validate(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	req.StockMode = middleware.StockModeEnabled(c)
	req.UserID = c.GetString("userID")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	em := &sseEmitter{c: c}

	if err := a.Chat.Run(ctx, req, em); err != nil {
		zap.L().Error("Chat turn failed", zap.Error(err), zap.String("chatID", req.ID), zap.String("requestID", requestID))

		_ = em.send("error", gin.H{
			"error":     "Failed to generate a response",
			"requestID": requestID,
		})
		return
	}

	_ = em.send("done", gin.H{"id": req.ID})
}
