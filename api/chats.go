package api

import (
	"errors"
	"net/http"

	"bitwise74/labyrinth-api/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatsList returns the chat history of the signed in user, newest first
func (a *API) ChatsList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	chats, err := a.Chats.GetChats(c.Request.Context(), userID)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to fetch chats", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (a *API) ChatsFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	chat, err := a.Chats.GetChat(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to fetch chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if chat == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Chat not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, chat)
}

func (a *API) ChatsClear(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	err := a.Chats.ClearChats(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNoChats) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "No chats to clear",
			"requestID": requestID,
		})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to clear chat history",
			"requestID": requestID,
		})

		zap.L().Error("Failed to clear chat history", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}

func (a *API) ChatsShare(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	chat, err := a.Chats.ShareChat(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to share chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if chat == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Chat not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sharePath": chat.SharePath})
}

// ShareFetch serves published chats to anyone
func (a *API) ShareFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	chat, err := a.Chats.GetSharedChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to fetch shared chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if chat == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Chat not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, chat)
}
