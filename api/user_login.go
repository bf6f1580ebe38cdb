package api

import (
	"errors"
	"net/http"

	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) UserLogin(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Email field can't be empty",
			"requestID": requestID,
		})
		return
	}

	if data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Password field can't be empty",
			"requestID": requestID,
		})
		return
	}

	invalid := func() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
	}

	var user model.User
	err := a.DB.Where("email = ?", validators.NormalizeEmail(data.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invalid()
		return
	}
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to look up user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// OAuth only accounts have no password to log in with
	if user.PasswordHash == nil {
		invalid()
		return
	}

	ok, err := a.Argon.VerifyPasswd(data.Password, *user.PasswordHash)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		invalid()
		return
	}

	if err := a.setSession(c, user.ID); err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userID": user.ID,
	})
}

func (a *API) UserLogout(c *gin.Context) {
	a.clearSession(c)
	c.Status(http.StatusNoContent)
}

// UserFetch returns the signed in user
func (a *API) UserFetch(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet("user").(*model.User))
}
