package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/security"
	"bitwise74/labyrinth-api/service"
	"bitwise74/labyrinth-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

type forgotPasswordBody struct {
	Email string `json:"email"`
}

// AuthForgotPassword answers the same way whether or not the account
// exists. Mail delivery problems are only logged for that reason.
func (a *API) AuthForgotPassword(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data forgotPasswordBody
	if err := c.ShouldBindJSON(&data); err != nil || strings.TrimSpace(data.Email) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Email is required",
			"requestID": requestID,
		})
		return
	}

	var user model.User
	err := a.DB.Where("email = ?", validators.NormalizeEmail(data.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
		return
	}
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to look up user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	tok, err := security.MakeResetToken(time.Now())
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to generate reset token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = a.DB.Model(&user).Updates(map[string]any{
		"reset_token_hash":   tok.Hash,
		"reset_token_expiry": tok.ExpiresAt,
	}).Error
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to store reset token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := a.Mailer.SendResetMail(c.Request.Context(), user.Email, tok.Plain); err != nil {
		if errors.Is(err, service.ErrMailDisabled) {
			zap.L().Warn("Reset mail not sent, mail is not configured", zap.String("requestID", requestID))
		} else {
			zap.L().Error("Failed to send reset mail", zap.Error(err), zap.String("requestID", requestID))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
}

type resetPasswordBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) AuthResetPassword(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data resetPasswordBody
	if err := c.ShouldBindJSON(&data); err != nil || data.Token == "" || data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Missing required fields",
			"requestID": requestID,
		})
		return
	}

	invalid := func() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid or expired reset token",
			"requestID": requestID,
		})
	}

	hash := security.HashResetToken(data.Token)

	var user model.User
	err := a.DB.Where("reset_token_hash = ?", hash).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invalid()
		return
	}
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to look up reset token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := security.CheckResetExpiry(user.ResetTokenExpiry, time.Now()); err != nil {
		invalid()
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	newHash, err := a.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// Matching on the token hash again makes a concurrent second redeem a no-op
	res := a.DB.Model(&model.User{}).
		Where("id = ? AND reset_token_hash = ?", user.ID, hash).
		Updates(map[string]any{
			"password_hash":      newHash,
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		})
	if res.Error != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to update password", zap.Error(res.Error), zap.String("requestID", requestID))
		return
	}

	if res.RowsAffected == 0 {
		invalid()
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}
