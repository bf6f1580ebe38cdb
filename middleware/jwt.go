package middleware

import (
	"errors"
	"net/http"
	"strings"

	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const AuthCookie = "auth_token"

// tokenFromRequest reads the session token from the auth cookie, falling
// back to a bearer Authorization header
func tokenFromRequest(c *gin.Context) string {
	if tok, err := c.Cookie(AuthCookie); err == nil && tok != "" {
		return tok
	}

	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	return ""
}

// authenticate resolves the user behind the request. A nil user with a nil
// error means the request carries no usable session.
func authenticate(c *gin.Context, d *gorm.DB, secret string) (*model.User, error) {
	tok := tokenFromRequest(c)
	if tok == "" {
		return nil, nil
	}

	userID, err := security.ParseSessionToken(secret, tok)
	if err != nil {
		return nil, nil
	}

	var user model.User
	err = d.WithContext(c.Request.Context()).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// NewJWTMiddleware only lets requests with a valid session through and
// sets userID and user on the context
func NewJWTMiddleware(d *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		user, err := authenticate(c, d, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to check if user exists", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// NewOptionalJWTMiddleware sets userID when a valid session is present but
// never rejects the request
func NewOptionalJWTMiddleware(d *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, d, secret)
		if err != nil {
			zap.L().Warn("Failed to resolve optional session", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		}

		if user != nil {
			c.Set("userID", user.ID)
			c.Set("user", user)
		}

		c.Next()
	}
}
