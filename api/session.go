package api

import (
	"net/http"
	"time"

	"bitwise74/labyrinth-api/middleware"
	"bitwise74/labyrinth-api/security"

	"github.com/gin-gonic/gin"
)

const sessionMaxAge = int(security.SessionTTL / time.Second)

// setSession issues a session token for userID and sets the auth cookies
func (a *API) setSession(c *gin.Context, userID string) error {
	tok, err := security.MakeSessionToken(a.Config.JWTSecret, userID, time.Now())
	if err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, tok, sessionMaxAge, "/", "", a.Config.SSL, true)
	c.SetCookie("logged_in", "1", sessionMaxAge, "/", "", a.Config.SSL, false)

	return nil
}

func (a *API) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", a.Config.SSL, true)
	c.SetCookie("logged_in", "", -1, "/", "", a.Config.SSL, false)
}

func internalError(c *gin.Context, requestID string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})
}
