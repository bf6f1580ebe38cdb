package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/util"
	"bitwise74/labyrinth-api/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"gorm.io/gorm"
)

const oauthStateCookie = "oauth_state"

type oauthProfile struct {
	ID    string
	Email string
	Name  string
}

type oauthProvider struct {
	conf    *oauth2.Config
	profile func(ctx context.Context, client *http.Client) (*oauthProfile, error)
}

func newOAuthProviders(cfg *config.Config) map[string]*oauthProvider {
	out := map[string]*oauthProvider{}

	for name, p := range cfg.OAuth {
		conf := &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  callbackURL(cfg, name),
		}

		switch name {
		case "google":
			conf.Endpoint = endpoints.Google
			conf.Scopes = []string{"openid", "email", "profile"}
			out[name] = &oauthProvider{conf: conf, profile: googleProfile("https://www.googleapis.com/oauth2/v3/userinfo")}
		case "github":
			conf.Endpoint = endpoints.GitHub
			conf.Scopes = []string{"read:user", "user:email"}
			out[name] = &oauthProvider{conf: conf, profile: githubProfile("https://api.github.com")}
		}
	}

	return out
}

func callbackURL(cfg *config.Config, provider string) string {
	base := "http://" + cfg.Domain + ":" + strconv.Itoa(cfg.Port)
	if cfg.SSL {
		base = "https://" + cfg.Domain
	}

	return base + "/api/auth/oauth/" + provider + "/callback"
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("profile request failed with status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func googleProfile(url string) func(context.Context, *http.Client) (*oauthProfile, error) {
	return func(ctx context.Context, client *http.Client) (*oauthProfile, error) {
		var p struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
		}
		if err := getJSON(ctx, client, url, &p); err != nil {
			return nil, err
		}

		if !p.EmailVerified {
			return nil, errors.New("google account email is not verified")
		}

		return &oauthProfile{ID: p.Sub, Email: p.Email, Name: p.Name}, nil
	}
}

func githubProfile(baseURL string) func(context.Context, *http.Client) (*oauthProfile, error) {
	return func(ctx context.Context, client *http.Client) (*oauthProfile, error) {
		var u struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Name  string `json:"name"`
		}
		if err := getJSON(ctx, client, baseURL+"/user", &u); err != nil {
			return nil, err
		}

		// The public profile email can be anything, use the primary verified one
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, baseURL+"/user/emails", &emails); err != nil {
			return nil, err
		}

		p := &oauthProfile{ID: strconv.FormatInt(u.ID, 10), Name: u.Name}
		if p.Name == "" {
			p.Name = u.Login
		}

		for _, e := range emails {
			if e.Primary && e.Verified {
				p.Email = e.Email
			}
		}

		if p.Email == "" {
			return nil, errors.New("github account has no verified primary email")
		}

		return p, nil
	}
}

func (a *API) OAuthStart(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	p, ok := a.OAuth[c.Param("provider")]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Unknown OAuth provider",
			"requestID": requestID,
		})
		return
	}

	state, err := util.GenerateToken(16)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to generate OAuth state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/api/auth/oauth", "", a.Config.SSL, true)
	c.Redirect(http.StatusFound, p.conf.AuthCodeURL(state))
}

func (a *API) OAuthCallback(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	provider := c.Param("provider")

	p, ok := a.OAuth[provider]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Unknown OAuth provider",
			"requestID": requestID,
		})
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid OAuth state",
			"requestID": requestID,
		})
		return
	}

	c.SetCookie(oauthStateCookie, "", -1, "/api/auth/oauth", "", a.Config.SSL, true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, strings.TrimRight(a.Config.PublicURL, "/")+"/login?error=oauth")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to complete OAuth login",
			"requestID": requestID,
		})

		zap.L().Warn("OAuth code exchange failed", zap.String("provider", provider), zap.Error(err), zap.String("requestID", requestID))
		return
	}

	profile, err := p.profile(ctx, p.conf.Client(ctx, tok))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to complete OAuth login",
			"requestID": requestID,
		})

		zap.L().Warn("Failed to fetch OAuth profile", zap.String("provider", provider), zap.Error(err), zap.String("requestID", requestID))
		return
	}

	userID, err := a.linkOAuthUser(provider, profile)
	if err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to link OAuth account", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := a.setSession(c, userID); err != nil {
		internalError(c, requestID)
		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Redirect(http.StatusFound, a.Config.PublicURL)
}

// linkOAuthUser finds the account behind profile. Existing accounts with
// the same email get the provider linked, otherwise a password-less
// account is created.
func (a *API) linkOAuthUser(provider string, profile *oauthProfile) (string, error) {
	var userID string

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		var link model.OAuthAccount
		err := tx.Where("provider = ? AND provider_user_id = ?", provider, profile.ID).First(&link).Error
		if err == nil {
			userID = link.UserID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		email := validators.NormalizeEmail(profile.Email)

		var user model.User
		err = tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			id, err := gonanoid.Generate(charset, 16)
			if err != nil {
				return err
			}

			user = model.User{ID: id, Email: email, Name: profile.Name}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		userID = user.ID

		return tx.Create(&model.OAuthAccount{
			UserID:         user.ID,
			Provider:       provider,
			ProviderUserID: profile.ID,
		}).Error
	})

	return userID, err
}
