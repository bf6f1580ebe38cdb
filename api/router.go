// Package api contains all endpoints available
package api

import (
	"context"
	"fmt"
	"time"

	"bitwise74/labyrinth-api/chat"
	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/db"
	"bitwise74/labyrinth-api/llm"
	"bitwise74/labyrinth-api/middleware"
	"bitwise74/labyrinth-api/related"
	"bitwise74/labyrinth-api/search"
	"bitwise74/labyrinth-api/security"
	"bitwise74/labyrinth-api/service"
	"bitwise74/labyrinth-api/stock"
	"bitwise74/labyrinth-api/store"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Argon   *security.ArgonHash
	Chats   *store.ChatStore
	Search  *search.Service
	Stock   *stock.Service
	Related *related.Generator
	Chat    *chat.Orchestrator
	Mailer  service.Mailer
	Config  *config.Config
	OAuth   map[string]*oauthProvider

	rdb     redis.UniversalClient
	limiter *middleware.RateLimiter
	cache   persist.CacheStore
	cron    *cron.Cron
	stop    context.CancelFunc
}

// Deps are the already connected backends the API is built on
type Deps struct {
	DB           *gorm.DB
	Redis        redis.UniversalClient
	Search       *search.Service
	Stock        *stock.Service
	ChatModel    llm.Model
	RelatedModel llm.JSONModel
	Mailer       service.Mailer
}

func NewRouter(cfg *config.Config) (*API, error) {
	makeLogger(cfg.LogLevel)
	config.Warn(cfg)

	d, err := db.New(cfg)
	if err != nil {
		return nil, err
	}

	rdb, err := store.NewRedis(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis, %w", err)
	}

	ctx := context.Background()

	chatModel, err := llm.New(ctx, cfg.LLM, cfg.LLM.Model)
	if err != nil {
		zap.L().Warn("LLM provider unavailable", zap.Error(err))
		chatModel = llm.Unavailable(err)
	}

	relatedModel := chatModel
	if cfg.LLM.RelatedModel != cfg.LLM.Model {
		if relatedModel, err = llm.New(ctx, cfg.LLM, cfg.LLM.RelatedModel); err != nil {
			relatedModel = llm.Unavailable(err)
		}
	}

	a := New(cfg, Deps{
		DB:           d,
		Redis:        rdb,
		Search:       search.New(cfg.Search),
		Stock:        stock.New(cfg.Stock),
		ChatModel:    chatModel,
		RelatedModel: relatedModel,
		Mailer:       service.NewSMTPMailer(cfg.Mail, cfg.PublicURL),
	})

	if a.cron, err = service.StartTokenCleanup(d, "@hourly"); err != nil {
		return nil, fmt.Errorf("failed to schedule token cleanup, %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.stop = cancel
	go a.limiter.Run(runCtx)

	return a, nil
}

// New wires the handlers on top of deps without touching the network
func New(cfg *config.Config, deps Deps) *API {
	a := &API{
		DB:      deps.DB,
		Argon:   security.New(),
		Chats:   store.NewChatStore(deps.Redis),
		Search:  deps.Search,
		Stock:   deps.Stock,
		Related: related.New(deps.RelatedModel),
		Mailer:  deps.Mailer,
		Config:  cfg,
		OAuth:   newOAuthProviders(cfg),
		rdb:     deps.Redis,
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: cfg.RateLimit}),
		cache:   persist.NewMemoryStore(time.Minute),
	}

	a.Chat = chat.New(chat.Deps{
		Chat:        deps.ChatModel,
		Planner:     deps.ChatModel,
		Search:      a.Search,
		Stock:       a.Stock,
		Related:     a.Related,
		Store:       a.Chats,
		SaveHistory: cfg.SaveChatHistory,
	})

	a.mount()

	return a
}

func (a *API) mount() {
	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     a.Config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		a.limiter.Handler(),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	jwt := middleware.NewJWTMiddleware(a.DB, a.Config.JWTSecret)
	optionalJWT := middleware.NewOptionalJWTMiddleware(a.DB, a.Config.JWTSecret)
	smallBody := middleware.BodySizeLimiter(1 << 20)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/validate		-> Validates a session token
		main.GET("/validate", jwt, a.Validate)
	}

	users := main.Group("/users", smallBody)
	{
		// GET /api/users		-> Returns the signed in user
		users.GET("", jwt, a.UserFetch)

		// POST /api/users 		-> Registers a new user
		users.POST("", a.UserRegister)

		// POST /api/users/login 	-> Logs in a user and sets the session cookie
		users.POST("/login", a.UserLogin)

		// POST /api/users/logout	-> Clears the session cookies
		users.POST("/logout", a.UserLogout)
	}

	auth := main.Group("/auth", smallBody)
	{
		// POST /api/auth/forgot-password	-> Mails a password reset link
		auth.POST("/forgot-password", a.AuthForgotPassword)

		// POST /api/auth/reset-password	-> Sets a new password using a reset token
		auth.POST("/reset-password", a.AuthResetPassword)

		// GET /api/auth/oauth/:provider	-> Redirects to the provider's consent page
		auth.GET("/oauth/:provider", a.OAuthStart)

		// GET /api/auth/oauth/:provider/callback	-> Finishes an OAuth login
		auth.GET("/oauth/:provider/callback", a.OAuthCallback)
	}

	// POST /api/search		-> Searches the web with the configured provider
	main.POST("/search", smallBody, a.SearchQuery)

	// POST /api/retrieve		-> Extracts the content of a single URL
	main.POST("/retrieve", smallBody, a.SearchRetrieve)

	stocks := main.Group("/stock", middleware.RequireStockMode())
	{
		// GET /api/stock/data		-> Price series of a single symbol
		stocks.GET("/data", a.StockData)

		// GET /api/stock/chart		-> Chart payload and summary for up to 5 symbols
		stocks.GET("/chart", a.cacheFor(60), a.StockChart)
	}

	// POST /api/related-questions	-> Three follow up questions for an answer
	main.POST("/related-questions", smallBody, a.RelatedQuestions)

	// POST /api/chat		-> Streams an answer as server sent events
	main.POST("/chat", middleware.BodySizeLimiter(8<<20), optionalJWT, a.ChatStream)

	chats := main.Group("/chats", jwt)
	{
		// GET /api/chats		-> Chat history of the signed in user, newest first
		chats.GET("", a.ChatsList)

		// GET /api/chats/:id		-> One owned chat
		chats.GET("/:id", a.ChatsFetch)

		// DELETE /api/chats		-> Clears the whole chat history
		chats.DELETE("", a.ChatsClear)

		// POST /api/chats/:id/share	-> Publishes a chat under /share/:id
		chats.POST("/:id/share", a.ChatsShare)
	}

	// GET /api/share/:id		-> A shared chat, no session needed
	main.GET("/share/:id", a.ShareFetch)
}

// Close stops background jobs and releases held resources
func (a *API) Close() {
	if a.stop != nil {
		a.stop()
	}

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	if a.Stock != nil {
		_ = a.Stock.Close()
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Warn("Failed to close database", zap.Error(err))
			}
		}
	}
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if l, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(l)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func (a *API) cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(a.cache, time.Second*time.Duration(sec))
}
