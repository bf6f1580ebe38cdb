// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath        = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers    = []string{"sqlite", "postgres"}
	validSearchAPIs   = []string{"tavily", "exa", "searxng", "linkup"}
	validLLMProviders = []string{"google", "openai"}
)

// Config is the typed view over viper that gets passed to constructors
// instead of reading viper from deep inside the code.
type Config struct {
	LogLevel string

	Port        int
	Domain      string
	PublicURL   string
	CORSOrigins []string
	SSL         bool
	RateLimit   int

	JWTSecret string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SaveChatHistory bool

	Search Search
	Stock  Stock
	LLM    LLM
	Mail   Mail
	OAuth  map[string]OAuthProvider
}

type Search struct {
	API                 string
	TavilyKey           string
	ExaKey              string
	LinkupKey           string
	JinaKey             string
	SearxngURL          string
	SearxngDefaultDepth string
}

type Stock struct {
	PolygonKey string
	CacheTTL   time.Duration
}

type LLM struct {
	Provider     string
	Model        string
	RelatedModel string
	APIKey       string
	BaseURL      string
}

type Mail struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		fmt.Println("[WARNING]: config.toml not found, using defaults and environment variables")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return Validate(Load())
}

func bindEnvs() {
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.domain", "HOST_DOMAIN")
	v.BindEnv("host.public_url", "HOST_PUBLIC_URL")
	v.BindEnv("host.cors", "HOST_CORS")
	v.BindEnv("host.ssl_enabled", "HOST_SSL_ENABLED")
	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")

	v.BindEnv("jwt.secret", "JWT_SECRET")

	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN")

	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("chat.save_history", "ENABLE_SAVE_CHAT_HISTORY")

	v.BindEnv("search.api", "SEARCH_API")
	v.BindEnv("search.tavily_api_key", "TAVILY_API_KEY")
	v.BindEnv("search.exa_api_key", "EXA_API_KEY")
	v.BindEnv("search.linkup_api_key", "LINKUP_API_KEY")
	v.BindEnv("search.jina_api_key", "JINA_API_KEY")
	v.BindEnv("search.searxng.url", "SEARXNG_API_URL")
	v.BindEnv("search.searxng.default_depth", "SEARXNG_DEFAULT_DEPTH")

	v.BindEnv("stock.polygon_api_key", "POLYGON_API_KEY")

	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("llm.related_model", "LLM_RELATED_MODEL")
	v.BindEnv("llm.api_key", "LLM_API_KEY")
	v.BindEnv("llm.base_url", "LLM_BASE_URL")

	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.sender", "MAIL_SENDER_ADDRESS")
	v.BindEnv("mail.password", "MAIL_PASSWORD")

	v.BindEnv("oauth.google.client_id", "OAUTH_GOOGLE_CLIENT_ID")
	v.BindEnv("oauth.google.client_secret", "OAUTH_GOOGLE_CLIENT_SECRET")
	v.BindEnv("oauth.github.client_id", "OAUTH_GITHUB_CLIENT_ID")
	v.BindEnv("oauth.github.client_secret", "OAUTH_GITHUB_CLIENT_SECRET")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.public_url", "http://localhost:3000")
	v.SetDefault("host.cors", []string{"http://localhost:3000"})
	v.SetDefault("host.ssl_enabled", false)
	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("chat.save_history", true)

	v.SetDefault("search.api", "tavily")
	v.SetDefault("search.searxng.default_depth", "basic")

	v.SetDefault("stock.cache_ttl", "1h")

	v.SetDefault("llm.provider", "google")
	v.SetDefault("llm.model", "gemini-2.0-flash")

	v.SetDefault("mail.port", 587)
}

// Load snapshots the current viper state into a Config
func Load() *Config {
	c := &Config{
		LogLevel:    v.GetString("app.log_level"),
		Port:        v.GetInt("host.port"),
		Domain:      v.GetString("host.domain"),
		PublicURL:   v.GetString("host.public_url"),
		CORSOrigins: splitList(v.GetStringSlice("host.cors")),
		SSL:         v.GetBool("host.ssl_enabled"),
		RateLimit:   v.GetInt("security.rate_limit"),

		JWTSecret: v.GetString("jwt.secret"),

		DBDriver: v.GetString("database.driver"),
		DBDSN:    v.GetString("database.dsn"),

		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),

		SaveChatHistory: v.GetBool("chat.save_history"),

		Search: Search{
			API:                 v.GetString("search.api"),
			TavilyKey:           v.GetString("search.tavily_api_key"),
			ExaKey:              v.GetString("search.exa_api_key"),
			LinkupKey:           v.GetString("search.linkup_api_key"),
			JinaKey:             v.GetString("search.jina_api_key"),
			SearxngURL:          v.GetString("search.searxng.url"),
			SearxngDefaultDepth: v.GetString("search.searxng.default_depth"),
		},
		Stock: Stock{
			PolygonKey: v.GetString("stock.polygon_api_key"),
			CacheTTL:   v.GetDuration("stock.cache_ttl"),
		},
		LLM: LLM{
			Provider:     v.GetString("llm.provider"),
			Model:        v.GetString("llm.model"),
			RelatedModel: v.GetString("llm.related_model"),
			APIKey:       v.GetString("llm.api_key"),
			BaseURL:      v.GetString("llm.base_url"),
		},
		Mail: Mail{
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Sender:   v.GetString("mail.sender"),
			Password: v.GetString("mail.password"),
		},
		OAuth: map[string]OAuthProvider{},
	}

	for _, p := range []string{"google", "github"} {
		id := v.GetString("oauth." + p + ".client_id")
		if id == "" {
			continue
		}

		c.OAuth[p] = OAuthProvider{
			ClientID:     id,
			ClientSecret: v.GetString("oauth." + p + ".client_secret"),
		}
	}

	if c.LLM.RelatedModel == "" {
		c.LLM.RelatedModel = c.LLM.Model
	}

	return c
}

// splitList flattens comma separated entries, env vars arrive as a single
// "a,b" element
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}

	return out
}

// Validate reports the first configuration problem that prevents the
// server from starting
func Validate(c *Config) error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.JWTSecret == "" {
		return errors.New("jwt secret can't be empty")
	}

	if len(c.CORSOrigins) == 0 {
		return errors.New("at least one cors origin is required")
	}

	if !slices.Contains(validDBDrivers, c.DBDriver) {
		return errors.New("invalid database driver provided")
	}

	if c.DBDSN == "" {
		return errors.New("database dsn can't be empty")
	}

	if c.RedisAddr == "" {
		return errors.New("redis address can't be empty")
	}

	if !slices.Contains(validSearchAPIs, c.Search.API) {
		return fmt.Errorf("invalid search api %q", c.Search.API)
	}

	if !slices.Contains(validLLMProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid llm provider %q", c.LLM.Provider)
	}

	if c.RateLimit <= 0 {
		return errors.New("rate limit must be bigger than 0")
	}

	return nil
}

// Warn logs the missing provider settings. The features using them degrade
// instead of stopping the server.
func Warn(c *Config) {
	if c.Search.TavilyKey == "" && c.Search.ExaKey == "" && c.Search.LinkupKey == "" && c.Search.SearxngURL == "" {
		zap.L().Warn("No search provider configured, searches will return an error result")
	}

	if c.Stock.PolygonKey == "" {
		zap.L().Warn("No polygon api key configured, stock endpoints will fail")
	}

	if c.LLM.APIKey == "" {
		zap.L().Warn("No llm api key configured, chat and related questions will fail")
	}

	if c.Mail.Host == "" {
		zap.L().Warn("No mail host configured, password reset mails won't be sent")
	}
}
