// Package search wraps the web search and content extraction providers
// behind one result shape. Provider failures never escape as errors, they
// come back as a result set describing what went wrong.
package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/validators"

	"go.uber.org/zap"
)

const (
	APITavily  = "tavily"
	APIExa     = "exa"
	APISearxng = "searxng"
	APILinkup  = "linkup"

	minQueryLength = 5
)

var (
	ErrNoProvider = errors.New("no search API keys configured")

	fallbackOrder = []string{APITavily, APIExa, APISearxng, APILinkup}
)

// Endpoints are the base URLs of the hosted providers
type Endpoints struct {
	Tavily string
	Exa    string
	Linkup string
	Jina   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Tavily: "https://api.tavily.com",
		Exa:    "https://api.exa.ai",
		Linkup: "https://api.linkup.so",
		Jina:   "https://r.jina.ai",
	}
}

type Service struct {
	cfg       config.Search
	client    *http.Client
	endpoints Endpoints
}

type Option func(*Service)

func WithEndpoints(e Endpoints) Option {
	return func(s *Service) { s.endpoints = e }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func New(cfg config.Search, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		endpoints: DefaultEndpoints(),
	}

	for _, o := range opts {
		o(s)
	}

	s.cfg.SearxngURL = strings.TrimRight(s.cfg.SearxngURL, "/")

	return s
}

func hasCredential(cfg config.Search, api string) bool {
	switch api {
	case APITavily:
		return cfg.TavilyKey != ""
	case APIExa:
		return cfg.ExaKey != ""
	case APISearxng:
		return cfg.SearxngURL != ""
	case APILinkup:
		return cfg.LinkupKey != ""
	}

	return false
}

// SelectProvider picks the configured provider, or the first one in the
// fallback order that has a credential when the configured one doesn't
func SelectProvider(cfg config.Search) (string, error) {
	preferred := cfg.API
	if preferred == "" {
		preferred = APITavily
	}

	if hasCredential(cfg, preferred) {
		return preferred, nil
	}

	for _, api := range fallbackOrder {
		if hasCredential(cfg, api) {
			return api, nil
		}
	}

	return "", ErrNoProvider
}

func padQuery(q string) string {
	if n := utf8.RuneCountInString(q); n < minQueryLength {
		return q + strings.Repeat(" ", minQueryLength-n)
	}

	return q
}

// Search runs req against the selected provider. The request is expected
// to be validated already.
func (s *Service) Search(ctx context.Context, req validators.SearchRequest) *model.SearchResults {
	text := padQuery(req.Query)

	api, err := SelectProvider(s.cfg)
	if err != nil {
		return ErrorResults(text, err)
	}

	depth := req.SearchDepth
	if api == APISearxng && s.cfg.SearxngDefaultDepth == "advanced" {
		depth = "advanced"
	}
	if depth != "advanced" {
		depth = "basic"
	}

	zap.L().Debug("Running search", zap.String("api", api), zap.String("depth", depth))

	q := query{
		Text:           text,
		MaxResults:     req.MaxResults,
		Depth:          depth,
		IncludeDomains: nonNil(req.IncludeDomains),
		ExcludeDomains: nonNil(req.ExcludeDomains),
	}

	var res *model.SearchResults

	switch api {
	case APITavily:
		res, err = s.tavilySearch(ctx, q)
	case APIExa:
		res, err = s.exaSearch(ctx, q)
	case APILinkup:
		res, err = s.linkupSearch(ctx, q)
	default:
		res, err = s.searxngSearch(ctx, q)
	}
	if err != nil {
		zap.L().Warn("Search provider failed", zap.String("api", api), zap.Error(err))
		return ErrorResults(text, err)
	}

	return res.Normalize()
}

type query struct {
	Text           string
	MaxResults     int
	Depth          string
	IncludeDomains []string
	ExcludeDomains []string
}

// ErrorResults is the in-band result reported when a search can't run
func ErrorResults(q string, err error) *model.SearchResults {
	return &model.SearchResults{
		Results: []model.SearchResultItem{{
			Title:   "Search Error",
			URL:     "#",
			Content: "An error occurred while searching: " + err.Error(),
		}},
		Query:           q,
		Images:          []model.SearchResultImage{},
		NumberOfResults: 1,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
