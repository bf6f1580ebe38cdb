package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/validators"

	"go.uber.org/zap"
)

const contentLimit = 10000

var (
	errNoContent   = errors.New("no content returned")
	ErrNoRetriever = errors.New("no API keys configured for content retrieval")
)

// Retrieve extracts the content of a single page. Like Search it reports
// failures inside the result set.
func (s *Service) Retrieve(ctx context.Context, rawURL string) *model.SearchResults {
	u, err := validators.URLValidator(rawURL)
	if err != nil {
		return retrieved("Invalid URL", "#",
			`The URL "`+rawURL+`" is not valid. Please provide a valid http or https URL.`)
	}

	var (
		res      *model.SearchResults
		provider string
	)

	switch {
	case s.cfg.API == APILinkup && s.cfg.LinkupKey != "":
		provider = APILinkup
		res, err = s.linkupRetrieve(ctx, u)
	case s.cfg.JinaKey != "":
		provider = "jina"
		res, err = s.jinaRead(ctx, u)
	case s.cfg.TavilyKey != "":
		provider = APITavily
		res, err = s.tavilyExtract(ctx, u.String())
	default:
		err = ErrNoRetriever
	}
	if err != nil {
		zap.L().Warn("Retrieve failed", zap.String("provider", provider), zap.String("url", u.String()), zap.Error(err))
		return retrieved("Retrieve Error", u.String(), "Failed to retrieve content: "+err.Error())
	}

	return res
}

type jinaResponse struct {
	Data *struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"data"`
}

func (s *Service) jinaRead(ctx context.Context, u *url.URL) (*model.SearchResults, error) {
	headers := bearer(s.cfg.JinaKey)
	headers["X-With-Generated-Alt"] = "true"

	var data jinaResponse
	if err := s.do(ctx, "Jina", http.MethodGet, s.endpoints.Jina+"/"+u.String(), headers, nil, &data); err != nil {
		return nil, err
	}

	if data.Data == nil || data.Data.Content == "" {
		return nil, errNoContent
	}

	return retrieved(data.Data.Title, data.Data.URL, truncate(data.Data.Content, contentLimit)), nil
}

func retrieved(title, link, content string) *model.SearchResults {
	return &model.SearchResults{
		Results: []model.SearchResultItem{{Title: title, URL: link, Content: content}},
		Images:  []model.SearchResultImage{},
	}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}

	return s
}
