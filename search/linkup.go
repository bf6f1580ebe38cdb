package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"bitwise74/labyrinth-api/model"
)

type linkupSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
}

type linkupResponse struct {
	Answer  string         `json:"answer"`
	Sources []linkupSource `json:"sources"`
	Error   string         `json:"error"`
}

func (src linkupSource) text() string {
	if src.Snippet != "" {
		return src.Snippet
	}

	return src.Content
}

func (s *Service) linkup(ctx context.Context, body map[string]any) (*linkupResponse, error) {
	var data linkupResponse
	if err := s.do(ctx, "LinkUp", http.MethodPost, s.endpoints.Linkup+"/v1/search", bearer(s.cfg.LinkupKey), body, &data); err != nil {
		return nil, err
	}

	if data.Error != "" {
		return nil, fmt.Errorf("LinkUp API returned error: %s", data.Error)
	}

	return &data, nil
}

func (s *Service) linkupSearch(ctx context.Context, q query) (*model.SearchResults, error) {
	depth := "standard"
	if q.Depth == "advanced" {
		depth = "deep"
	}

	body := map[string]any{
		"q":             q.Text,
		"depth":         depth,
		"outputType":    "sourcedAnswer",
		"includeImages": false,
	}
	if len(q.IncludeDomains) > 0 {
		body["includeDomains"] = q.IncludeDomains
	}
	if len(q.ExcludeDomains) > 0 {
		body["excludeDomains"] = q.ExcludeDomains
	}

	data, err := s.linkup(ctx, body)
	if err != nil {
		return nil, err
	}

	results := []model.SearchResultItem{}
	for _, src := range data.Sources {
		if len(results) >= q.MaxResults {
			break
		}

		if src.URL == "" || src.text() == "" {
			continue
		}

		item := model.SearchResultItem{Title: src.Title, URL: src.URL, Content: src.text()}

		u, err := url.Parse(src.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			item.URL = "#"
			if item.Title == "" {
				item.Title = "Unknown Source"
			}
		} else {
			item.URL = u.String()
			if item.Title == "" {
				item.Title = u.Hostname()
			}
		}

		results = append(results, item)
	}

	if len(results) == 0 {
		results = append(results, model.SearchResultItem{
			Title:   "No Results Found",
			URL:     "#",
			Content: "No relevant information was found for your query. Please try different search terms.",
		})
	}

	return &model.SearchResults{
		Results:         results,
		Query:           q.Text,
		Images:          []model.SearchResultImage{},
		NumberOfResults: len(results),
	}, nil
}

// linkupRetrieve asks LinkUp about a single page, preferring a source on
// the same host as the requested URL
func (s *Service) linkupRetrieve(ctx context.Context, u *url.URL) (*model.SearchResults, error) {
	data, err := s.linkup(ctx, map[string]any{
		"q":              "Information about " + u.String(),
		"depth":          "deep",
		"outputType":     "sourcedAnswer",
		"includeImages":  false,
		"includeDomains": []string{u.Hostname()},
	})
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return retrieved("Error Retrieving Content", u.String(),
				fmt.Sprintf("Failed to retrieve content from %s: %d %s", u, apiErr.Status, http.StatusText(apiErr.Status))), nil
		}

		return nil, err
	}

	if data.Answer == "" && len(data.Sources) == 0 {
		return retrieved("No Content Found", u.String(), "No content could be retrieved from "+u.String()), nil
	}

	title := "Content from " + u.String()
	content := data.Answer

	if len(data.Sources) > 0 {
		best := data.Sources[0]
		for _, src := range data.Sources {
			if su, err := url.Parse(src.URL); err == nil && src.URL != "" && su.Hostname() == u.Hostname() {
				best = src
				break
			}
		}

		if best.Title != "" {
			title = best.Title
		}

		extra := best.Content
		if extra == "" {
			extra = best.Snippet
		}

		if extra != "" {
			if content != "" {
				content += "\n\n" + extra
			} else {
				content = extra
			}
		}
	}

	content = truncate(content, contentLimit)
	if content == "" {
		content = "No detailed content available for " + u.String()
	}

	return retrieved(title, u.String(), content), nil
}
