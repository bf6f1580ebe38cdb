package search

import (
	"context"
	"net/http"

	"bitwise74/labyrinth-api/model"
)

type exaResponse struct {
	Results []struct {
		Title      string   `json:"title"`
		URL        string   `json:"url"`
		Text       string   `json:"text"`
		Highlights []string `json:"highlights"`
	} `json:"results"`
}

func (s *Service) exaSearch(ctx context.Context, q query) (*model.SearchResults, error) {
	body := map[string]any{
		"query":      q.Text,
		"numResults": q.MaxResults,
		"contents": map[string]any{
			"text":       true,
			"highlights": true,
		},
	}

	if len(q.IncludeDomains) > 0 {
		body["includeDomains"] = q.IncludeDomains
	}
	if len(q.ExcludeDomains) > 0 {
		body["excludeDomains"] = q.ExcludeDomains
	}

	var data exaResponse
	headers := map[string]string{"x-api-key": s.cfg.ExaKey}
	if err := s.do(ctx, "Exa", http.MethodPost, s.endpoints.Exa+"/search", headers, body, &data); err != nil {
		return nil, err
	}

	results := make([]model.SearchResultItem, 0, len(data.Results))
	for _, r := range data.Results {
		content := r.Text
		if len(r.Highlights) > 0 && r.Highlights[0] != "" {
			content = r.Highlights[0]
		}

		results = append(results, model.SearchResultItem{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
		})
	}

	return &model.SearchResults{
		Results:         results,
		Query:           q.Text,
		Images:          []model.SearchResultImage{},
		NumberOfResults: len(results),
	}, nil
}
