package search

import (
	"context"
	"net/http"
	"strings"

	"bitwise74/labyrinth-api/model"
)

type tavilyResponse struct {
	Query   string                   `json:"query"`
	Results []model.SearchResultItem `json:"results"`
	Images  []struct {
		URL         string `json:"url"`
		Description string `json:"description"`
	} `json:"images"`
}

func (s *Service) tavilySearch(ctx context.Context, q query) (*model.SearchResults, error) {
	body := map[string]any{
		"query":                      q.Text,
		"max_results":                max(q.MaxResults, 5),
		"search_depth":               q.Depth,
		"include_images":             true,
		"include_image_descriptions": true,
		"include_answers":            true,
		"include_domains":            q.IncludeDomains,
		"exclude_domains":            q.ExcludeDomains,
	}

	var data tavilyResponse
	if err := s.do(ctx, "Tavily", http.MethodPost, s.endpoints.Tavily+"/search", bearer(s.cfg.TavilyKey), body, &data); err != nil {
		return nil, err
	}

	images := make([]model.SearchResultImage, 0, len(data.Images))
	for _, img := range data.Images {
		if img.Description == "" {
			continue
		}

		images = append(images, model.SearchResultImage{
			URL:         sanitizeURL(img.URL),
			Description: img.Description,
		})
	}

	text := data.Query
	if text == "" {
		text = q.Text
	}

	return &model.SearchResults{
		Results:         data.Results,
		Query:           text,
		Images:          images,
		NumberOfResults: len(data.Results),
	}, nil
}

type tavilyExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

func (s *Service) tavilyExtract(ctx context.Context, url string) (*model.SearchResults, error) {
	var data tavilyExtractResponse

	body := map[string]any{"urls": []string{url}}
	if err := s.do(ctx, "Tavily", http.MethodPost, s.endpoints.Tavily+"/extract", bearer(s.cfg.TavilyKey), body, &data); err != nil {
		return nil, err
	}

	if len(data.Results) == 0 {
		return nil, errNoContent
	}

	r := data.Results[0]
	content := truncate(r.RawContent, contentLimit)

	return retrieved(truncate(content, 100), r.URL, content), nil
}

func sanitizeURL(u string) string {
	return strings.ReplaceAll(strings.TrimSpace(u), " ", "%20")
}
