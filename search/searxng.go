package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bitwise74/labyrinth-api/model"
)

type searxngResponse struct {
	Query           string `json:"query"`
	NumberOfResults int    `json:"number_of_results"`
	Results         []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		ImgSrc  string `json:"img_src"`
	} `json:"results"`
}

// searxngParams returns the query for the given depth. Advanced widens the
// engine set and turns off the time range and safe search.
func searxngParams(q query) url.Values {
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("format", "json")
	v.Set("categories", "general,images")

	if q.Depth == "advanced" {
		v.Set("time_range", "")
		v.Set("safesearch", "0")
		v.Set("engines", "google,bing,duckduckgo,wikipedia")
	} else {
		v.Set("time_range", "year")
		v.Set("safesearch", "1")
		v.Set("engines", "google,bing")
	}

	return v
}

func (s *Service) searxngSearch(ctx context.Context, q query) (*model.SearchResults, error) {
	if s.cfg.SearxngURL == "" {
		return nil, errors.New("SearXNG API URL is not configured")
	}

	var data searxngResponse
	endpoint := s.cfg.SearxngURL + "/search?" + searxngParams(q).Encode()
	if err := s.do(ctx, "SearXNG", http.MethodGet, endpoint, nil, nil, &data); err != nil {
		return nil, err
	}

	results := []model.SearchResultItem{}
	images := []model.SearchResultImage{}

	for _, r := range data.Results {
		if r.ImgSrc != "" {
			if len(images) >= q.MaxResults {
				continue
			}

			src := r.ImgSrc
			if !strings.HasPrefix(src, "http") {
				src = s.cfg.SearxngURL + src
			}

			images = append(images, model.SearchResultImage{URL: src})
			continue
		}

		if len(results) < q.MaxResults {
			results = append(results, model.SearchResultItem{
				Title:   r.Title,
				URL:     r.URL,
				Content: r.Content,
			})
		}
	}

	text := data.Query
	if text == "" {
		text = q.Text
	}

	return &model.SearchResults{
		Results:         results,
		Query:           text,
		Images:          images,
		NumberOfResults: data.NumberOfResults,
	}, nil
}
