package validators

import (
	"errors"
	"net/url"
	"strings"
)

const (
	DefaultMaxResults = 10
	MaxMaxResults     = 50
)

var (
	ErrQueryEmpty        = errors.New("query parameter is required")
	ErrMaxResultsInvalid = errors.New("max_results must be between 1 and 50")
	ErrDepthInvalid      = errors.New("search_depth must be basic or advanced")
	ErrDomainInvalid     = errors.New("invalid domain provided")
	ErrURLInvalid        = errors.New("url must be a valid http or https url")
)

// SearchRequest is the body accepted by the search endpoint
type SearchRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains"`
	ExcludeDomains []string `json:"exclude_domains"`
}

// SearchValidator checks r and fills in the defaults in place
func SearchValidator(r *SearchRequest) error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrQueryEmpty
	}

	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}

	if r.MaxResults < 0 || r.MaxResults > MaxMaxResults {
		return ErrMaxResultsInvalid
	}

	switch r.SearchDepth {
	case "":
		r.SearchDepth = "basic"
	case "basic", "advanced":
	default:
		return ErrDepthInvalid
	}

	for _, d := range append(r.IncludeDomains, r.ExcludeDomains...) {
		if strings.TrimSpace(d) == "" || strings.ContainsAny(d, " /?#") {
			return ErrDomainInvalid
		}
	}

	return nil
}

// URLValidator accepts absolute http and https URLs only
func URLValidator(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrURLInvalid
	}

	return u, nil
}
