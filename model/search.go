package model

type SearchResults struct {
	Results         []SearchResultItem  `json:"results"`
	Query           string              `json:"query"`
	Images          []SearchResultImage `json:"images"`
	NumberOfResults int                 `json:"number_of_results,omitempty"`
}

type SearchResultItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type SearchResultImage struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Normalize makes sure the result set always serializes with arrays
func (s *SearchResults) Normalize() *SearchResults {
	if s.Results == nil {
		s.Results = []SearchResultItem{}
	}
	if s.Images == nil {
		s.Images = []SearchResultImage{}
	}

	return s
}
