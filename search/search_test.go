package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/validators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchReq(q string) validators.SearchRequest {
	r := validators.SearchRequest{Query: q}
	_ = validators.SearchValidator(&r)
	return r
}

func TestSelectProvider(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Search
		want string
		err  error
	}{
		{"default tavily", config.Search{TavilyKey: "k"}, APITavily, nil},
		{"preferred with key", config.Search{API: APIExa, ExaKey: "k", TavilyKey: "k"}, APIExa, nil},
		{"linkup falls back to tavily", config.Search{API: APILinkup, TavilyKey: "k"}, APITavily, nil},
		{"falls back in order", config.Search{API: APILinkup, ExaKey: "k", SearxngURL: "http://s"}, APIExa, nil},
		{"searxng by url", config.Search{API: APITavily, SearxngURL: "http://s"}, APISearxng, nil},
		{"nothing configured", config.Search{API: APITavily}, "", ErrNoProvider},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectProvider(tc.cfg)
			assert.Equal(t, tc.want, got)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSearch_NoProviderIsInBandError(t *testing.T) {
	s := New(config.Search{API: APITavily})

	res := s.Search(context.Background(), searchReq("abc"))

	require.Len(t, res.Results, 1)
	assert.Equal(t, "Search Error", res.Results[0].Title)
	assert.Equal(t, "#", res.Results[0].URL)
	assert.Equal(t, "An error occurred while searching: no search API keys configured", res.Results[0].Content)
	assert.Equal(t, "abc  ", res.Query, "short queries are padded to five characters")
	assert.Equal(t, 1, res.NumberOfResults)
	assert.NotNil(t, res.Images)
}

func TestSearch_Tavily(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{
			"query": "golang generics",
			"results": [{"title": "Go", "url": "https://go.dev", "content": "Generics"}],
			"images": [
				{"url": "https://img.example.com/a b.png", "description": "a gopher"},
				{"url": "https://img.example.com/c.png", "description": ""}
			]
		}`))
	}))
	defer srv.Close()

	s := New(config.Search{TavilyKey: "tvly"}, WithEndpoints(Endpoints{Tavily: srv.URL}))

	req := searchReq("golang generics")
	req.MaxResults = 2

	res := s.Search(context.Background(), req)

	assert.EqualValues(t, 5, got["max_results"], "tavily asks for at least five results")
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Go", res.Results[0].Title)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "https://img.example.com/a%20b.png", res.Images[0].URL)
	assert.Equal(t, "a gopher", res.Images[0].Description)
}

func TestSearch_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := New(config.Search{TavilyKey: "tvly"}, WithEndpoints(Endpoints{Tavily: srv.URL}))
	res := s.Search(context.Background(), searchReq("golang"))

	require.Len(t, res.Results, 1)
	assert.Equal(t, "Search Error", res.Results[0].Title)
	assert.Contains(t, res.Results[0].Content, "Tavily API error: 401")
}

func TestSearch_Exa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "exa-key", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"results": [
			{"title": "A", "url": "https://a.com", "text": "full text", "highlights": ["best part"]},
			{"title": "B", "url": "https://b.com", "text": "only text"}
		]}`))
	}))
	defer srv.Close()

	s := New(config.Search{API: APIExa, ExaKey: "exa-key"}, WithEndpoints(Endpoints{Exa: srv.URL}))
	res := s.Search(context.Background(), searchReq("golang"))

	require.Len(t, res.Results, 2)
	assert.Equal(t, "best part", res.Results[0].Content)
	assert.Equal(t, "only text", res.Results[1].Content)
	assert.Equal(t, 2, res.NumberOfResults)
}

func TestSearch_Searxng(t *testing.T) {
	var params []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params = append(params, q.Get("engines")+"|"+q.Get("safesearch")+"|"+q.Get("time_range"))

		w.Write([]byte(`{
			"query": "golang",
			"number_of_results": 42,
			"results": [
				{"title": "Go", "url": "https://go.dev", "content": "The Go language"},
				{"title": "img", "url": "https://x", "img_src": "/static/gopher.png"},
				{"title": "img2", "url": "https://y", "img_src": "https://cdn.example.com/g.png"}
			]
		}`))
	}))
	defer srv.Close()

	t.Run("basic", func(t *testing.T) {
		s := New(config.Search{API: APISearxng, SearxngURL: srv.URL + "/"})
		res := s.Search(context.Background(), searchReq("golang"))

		require.Len(t, res.Results, 1)
		require.Len(t, res.Images, 2)
		assert.Equal(t, srv.URL+"/static/gopher.png", res.Images[0].URL)
		assert.Equal(t, "https://cdn.example.com/g.png", res.Images[1].URL)
		assert.Equal(t, 42, res.NumberOfResults)
	})

	t.Run("advanced by default depth", func(t *testing.T) {
		s := New(config.Search{API: APISearxng, SearxngURL: srv.URL, SearxngDefaultDepth: "advanced"})
		s.Search(context.Background(), searchReq("golang"))
	})

	assert.Equal(t, []string{
		"google,bing|1|year",
		"google,bing,duckduckgo,wikipedia|0|",
	}, params)
}

func TestSearch_Linkup(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Write([]byte(`{"sources": [
			{"url": "https://go.dev/doc", "snippet": "docs"},
			{"title": "Broken", "url": "::not a url", "content": "broken"},
			{"url": "", "snippet": "no url"},
			{"url": "https://go.dev/x"}
		]}`))
	}))
	defer srv.Close()

	s := New(config.Search{API: APILinkup, LinkupKey: "lk"}, WithEndpoints(Endpoints{Linkup: srv.URL}))

	req := searchReq("golang")
	req.SearchDepth = "advanced"
	res := s.Search(context.Background(), req)

	assert.Equal(t, "deep", body["depth"])
	require.Len(t, res.Results, 2)
	assert.Equal(t, "go.dev", res.Results[0].Title)
	assert.Equal(t, "#", res.Results[1].URL)
	assert.Equal(t, "Broken", res.Results[1].Title)
}

func TestSearch_LinkupNoSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer": "nothing"}`))
	}))
	defer srv.Close()

	s := New(config.Search{API: APILinkup, LinkupKey: "lk"}, WithEndpoints(Endpoints{Linkup: srv.URL}))
	res := s.Search(context.Background(), searchReq("golang"))

	require.Len(t, res.Results, 1)
	assert.Equal(t, "No Results Found", res.Results[0].Title)
}

func TestRetrieve(t *testing.T) {
	long := strings.Repeat("é", contentLimit+50)

	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://go.dev/doc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"title": "Docs", "url": "https://go.dev/doc", "content": long},
		})
	}))
	defer jina.Close()

	tavily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		w.Write([]byte(`{"results": [{"url": "https://go.dev/doc", "raw_content": "Extracted page"}]}`))
	}))
	defer tavily.Close()

	endpoints := Endpoints{Jina: jina.URL, Tavily: tavily.URL}

	t.Run("invalid url", func(t *testing.T) {
		res := New(config.Search{JinaKey: "j"}).Retrieve(context.Background(), "ftp://go.dev")
		assert.Equal(t, "Invalid URL", res.Results[0].Title)
	})

	t.Run("jina preferred over tavily", func(t *testing.T) {
		s := New(config.Search{JinaKey: "j", TavilyKey: "t"}, WithEndpoints(endpoints))
		res := s.Retrieve(context.Background(), "https://go.dev/doc")

		require.Len(t, res.Results, 1)
		assert.Equal(t, "Docs", res.Results[0].Title)
		assert.Equal(t, contentLimit, len([]rune(res.Results[0].Content)))
	})

	t.Run("tavily extract", func(t *testing.T) {
		s := New(config.Search{TavilyKey: "t"}, WithEndpoints(endpoints))
		res := s.Retrieve(context.Background(), "https://go.dev/doc")

		assert.Equal(t, "Extracted page", res.Results[0].Title)
		assert.Equal(t, "Extracted page", res.Results[0].Content)
	})

	t.Run("nothing configured", func(t *testing.T) {
		res := New(config.Search{}).Retrieve(context.Background(), "https://go.dev/doc")

		assert.Equal(t, "Retrieve Error", res.Results[0].Title)
		assert.Contains(t, res.Results[0].Content, ErrNoRetriever.Error())
	})
}

func TestRetrieve_Linkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"answer": "Go is a language.",
			"sources": [
				{"title": "Other", "url": "https://other.com", "content": "other"},
				{"title": "Go docs", "url": "https://go.dev/doc", "content": "Documentation"}
			]
		}`))
	}))
	defer srv.Close()

	s := New(config.Search{API: APILinkup, LinkupKey: "lk", JinaKey: "j"}, WithEndpoints(Endpoints{Linkup: srv.URL}))
	res := s.Retrieve(context.Background(), "https://go.dev/doc")

	require.Len(t, res.Results, 1)
	assert.Equal(t, "Go docs", res.Results[0].Title)
	assert.Equal(t, "Go is a language.\n\nDocumentation", res.Results[0].Content)
}
