package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/db"
	"bitwise74/labyrinth-api/llm"
	"bitwise74/labyrinth-api/search"
	"bitwise74/labyrinth-api/stock"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var dbCounter atomic.Int32

type fakeModel struct {
	chunks     []string
	related    string
	relatedErr error
}

func (m *fakeModel) StreamChat(_ context.Context, _ string, _ []llm.Message, onDelta func(string)) (string, error) {
	for _, c := range m.chunks {
		onDelta(c)
	}

	return strings.Join(m.chunks, ""), nil
}

func (m *fakeModel) GenerateJSON(_ context.Context, req llm.JSONRequest) (string, error) {
	if req.SchemaName == "tool_choice" {
		return `{"tool":"none"}`, nil
	}

	return m.related, m.relatedErr
}

type sentMail struct {
	to, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendResetMail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentMail{to: to, token: token})
	return nil
}

type testEnv struct {
	api    *API
	model  *fakeModel
	mailer *fakeMailer
}

type envOption func(cfg *config.Config, deps *Deps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &config.Config{
		LogLevel:        "info",
		Port:            8080,
		Domain:          "localhost",
		PublicURL:       "http://localhost:3000",
		CORSOrigins:     []string{"http://localhost:3000"},
		RateLimit:       1000,
		JWTSecret:       "test-secret",
		DBDriver:        "sqlite",
		DBDSN:           fmt.Sprintf("file:api_%d?mode=memory&cache=shared", dbCounter.Add(1)),
		SaveChatHistory: true,
		Search:          config.Search{API: search.APITavily},
	}

	d, err := db.New(cfg)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m := &fakeModel{
		chunks:  []string{"Hello ", "there."},
		related: `{"items":[{"query":"What is Go?"},{"query":"Who made Go?"},{"query":"Why Go?"}]}`,
	}
	mailer := &fakeMailer{}

	deps := Deps{
		DB:           d,
		Redis:        rdb,
		Search:       search.New(cfg.Search),
		Stock:        stock.New(cfg.Stock),
		ChatModel:    m,
		RelatedModel: m,
		Mailer:       mailer,
	}

	for _, o := range opts {
		o(cfg, &deps)
	}

	a := New(cfg, deps)
	a.Argon.Memory = 1024
	a.Argon.Iterations = 1
	t.Cleanup(a.Close)

	return &testEnv{api: a, model: m, mailer: mailer}
}

func (e *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}

	for _, c := range cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.api.Router.ServeHTTP(w, r)

	return w
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

// signUp registers an account and returns its session cookie
func (e *testEnv) signUp(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	w := e.do(http.MethodPost, "/api/users", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	c := cookie(w, "auth_token")
	require.NotNil(t, c)

	return c
}
