package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inkcloud/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type staticAuth string

func (a staticAuth) Verify(key string) bool { return key == string(a) }

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth(staticAuth("secret")))

	tests := []struct {
		name   string
		setup  func(*http.Request)
		target string
		want   int
	}{
		{"no key", func(*http.Request) {}, "/ping", http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, "/ping", http.StatusOK},
		{"api key header", func(r *http.Request) { r.Header.Set("X-Api-Key", "secret") }, "/ping", http.StatusOK},
		{"query", func(*http.Request) {}, "/ping?key=secret", http.StatusOK},
		{"wrong key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "/ping", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	r := newEngine(CORS(types.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dash.inkcloud.app"},
		AllowedMethods: []string{"GET", "PUT"},
		AllowedHeaders: []string{"Authorization"},
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://dash.inkcloud.app")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.inkcloud.app", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-Id"))
}
