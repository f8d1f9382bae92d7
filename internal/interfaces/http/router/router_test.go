package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/handler"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Header("X-Api", "yes")
		c.Next()
	})

	g := NewDomainGroup("employee", "/employee")
	g.GET("/supplies", func(c *gin.Context) { c.String(http.StatusOK, "list") }).
		POST("/supplies/:id/orders/:orderId/scan", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("id")+"/"+c.Param("orderId"))
		}).
		PUT("/supplies/:id", func(c *gin.Context) { c.String(http.StatusOK, "put") })
	r.Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/employee/supplies", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "list", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Api"))

	w = serve(engine, http.MethodPost, "/api/v1/employee/supplies/S-1/orders/7/scan", nil)
	assert.Equal(t, "S-1/7", w.Body.String())

	w = serve(engine, http.MethodPut, "/api/v1/employee/supplies/S-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("supply", "/supplies/:id")
		assert.Equal(t, "supply", g.Name())
		assert.Equal(t, "/supplies/:id", g.Prefix())
	})

	t.Run("middleware and subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "")
		g.Use(func(c *gin.Context) {
			c.Header("X-Group", "admin")
			c.Next()
		})
		sub := g.Group("supply", "/supplies/:id")
		sub.GET("/settings", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/supplies/S-9/settings", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "S-9", w.Body.String())
		assert.Equal(t, "admin", w.Header().Get("X-Group"))
	})
}

func newTestEngine() *gin.Engine {
	log := zap.NewNop()
	return NewEngine(EngineConfig{
		ServiceName: "test-my-sklad",
		CORSOrigins: []string{"http://localhost:3000"},
		MaxBodySize: 1 << 10,
	}, Handlers{
		Orders:   handler.NewOrdersHandler(nil, nil, log),
		Supply:   handler.NewSupplyHandler(nil, nil, nil, log),
		Employee: handler.NewEmployeeHandler(nil, nil, log),
		Events:   handler.NewEventsHandler(nil, log),
		System:   handler.NewSystemHandler("test-my-sklad", nil, nil, log),
	}, log)
}

func TestNewEngine(t *testing.T) {
	engine := newTestEngine()

	t.Run("health outside the api prefix", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("system info", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/system/info", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "test-my-sklad")
	})

	t.Run("request id is propagated", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/health", http.Header{middleware.RequestIDHeader: {"req-1"}})
		assert.Equal(t, "req-1", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("employee routes need an actor", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/employee/supplies", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = serve(engine, http.MethodPost, "/api/v1/employee/supplies/S-1/orders/1/collect", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		w := serve(engine, http.MethodOptions, "/api/v1/supplies", http.Header{"Origin": {"http://localhost:3000"}})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
