package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disi/commandes/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Empty(t, r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithBasePath(t *testing.T) {
	r := NewRouter(gin.New(), WithBasePath("/api/"))

	assert.Equal(t, "/api", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		url      string
	}{
		{"root", "", "/test/ping"},
		{"prefixed", "/api", "/api/test/ping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			r := NewRouter(engine, WithBasePath(tt.basePath))

			group := NewDomainGroup("test", "/test")
			group.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})
			r.Register(group).Setup()

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "pong", w.Body.String())
		})
	}
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/products")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/products", g.Prefix())
	})

	t.Run("applies middleware to its routes and subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").Use(func(c *gin.Context) {
			c.Header("X-Guard", "on")
			c.Next()
		})
		g.Group("orders", "/orders").GET("", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		g.RegisterRoutes(engine.Group(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "on", w.Header().Get("X-Guard"))
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("items", "/items")
		ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
		g.GET("", ok).POST("", ok).PUT("/:id", ok).DELETE("/:id", ok)
		g.RegisterRoutes(engine.Group(""))

		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/items", nil),
			httptest.NewRequest(http.MethodPost, "/items", nil),
			httptest.NewRequest(http.MethodPut, "/items/1", nil),
			httptest.NewRequest(http.MethodDelete, "/items/1", nil),
		} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, http.StatusNoContent, w.Code, req.Method)
		}
	})

	t.Run("lists routes", func(t *testing.T) {
		g := NewDomainGroup("cart", "/cart")
		g.GET("", nil)
		g.Group("items", "/items").PUT("/:productId", nil)

		assert.Equal(t, []string{"GET /cart", "PUT /cart/items/:productId"}, g.Routes(""))
	})
}

func TestGroups_RouteTable(t *testing.T) {
	var routes []string
	for _, g := range Groups(Handlers{}, Guards{}) {
		routes = append(routes, g.Routes("")...)
	}

	for _, want := range []string{
		"GET /health",
		"POST /auth/register",
		"POST /auth/login",
		"POST /auth/refresh",
		"POST /auth/logout",
		"GET /auth/me",
		"PUT /auth/me/password",
		"GET /products",
		"GET /products/:id",
		"GET /categories",
		"GET /cart",
		"POST /cart/items",
		"PUT /cart/items/:productId",
		"DELETE /cart/items/:productId",
		"DELETE /cart",
		"POST /cart/checkout",
		"GET /orders",
		"GET /orders/:id",
		"GET /invoice/:orderId",
		"POST /admin/products/:id/image",
		"POST /admin/users/:id/approve",
		"POST /admin/orders/:id/reject",
		"GET /admin/orders/:id/history",
		"GET /admin/dashboard/data",
		"GET /admin/dashboard/data/user-deliveries",
		"GET /admin/clear-dashboard-cache",
		"GET /admin/administrations",
	} {
		assert.Contains(t, routes, want)
	}
}

func TestNewEngine_NoRoute(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	engine.GET("/known", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/known", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
