package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profiledLabels serves one request through the profiling middleware and
// returns the pprof labels visible inside the handler.
func profiledLabels(t *testing.T, cfg ProfilingConfig, method, route, path string) map[string]string {
	t.Helper()

	labels := map[string]string{}
	router := gin.New()
	router.Use(ProfilingWithConfig(cfg))
	router.Handle(method, route, func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return labels
}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Subset(t, cfg.SkipPaths, []string{"/health", "/healthz", "/ready", "/metrics"})
	assert.Subset(t, cfg.SkipPathPrefixes, []string{"/swagger", "/api-docs"})
}

func TestProfilingConfig_ShouldSkip(t *testing.T) {
	cfg := DefaultProfilingConfig()

	tests := map[string]struct {
		path string
		want bool
	}{
		"health exact":      {path: "/health", want: true},
		"readiness exact":   {path: "/ready", want: true},
		"metrics exact":     {path: "/metrics", want: true},
		"swagger prefix":    {path: "/swagger/index.html", want: true},
		"api docs prefix":   {path: "/api-docs/v1", want: true},
		"regular api path":  {path: "/api/v1/integrations", want: false},
		"health subpath":    {path: "/health/check", want: false},
		"webhook ingestion": {path: "/webhooks/foody", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, cfg.shouldSkip(tc.path))
		})
	}
}

func TestProfilingWithConfig_AttachesLabels(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(),
		http.MethodGet, "/api/v1/integrations/:id", "/api/v1/integrations/123")

	assert.Equal(t, map[string]string{
		"method":     "GET",
		"route":      "/api/v1/integrations/:id",
		"controller": "integrations",
	}, labels)
}

func TestProfilingWithConfig_ProviderParam(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(),
		http.MethodPost, "/webhooks/:provider", "/webhooks/foody")

	assert.Equal(t, map[string]string{
		"method":     "POST",
		"route":      "/webhooks/:provider",
		"controller": "webhooks",
		"provider":   "foody",
	}, labels)
}

func TestProfilingWithConfig_SkippedPath(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(),
		http.MethodGet, "/health", "/health")

	assert.Empty(t, labels, "skipped paths must not be labeled")
}

func TestProfilingWithConfig_Disabled(t *testing.T) {
	labels := profiledLabels(t, ProfilingConfig{Enabled: false},
		http.MethodGet, "/api/v1/orders", "/api/v1/orders")

	assert.Empty(t, labels, "disabled middleware must not attach labels")
}

func TestProfiling_DefaultMiddleware(t *testing.T) {
	labels := map[string]string{}
	router := gin.New()
	router.Use(Profiling())
	router.GET("/api/v1/orders", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "orders", labels["controller"])
}

func TestProfilingWithConfig_CustomSkipPaths(t *testing.T) {
	cfg := ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/custom/health", "/custom/status"},
		SkipPathPrefixes: []string{"/custom/admin"},
	}

	tests := map[string]struct {
		path string
		want bool
	}{
		"exact skip":        {path: "/custom/health", want: true},
		"second exact skip": {path: "/custom/status", want: true},
		"prefix skip":       {path: "/custom/admin/dashboard", want: true},
		"not skipped":       {path: "/custom/api", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, cfg.shouldSkip(tc.path))
		})
	}
}

func TestExtractControllerFromRoute(t *testing.T) {
	tests := map[string]struct {
		route string
		want  string
	}{
		"plain resource":          {route: "/api/v1/integrations", want: "integrations"},
		"resource with id":        {route: "/api/v1/integrations/:id", want: "integrations"},
		"nested action":           {route: "/api/v1/inbox/:id/reprocess", want: "inbox"},
		"webhook route":           {route: "/webhooks/:provider", want: "webhooks"},
		"unversioned api":         {route: "/api/integrations", want: "integrations"},
		"version without api":     {route: "/v2/orders", want: "orders"},
		"only api and version":    {route: "/api/v1", want: ""},
		"leading path parameter":  {route: "/:id/history", want: "history"},
		"empty route":             {route: "", want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractControllerFromRoute(tc.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	tests := map[string]struct {
		segment string
		want    bool
	}{
		"v1":               {segment: "v1", want: true},
		"v10":              {segment: "v10", want: true},
		"uppercase V2":     {segment: "V2", want: true},
		"bare v":           {segment: "v", want: false},
		"trailing letter":  {segment: "v1a", want: false},
		"no digits":        {segment: "va", want: false},
		"digit only":       {segment: "1", want: false},
		"word":             {segment: "version", want: false},
		"empty":            {segment: "", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isVersionSegment(tc.segment))
		})
	}
}

func TestProfilingWithConfig_ContextPreserved(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("custom_key", "custom_value")
		c.Next()
	})
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.GET("/api/v1/integrations", func(c *gin.Context) {
		value, exists := c.Get("custom_key")
		assert.True(t, exists)
		assert.Equal(t, "custom_value", value)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/integrations", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfilingWithConfig_ChainOrder(t *testing.T) {
	var order []string
	router := gin.New()
	router.Use(func(c *gin.Context) {
		order = append(order, "first")
		c.Next()
		order = append(order, "first_after")
	})
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.Use(func(c *gin.Context) {
		order = append(order, "third")
		c.Next()
		order = append(order, "third_after")
	})
	router.GET("/api/v1/integrations", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/integrations", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"first", "third", "handler", "third_after", "first_after"}, order)
}
