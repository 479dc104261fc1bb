package monitoring

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSetupPrometheusMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupPrometheusMetrics(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"/api/v1/powerload/42": "/api/v1/powerload/:id",
		"/api/v1/compute/ab5f0d3c-1111-2222-3333-444455556666/status": "/api/v1/compute/:id/status",
		"/api/v1/powerload": "/api/v1/powerload",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
