package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersInflightAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	// body-writing route: response size is observed
	r.GET("/claims/stats", func(c *gin.Context) {
		c.String(http.StatusOK, `{"total":0}`)
	})

	// status-only route: size stays -1 and the size histogram is skipped
	r.PUT("/notifications/:id/read", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// baselines guard against other tests touching the shared collectors
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/claims/stats", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))
	base204 := testutil.ToFloat64(httpReqs.WithLabelValues("PUT", "/notifications/:id/read", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/claims/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /claims/stats -> %d", w.Code)
	}

	// unmatched route falls back to the raw URL as path label
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /does-not-exist -> %d", w.Code)
	}

	// matched parameterized route keeps the route template as path label
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/notifications/n1/read", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT /notifications/n1/read -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/claims/stats", "200")); got != baseOK+1 {
		t.Fatalf("counter /claims/stats 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("counter 404 fallback = %v; want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("PUT", "/notifications/:id/read", "204")); got != base204+1 {
		t.Fatalf("counter route template = %v; want %v", got, base204+1)
	}

	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}

	// Histogram bucket counts are timing-dependent, so the requests above only
	// need to exercise both the observe path (size >= 0) and the skip path
	// (size < 0).
}
