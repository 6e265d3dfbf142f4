package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

type recorded struct {
	name       string
	dimensions map[string]string
}

type chanRecorder struct {
	ch chan recorded
}

func (r *chanRecorder) RecordCount(_ context.Context, name string, dims map[string]string) error {
	r.ch <- recorded{name: name, dimensions: dims}
	return nil
}

func (r *chanRecorder) RecordLatency(_ context.Context, name string, _ time.Duration, dims map[string]string) error {
	r.ch <- recorded{name: name, dimensions: dims}
	return nil
}

func TestMetricsMiddleware(t *testing.T) {
	rec := &chanRecorder{ch: make(chan recorded, 8)}
	r := gin.New()
	r.Use(MetricsMiddleware(rec, "catalog"))
	r.GET("/variants/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/variants/abc", nil))

	var names []string
	for i := 0; i < 3; i++ {
		select {
		case m := <-rec.ch:
			names = append(names, m.name)
			assert.Equal(t, "/variants/:id", m.dimensions["Route"])
			assert.Equal(t, "4xx", m.dimensions["Status"])
		case <-time.After(time.Second):
			require.FailNow(t, "metrics not recorded")
		}
	}
	assert.ElementsMatch(t, []string{awspkg.MetricHTTPRequests, awspkg.MetricHTTPLatency, awspkg.MetricHTTP4xx}, names)
}

func TestMetricsMiddleware_NilRecorder(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware(nil, "catalog"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
