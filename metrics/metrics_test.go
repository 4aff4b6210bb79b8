package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCounters(t *testing.T) {
	before := testutil.ToFloat64(jobRuns.WithLabelValues("thumb", "false"))
	RecordJobRun("thumb", errors.New("boom"), time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(jobRuns.WithLabelValues("thumb", "false")))

	before = testutil.ToFloat64(jobsEnqueued.WithLabelValues("default", "thumb"))
	RecordJobEnqueued("default", "thumb")
	assert.Equal(t, before+1, testutil.ToFloat64(jobsEnqueued.WithLabelValues("default", "thumb")))
}

func TestAssetCounters(t *testing.T) {
	before := testutil.ToFloat64(assetBytes)
	RecordAssetWritten("image", 128)
	assert.Equal(t, before+128, testutil.ToFloat64(assetBytes))
}

func TestHandlerExposesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `assetd_http_requests_total{method="GET",path="/ping",status="200"}`))
}
