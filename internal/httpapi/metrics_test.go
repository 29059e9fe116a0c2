package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.Bytes()
}

// The router labels requests by route pattern, not by raw path.
func TestMetricsUseRoutePattern(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/v1/analyses/some-id", nil)

	body := scrape(t)
	assert.True(t, bytes.Contains(body, []byte("promptstock_http_requests_total")))
	assert.True(t, bytes.Contains(body, []byte(`path="/v1/analyses/{id}"`)))
	assert.False(t, bytes.Contains(body, []byte("some-id")))
}

func TestBusyCountsRejection(t *testing.T) {
	f := newFixture(t)
	f.exec.err = llm.ErrBusy("analysis")
	f.do(t, http.MethodPost, "/v1/analyze", types.AnalyzeRequest{Prompt: "p"})
	assert.True(t, bytes.Contains(scrape(t), []byte(`promptstock_http_rejections_total{reason="busy"}`)))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "promptstock_http_inflight_requests")
}
