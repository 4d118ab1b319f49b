package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	RecordGatewayRequest("restcountries", "ok", 20*time.Millisecond)
	RecordBrowseOperation("search", "stale")
	RecordHTTPRequest(http.MethodGet, "/", http.StatusOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(gatewayRequests.WithLabelValues("restcountries", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(browseOperations.WithLabelValues("search", "stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/", "200")))
}

func TestHandler(t *testing.T) {
	RecordBrowseOperation("load_all", "applied")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "country_explorer_browse_operations_total")
}
