package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest_Outcomes(t *testing.T) {
	o := NewObserver()

	o.ObserveRequest("GET", "/api/admin/customers", 200, false, 20*time.Millisecond)
	o.ObserveRequest("GET", "/api/admin/customers", 200, false, 30*time.Millisecond)
	o.ObserveRequest("POST", "/api/login", 401, false, time.Millisecond)
	o.ObserveRequest("GET", "/api/customer/{id}/applications", 500, true, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests.WithLabelValues("GET", "/api/admin/customers", "200", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("POST", "/api/login", "401", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("GET", "/api/customer/{id}/applications", "500", OutcomeTransport)))
	assert.Equal(t, 3, testutil.CollectAndCount(o.latency))
}

func TestServer_Endpoints(t *testing.T) {
	o := NewObserver()
	o.ObserveRequest("GET", "/api/applications", 200, false, time.Millisecond)
	srv := httptest.NewServer(NewServer(":0", o).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `billbuddy_backend_requests_total{method="GET",outcome="ok",route="/api/applications",status="200"} 1`)
}
