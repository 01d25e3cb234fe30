package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	h := m.Middleware(func(*http.Request) string { return "/things/{id}" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/2", nil))

	got := testutil.ToFloat64(m.RequestCounter.WithLabelValues(http.MethodGet, "/things/{id}", "418"))
	if got != 2 {
		t.Fatalf("expected 2 requests counted, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CompletionObserved("ok")
	m.PushObserved("created", "delivered")
	m.ConnectionOpened()
	m.ConnectionClosed()
}
