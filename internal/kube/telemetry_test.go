package kube

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"k8s.io/client-go/rest"
)

type stubTransport struct {
	resp *http.Response
	err  error
}

func (s stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return s.resp, s.err
}

func TestRoundTripperCountsSuccessesAndFailures(t *testing.T) {
	stats := NewAPIRequestStats()
	req := httptest.NewRequest(http.MethodGet, "https://cluster.invalid/api/v1/pods", nil)

	ok := &apiMetricsRoundTripper{base: stubTransport{resp: &http.Response{StatusCode: http.StatusOK}}, stats: stats}
	denied := &apiMetricsRoundTripper{base: stubTransport{resp: &http.Response{StatusCode: http.StatusForbidden}}, stats: stats}
	broken := &apiMetricsRoundTripper{base: stubTransport{err: errors.New("connection reset")}, stats: stats}

	if _, err := ok.RoundTrip(req); err != nil {
		t.Fatalf("ok round trip: %v", err)
	}
	if _, err := ok.RoundTrip(req); err != nil {
		t.Fatalf("ok round trip: %v", err)
	}
	if _, err := denied.RoundTrip(req); err != nil {
		t.Fatalf("denied round trip: %v", err)
	}
	if _, err := broken.RoundTrip(req); err == nil {
		t.Fatalf("broken round trip swallowed its error")
	}

	m := stats.Snapshot()
	if m.Count != 4 {
		t.Fatalf("count = %d, want 4", m.Count)
	}
	if m.Failures != 2 {
		t.Fatalf("failures = %d, want 2", m.Failures)
	}
}

func TestMetricsString(t *testing.T) {
	if got := (APIRequestMetrics{}).String(); got != "no api requests" {
		t.Fatalf("empty metrics = %q", got)
	}
	m := APIRequestMetrics{Count: 3, Failures: 1, Total: 30 * time.Millisecond, Max: 20 * time.Millisecond}
	if got, want := m.String(), "3 req, avg 10ms, max 20ms, 1 failed"; got != want {
		t.Fatalf("metrics = %q, want %q", got, want)
	}
}

func TestAttachAPITelemetryComposesExistingWrapper(t *testing.T) {
	cfg := &rest.Config{}
	called := false
	cfg.WrapTransport = func(rt http.RoundTripper) http.RoundTripper {
		called = true
		return rt
	}
	AttachAPITelemetry(cfg, NewAPIRequestStats())

	wrapped := cfg.WrapTransport(http.DefaultTransport)
	if !called {
		t.Fatalf("existing wrapper was not invoked")
	}
	if _, ok := wrapped.(*apiMetricsRoundTripper); !ok {
		t.Fatalf("transport was not wrapped for telemetry: %T", wrapped)
	}
}

func TestNilStatsAreInert(t *testing.T) {
	cfg := &rest.Config{}
	AttachAPITelemetry(cfg, nil)
	if cfg.WrapTransport != nil {
		t.Fatalf("nil stats still wrapped the transport")
	}

	var stats *APIRequestStats
	stats.observe(time.Millisecond, false)
	if m := stats.Snapshot(); m.Count != 0 {
		t.Fatalf("nil stats snapshot = %+v", m)
	}
}
