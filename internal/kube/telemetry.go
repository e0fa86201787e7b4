// telemetry.go measures API traffic at the transport layer so the console
// footer can show what the dashboard is costing the control plane.
package kube

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"k8s.io/client-go/rest"
)

// APIRequestStats accumulates request counts and latency across every client
// built from the wrapped REST config.
type APIRequestStats struct {
	mu       sync.Mutex
	count    int
	failures int
	total    time.Duration
	max      time.Duration
}

// APIRequestMetrics is one consistent snapshot of the counters.
type APIRequestMetrics struct {
	Count    int
	Failures int
	Total    time.Duration
	Max      time.Duration
}

func NewAPIRequestStats() *APIRequestStats {
	return &APIRequestStats{}
}

func (s *APIRequestStats) observe(d time.Duration, failed bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.count++
	if failed {
		s.failures++
	}
	s.total += d
	if d > s.max {
		s.max = d
	}
	s.mu.Unlock()
}

func (s *APIRequestStats) Snapshot() APIRequestMetrics {
	if s == nil {
		return APIRequestMetrics{}
	}
	s.mu.Lock()
	out := APIRequestMetrics{
		Count:    s.count,
		Failures: s.failures,
		Total:    s.total,
		Max:      s.max,
	}
	s.mu.Unlock()
	return out
}

func (m APIRequestMetrics) Avg() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return time.Duration(int64(m.Total) / int64(m.Count))
}

func (m APIRequestMetrics) String() string {
	if m.Count == 0 {
		return "no api requests"
	}
	out := fmt.Sprintf("%d req, avg %s, max %s",
		m.Count, m.Avg().Round(time.Millisecond), m.Max.Round(time.Millisecond))
	if m.Failures > 0 {
		out += fmt.Sprintf(", %d failed", m.Failures)
	}
	return out
}

type apiMetricsRoundTripper struct {
	base  http.RoundTripper
	stats *APIRequestStats
}

func (rt *apiMetricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)
	failed := err != nil || (resp != nil && resp.StatusCode >= 400)
	rt.stats.observe(elapsed, failed)
	return resp, err
}

// AttachAPITelemetry wraps the REST config transport to capture request
// latency. Composes with any wrapper already present.
func AttachAPITelemetry(cfg *rest.Config, stats *APIRequestStats) {
	if cfg == nil || stats == nil {
		return
	}
	wrap := cfg.WrapTransport
	cfg.WrapTransport = func(rt http.RoundTripper) http.RoundTripper {
		if wrap != nil {
			rt = wrap(rt)
		}
		return &apiMetricsRoundTripper{base: rt, stats: stats}
	}
}
