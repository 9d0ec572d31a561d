package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if want, got := http.StatusOK, rec.Code; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()
	m := New()
	sessions := 3
	if err := m.TrackActiveSessions(func() int { return sessions }); err != nil {
		t.Fatalf("TrackActiveSessions: %v", err)
	}

	m.ObserveDispatch("tools/list", OutcomeOK, 5*time.Millisecond)
	m.ObserveDispatch("bogus", OutcomeUnknownMethod, time.Millisecond)
	m.SSEPushFailed()
	m.CRMRequest("categories", OutcomeOK)

	body := scrape(t, m)
	for _, want := range []string{
		"mcp_active_sessions 3",
		`mcp_dispatch_total{method="tools/list",outcome="ok"} 1`,
		`mcp_dispatch_total{method="bogus",outcome="unknown_method"} 1`,
		`mcp_dispatch_duration_seconds_count{method="tools/list"} 1`,
		"mcp_sse_push_failures_total 1",
		`crm_requests_total{endpoint="categories",outcome="ok"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.ObserveDispatch("x", OutcomeOK, time.Second)
	m.SSEPushFailed()
	m.CRMRequest("x", OutcomeError)
	if err := m.TrackActiveSessions(func() int { return 0 }); err != nil {
		t.Fatalf("TrackActiveSessions on nil: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if want, got := http.StatusNotFound, rec.Code; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}
}
