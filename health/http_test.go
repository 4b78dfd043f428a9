package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		wantCode  int
		wantReady string
	}{
		{"healthy", StatusHealthy, http.StatusOK, "OK"},
		{"degraded", StatusDegraded, http.StatusOK, "DEGRADED"},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			agg.Register(static("store", tt.status))
			mux := http.NewServeMux()
			RegisterHandlers(mux, agg)

			if rec := serve(t, mux, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
				t.Errorf("/healthz = %d %q", rec.Code, rec.Body.String())
			}

			rec := serve(t, mux, "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantReady {
				t.Errorf("/readyz = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantReady)
			}

			rec = serve(t, mux, "/health")
			if rec.Code != tt.wantCode {
				t.Errorf("/health code = %d, want %d", rec.Code, tt.wantCode)
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("decode report: %v", err)
			}
			if report.Status != tt.status.String() || report.Checks["store"].Status != tt.status.String() {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestCheckHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register(static("store", StatusHealthy))

	if rec := serve(t, CheckHandler(agg, "store"), "/health/store"); rec.Code != http.StatusOK {
		t.Errorf("known check code = %d", rec.Code)
	}
	rec := serve(t, CheckHandler(agg, "missing"), "/health/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown check code = %d, want 404", rec.Code)
	}
}
