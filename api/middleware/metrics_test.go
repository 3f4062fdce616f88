package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
)

func TestMetricsAndLoggingUseRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	r := chi.NewRouter()
	r.Use(RequestID(logg), Logging(logg), Metrics(metrics.NewHTTPMetrics(reg)))
	r.Get("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("unexpected status %d", rec.Code)
		}
		if rec.Header().Get(requestIDHeader) == "" {
			t.Fatal("expected request id header")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/movies/{id}" && labels["status"] == "418" {
				found = true
				if got := m.GetCounter().GetValue(); got != 2 {
					t.Fatalf("expected 2 requests, got %v", got)
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a counter labelled with the route pattern")
	}
	if !strings.Contains(logs.String(), `"route":"/movies/{id}"`) {
		t.Fatalf("expected route in request log, got %s", logs.String())
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
