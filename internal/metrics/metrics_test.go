package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.CollectAndCount(HTTPDuration)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/appointments/abc", nil))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/appointments/def", nil))

	after := testutil.CollectAndCount(HTTPDuration)
	if after-before != 1 {
		t.Errorf("new series = %d, want 1 (both ids share one route label)", after-before)
	}
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ChatAnswers.WithLabelValues("faq"))
	ChatAnswers.WithLabelValues("faq").Inc()
	if got := testutil.ToFloat64(ChatAnswers.WithLabelValues("faq")); got != before+1 {
		t.Errorf("ChatAnswers{faq} = %v, want %v", got, before+1)
	}
}
