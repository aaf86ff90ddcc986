package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/common/expfmt"
)

func scrape(t *testing.T, m *Metrics, stored int, observers int) map[string]float64 {
	t.Helper()

	h := m.Handler(
		func(context.Context) (int, error) { return stored, nil },
		func() int { return observers },
	)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(w.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	out := make(map[string]float64)
	for name, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.Counter != nil:
				out[name] = metric.Counter.GetValue()
			case metric.Gauge != nil:
				out[name] = metric.Gauge.GetValue()
			}
		}
	}
	return out
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.RecordSave()
	m.RecordSave()
	m.RecordRetrieval()
	m.RecordMiss()
	m.RecordSwept(5)

	got := scrape(t, m, 7, 3)

	want := map[string]float64{
		"pasty_saves_total":            2,
		"pasty_retrievals_total":       1,
		"pasty_retrieval_misses_total": 1,
		"pasty_texts_swept_total":      5,
		"pasty_texts_stored":           7,
		"pasty_observers_connected":    3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s: got %v, want %v", name, got[name], v)
		}
	}
}

func TestHandler_FreshMetricsAreZero(t *testing.T) {
	got := scrape(t, New(), 0, 0)
	if got["pasty_saves_total"] != 0 {
		t.Errorf("pasty_saves_total: got %v, want 0", got["pasty_saves_total"])
	}
}

func TestRecord_NilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.RecordSave()
	m.RecordRetrieval()
	m.RecordMiss()
	m.RecordSwept(3)
}

func TestRecordSwept_IgnoresNonPositive(t *testing.T) {
	m := New()
	m.RecordSwept(0)
	m.RecordSwept(-1)
	got := scrape(t, m, 0, 0)
	if got["pasty_texts_swept_total"] != 0 {
		t.Errorf("pasty_texts_swept_total: got %v, want 0", got["pasty_texts_swept_total"])
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New().Handler(
		func(context.Context) (int, error) { return 0, nil },
		func() int { return 0 },
	)
	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", w.Code)
	}
}
