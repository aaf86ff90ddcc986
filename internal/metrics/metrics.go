package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metrics accumulates process counters for the pastebin. All methods are safe
// on a nil receiver so callers can run without metrics wired up.
type Metrics struct {
	saves      atomic.Int64
	retrievals atomic.Int64
	misses     atomic.Int64
	swept      atomic.Int64
}

// New creates an empty Metrics.
func New() *Metrics {
	return &Metrics{}
}

// RecordSave counts one successful save.
func (m *Metrics) RecordSave() {
	if m != nil {
		m.saves.Add(1)
	}
}

// RecordRetrieval counts one successful retrieval.
func (m *Metrics) RecordRetrieval() {
	if m != nil {
		m.retrievals.Add(1)
	}
}

// RecordMiss counts one lookup of an absent or expired id.
func (m *Metrics) RecordMiss() {
	if m != nil {
		m.misses.Add(1)
	}
}

// RecordSwept counts n entries removed by an expiration sweep.
func (m *Metrics) RecordSwept(n int64) {
	if m != nil && n > 0 {
		m.swept.Add(n)
	}
}

// Handler returns the GET /metrics handler. The two gauge callbacks are read
// at scrape time: storedCount for the live number of texts, observerCount for
// currently connected WebSocket clients.
func (m *Metrics) Handler(storedCount func(context.Context) (int, error), observerCount func() int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		families := []*dto.MetricFamily{
			counter("pasty_saves_total", "Total texts saved.", float64(m.saves.Load())),
			counter("pasty_retrievals_total", "Total successful retrievals.", float64(m.retrievals.Load())),
			counter("pasty_retrieval_misses_total", "Total lookups of absent or expired ids.", float64(m.misses.Load())),
			counter("pasty_texts_swept_total", "Total expired texts removed by sweeps.", float64(m.swept.Load())),
			gauge("pasty_observers_connected", "Currently connected WebSocket observers.", float64(observerCount())),
		}

		if n, err := storedCount(r.Context()); err == nil {
			families = append(families,
				gauge("pasty_texts_stored", "Live (non-expired) texts in the store.", float64(n)))
		} else {
			slog.Warn("metrics: stored count read failed", "err", err)
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("metrics: encode failed", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}
