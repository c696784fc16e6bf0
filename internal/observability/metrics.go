package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	journalTransitions *prometheus.CounterVec
	shiftEvents        *prometheus.CounterVec
	cashDifference     prometheus.Histogram
}

// NewMetrics menginisialisasi registry, metrik HTTP, dan metrik ledger/shift.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_journal_transitions_total",
		Help: "Jumlah jurnal yang dibuat atau berpindah status, per status tujuan.",
	}, []string{"status"})
	shiftEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_shift_events_total",
		Help: "Jumlah kejadian siklus hidup shift kasir.",
	}, []string{"event"})
	cashDiff := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "odyssey_shift_cash_difference",
		Help:    "Selisih kas fisik terhadap kas yang diharapkan saat shift ditutup.",
		Buckets: []float64{-100, -50, -10, -1, -0.01, 0, 0.01, 1, 10, 50, 100},
	})
	registry.MustRegister(requests, duration, transitions, shiftEvents, cashDiff)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		journalTransitions: transitions,
		shiftEvents:        shiftEvents,
		cashDifference:     cashDiff,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// JournalTransition mencatat jurnal yang mencapai status tertentu.
func (m *Metrics) JournalTransition(status string) {
	if m == nil {
		return
	}
	m.journalTransitions.WithLabelValues(status).Inc()
}

// ShiftEvent mencatat kejadian shift (buka, mutasi, tutup, rekonsiliasi).
func (m *Metrics) ShiftEvent(event string) {
	if m == nil {
		return
	}
	m.shiftEvents.WithLabelValues(event).Inc()
}

// ShiftCashDifference mengamati selisih kas saat penutupan shift.
func (m *Metrics) ShiftCashDifference(diff float64) {
	if m == nil {
		return
	}
	m.cashDifference.Observe(diff)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
