package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal            *prometheus.CounterVec
	queryConfidence       *prometheus.HistogramVec
	queryFallbackTotal    *prometheus.CounterVec
	retrievalDecisions    *prometheus.CounterVec
	retrievalModeTotal    *prometheus.CounterVec
	retrievedChunks       *prometheus.HistogramVec
	expansionTerms        *prometheus.HistogramVec
	retrievalDuration     *prometheus.HistogramVec
	noEvidenceTotal       *prometheus.CounterVec
	answerGenerationTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "query",
			Name:      "classified_total",
			Help:      "Total classified queries by resolved intent.",
		},
		[]string{"service", "intent"},
	)
	queryConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lrag",
			Subsystem: "query",
			Name:      "classification_confidence",
			Help:      "Distribution of classification confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"service", "intent"},
	)
	queryFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "query",
			Name:      "classification_fallback_total",
			Help:      "Total queries that fell back to the default intent.",
		},
		[]string{"service"},
	)
	retrievalDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "filter_decisions_total",
			Help:      "Total retrieval filter outcomes by decision.",
		},
		[]string{"service", "decision"},
	)
	retrievalModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "mode_requests_total",
			Help:      "Total retrieval executions by execution mode.",
		},
		[]string{"service", "mode"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "returned_chunks",
			Help:      "Distribution of chunks returned per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "intent"},
	)
	expansionTerms := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "expansion_terms",
			Help:      "Distribution of expansion terms per thematic query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	noEvidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "retrieval",
			Name:      "no_evidence_total",
			Help:      "Total queries answered without any passages or facts.",
		},
		[]string{"service"},
	)
	answerGenerationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lrag",
			Subsystem: "llm",
			Name:      "answer_generation_total",
			Help:      "Total answer generation attempts by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryConfidence,
		queryFallbackTotal,
		retrievalDecisions,
		retrievalModeTotal,
		retrievedChunks,
		expansionTerms,
		retrievalDuration,
		noEvidenceTotal,
		answerGenerationTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		queryTotal:            queryTotal,
		queryConfidence:       queryConfidence,
		queryFallbackTotal:    queryFallbackTotal,
		retrievalDecisions:    retrievalDecisions,
		retrievalModeTotal:    retrievalModeTotal,
		retrievedChunks:       retrievedChunks,
		expansionTerms:        expansionTerms,
		retrievalDuration:     retrievalDuration,
		noEvidenceTotal:       noEvidenceTotal,
		answerGenerationTotal: answerGenerationTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordClassification(service, intent string, confidence float64, usedFallback bool) {
	if intent == "" {
		intent = "unknown"
	}
	m.queryTotal.WithLabelValues(service, intent).Inc()
	m.queryConfidence.WithLabelValues(service, intent).Observe(confidence)
	if usedFallback {
		m.queryFallbackTotal.WithLabelValues(service).Inc()
	}
}

// RecordRetrieval captures one routed query: chunk volume, per-chunk filter
// decisions and end-to-end duration.
func (m *HTTPServerMetrics) RecordRetrieval(service, intent string, decisions map[string]int, chunkCount, termCount int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.retrievedChunks.WithLabelValues(service, intent).Observe(float64(chunkCount))
	m.retrievalDuration.WithLabelValues(service, intent).Observe(duration.Seconds())
	m.expansionTerms.WithLabelValues(service).Observe(float64(termCount))
	for decision, count := range decisions {
		if count <= 0 {
			continue
		}
		m.retrievalDecisions.WithLabelValues(service, decision).Add(float64(count))
	}
	if chunkCount == 0 {
		m.retrievalDecisions.WithLabelValues(service, "empty").Inc()
	}
}

func (m *HTTPServerMetrics) RecordRetrievalMode(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.retrievalModeTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordNoEvidence(service string) {
	m.noEvidenceTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAnswerGeneration(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.answerGenerationTotal.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
