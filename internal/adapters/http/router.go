package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
	"github.com/nobelvoices/laureate-rag/internal/observability/metrics"
)

// Options bundles the cross-cutting knobs the router needs beyond its
// use cases.
type Options struct {
	Service        string
	RetrievalMode  string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxQueueWait   time.Duration
	Metrics        *metrics.HTTPServerMetrics
}

type Router struct {
	queryUC   ports.QueryRouter
	ingestUC  ports.SpeechIngestor
	docs      ports.DocumentReader
	laureates ports.LaureateRepository
	opts      Options
}

func NewRouter(
	queryUC ports.QueryRouter,
	ingestUC ports.SpeechIngestor,
	docs ports.DocumentReader,
	laureates ports.LaureateRepository,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.MaxQueueWait <= 0 {
		opts.MaxQueueWait = 200 * time.Millisecond
	}
	return &Router{
		queryUC:   queryUC,
		ingestUC:  ingestUC,
		docs:      docs,
		laureates: laureates,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/classify", rt.classifyQuery)
	mux.HandleFunc("/v1/retrieve", rt.retrieveOnly)
	mux.HandleFunc("/v1/laureates", rt.listLaureates)
	mux.HandleFunc("/v1/documents", rt.uploadSpeech)
	mux.HandleFunc("/v1/documents/", rt.getSpeechByID)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.MaxQueueWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question string `json:"question"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return "", false
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return "", false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return "", false
	}
	return req.Question, true
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	intent := rt.queryUC.Classify(question)
	rt.recordClassification(intent)

	answer, err := rt.queryUC.Answer(r.Context(), question)
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordAnswerGeneration(rt.opts.Service, err)
		rt.opts.Metrics.RecordRetrievalMode(rt.opts.Service, rt.opts.RetrievalMode)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.opts.Metrics != nil && len(answer.Sources) == 0 {
		rt.opts.Metrics.RecordNoEvidence(rt.opts.Service)
	}

	writeJSON(w, http.StatusOK, struct {
		Answer     string            `json:"answer"`
		Sources    []domain.Citation `json:"sources"`
		Intent     domain.Intent     `json:"intent"`
		Confidence float64           `json:"confidence"`
	}{
		Answer:     answer.Text,
		Sources:    answer.Sources,
		Intent:     intent.Intent,
		Confidence: intent.Confidence,
	})
}

func (rt *Router) classifyQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	intent := rt.queryUC.Classify(question)
	rt.recordClassification(intent)
	writeJSON(w, http.StatusOK, intent)
}

// retrieveOnly exposes the routed retrieval result without answer
// synthesis; useful for debugging relevance and for downstream callers that
// do their own generation.
func (rt *Router) retrieveOnly(w http.ResponseWriter, r *http.Request) {
	question, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	routed, err := rt.queryUC.Route(r.Context(), question)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	rt.recordClassification(routed.Intent)
	rt.recordRetrieval(routed, time.Since(start))
	writeJSON(w, http.StatusOK, routed)
}

func (rt *Router) recordRetrieval(routed *domain.RouteResult, duration time.Duration) {
	if rt.opts.Metrics == nil {
		return
	}
	decisions := make(map[string]int, 3)
	for _, chunk := range routed.Chunks {
		decisions[string(chunk.FilteringReason)]++
	}
	rt.opts.Metrics.RecordRetrieval(
		rt.opts.Service,
		string(routed.Intent.Intent),
		decisions,
		len(routed.Chunks),
		len(routed.Expansion),
		duration,
	)
	rt.opts.Metrics.RecordRetrievalMode(rt.opts.Service, rt.opts.RetrievalMode)
}

func (rt *Router) listLaureates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	laureates, err := rt.laureates.List(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if laureates == nil {
		laureates = []domain.Laureate{}
	}
	writeJSON(w, http.StatusOK, laureates)
}

func (rt *Router) uploadSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	yearAwarded := 0
	if yearText := r.FormValue("year_awarded"); yearText != "" {
		yearAwarded, err = strconv.Atoi(yearText)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year_awarded must be an integer"})
			return
		}
	}

	upload := domain.SpeechUpload{
		Filename:    fileHeader.Filename,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Laureate:    r.FormValue("laureate"),
		YearAwarded: yearAwarded,
		SourceType:  domain.SourceType(r.FormValue("source_type")),
	}

	doc, err := rt.ingestUC.Upload(r.Context(), upload, file)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getSpeechByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) recordClassification(intent domain.IntentResult) {
	if rt.opts.Metrics == nil {
		return
	}
	rt.opts.Metrics.RecordClassification(rt.opts.Service, string(intent.Intent), intent.Confidence, intent.Trace.UsedFallback)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
