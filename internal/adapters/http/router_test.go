package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type queryRouterFake struct {
	intent domain.IntentResult
	routed *domain.RouteResult
	answer *domain.Answer
	err    error
}

func (f *queryRouterFake) Classify(string) domain.IntentResult { return f.intent }

func (f *queryRouterFake) Route(context.Context, string) (*domain.RouteResult, error) {
	return f.routed, f.err
}

func (f *queryRouterFake) Answer(context.Context, string) (*domain.Answer, error) {
	return f.answer, f.err
}

type ingestorFake struct {
	doc        *domain.SpeechDocument
	err        error
	lastUpload domain.SpeechUpload
}

func (f *ingestorFake) Upload(_ context.Context, upload domain.SpeechUpload, _ io.Reader) (*domain.SpeechDocument, error) {
	f.lastUpload = upload
	return f.doc, f.err
}

type docReaderFake struct {
	doc *domain.SpeechDocument
	err error
}

func (f *docReaderFake) GetByID(context.Context, string) (*domain.SpeechDocument, error) {
	return f.doc, f.err
}

type laureateListFake struct {
	laureates []domain.Laureate
	err       error
}

func (f *laureateListFake) List(context.Context) ([]domain.Laureate, error) {
	return f.laureates, f.err
}
func (f *laureateListFake) GetByName(context.Context, string) (*domain.Laureate, error) {
	return nil, domain.WrapErrorf(domain.ErrDocumentNotFound, "get laureate", "none")
}
func (f *laureateListFake) Upsert(context.Context, []domain.Laureate) error { return nil }

func newTestRouter(query *queryRouterFake, ingest *ingestorFake, docs *docReaderFake, laureates *laureateListFake) http.Handler {
	if query == nil {
		query = &queryRouterFake{}
	}
	if ingest == nil {
		ingest = &ingestorFake{}
	}
	if docs == nil {
		docs = &docReaderFake{}
	}
	if laureates == nil {
		laureates = &laureateListFake{}
	}
	return NewRouter(query, ingest, docs, laureates, Options{Service: "api-test"}).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnswerQuery(t *testing.T) {
	query := &queryRouterFake{
		intent: domain.IntentResult{Intent: domain.IntentThematic, Confidence: 0.8},
		answer: &domain.Answer{
			Text: "Morrison framed language as agency.",
			Sources: []domain.Citation{
				{ChunkID: "c1", Laureate: "Toni Morrison", YearAwarded: 1993, SourceType: domain.SourceLecture},
			},
		},
	}
	handler := newTestRouter(query, nil, nil, nil)

	res := postJSON(t, handler, "/v1/query", `{"question":"what did Morrison say about language?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}

	var payload struct {
		Answer     string            `json:"answer"`
		Sources    []domain.Citation `json:"sources"`
		Intent     string            `json:"intent"`
		Confidence float64           `json:"confidence"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Intent != "thematic" || payload.Confidence != 0.8 {
		t.Fatalf("intent metadata missing: %+v", payload)
	}
	if len(payload.Sources) != 1 || payload.Sources[0].ChunkID != "c1" {
		t.Fatalf("sources = %+v", payload.Sources)
	}
}

func TestAnswerQueryValidation(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	res := postJSON(t, handler, "/v1/query", `{"question":"   "}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("blank question: status = %d", res.Code)
	}

	res = postJSON(t, handler, "/v1/query", `{not json`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d", rec.Code)
	}
}

func TestAnswerQueryErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"backend down", domain.WrapErrorf(domain.ErrBackendUnavailable, "search", "down"), http.StatusServiceUnavailable},
		{"dimension skew", domain.WrapErrorf(domain.ErrDimensionMismatch, "expand", "skew"), http.StatusInternalServerError},
		{"temporary", domain.WrapErrorf(domain.ErrTemporary, "generate", "busy"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&queryRouterFake{err: tc.err}, nil, nil, nil)
			res := postJSON(t, handler, "/v1/query", `{"question":"anything"}`)
			if res.Code != tc.want {
				t.Fatalf("status = %d, want %d", res.Code, tc.want)
			}
		})
	}
}

func TestClassifyQuery(t *testing.T) {
	query := &queryRouterFake{intent: domain.IntentResult{
		Intent:         domain.IntentFactual,
		Confidence:     0.9,
		ScopedEntities: []string{"Kazuo Ishiguro"},
	}}
	handler := newTestRouter(query, nil, nil, nil)

	res := postJSON(t, handler, "/v1/classify", `{"question":"when did Ishiguro win?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var result domain.IntentResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Intent != domain.IntentFactual || len(result.ScopedEntities) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRetrieveOnly(t *testing.T) {
	query := &queryRouterFake{routed: &domain.RouteResult{
		Intent: domain.IntentResult{Intent: domain.IntentThematic},
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: "c1"}, Score: 0.7, FilteringReason: domain.ReasonPassedThreshold},
		},
	}}
	handler := newTestRouter(query, nil, nil, nil)

	res := postJSON(t, handler, "/v1/retrieve", `{"question":"themes of exile"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var routed domain.RouteResult
	if err := json.Unmarshal(res.Body.Bytes(), &routed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(routed.Chunks) != 1 || routed.Chunks[0].FilteringReason != domain.ReasonPassedThreshold {
		t.Fatalf("routed = %+v", routed)
	}
}

func TestListLaureates(t *testing.T) {
	laureates := &laureateListFake{laureates: []domain.Laureate{
		{FullName: "Toni Morrison", YearAwarded: 1993},
	}}
	handler := newTestRouter(nil, nil, nil, laureates)

	req := httptest.NewRequest(http.MethodGet, "/v1/laureates", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var out []domain.Laureate
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].FullName != "Toni Morrison" {
		t.Fatalf("laureates = %+v", out)
	}
}

func TestUploadSpeech(t *testing.T) {
	ingest := &ingestorFake{doc: &domain.SpeechDocument{ID: "sp-1", Status: domain.StatusUploaded}}
	handler := newTestRouter(nil, ingest, nil, nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "morrison_lecture.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("we die. that may be the meaning of life."))
	_ = form.WriteField("laureate", "Toni Morrison")
	_ = form.WriteField("year_awarded", "1993")
	_ = form.WriteField("source_type", "lecture")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if ingest.lastUpload.Laureate != "Toni Morrison" ||
		ingest.lastUpload.YearAwarded != 1993 ||
		ingest.lastUpload.SourceType != domain.SourceLecture {
		t.Fatalf("upload metadata = %+v", ingest.lastUpload)
	}
}

func TestUploadSpeechInvalidMetadata(t *testing.T) {
	ingest := &ingestorFake{err: domain.WrapErrorf(domain.ErrInvalidInput, "validate upload", "laureate is required")}
	handler := newTestRouter(nil, ingest, nil, nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "speech.txt")
	_, _ = part.Write([]byte("text"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestGetSpeechNotFound(t *testing.T) {
	docs := &docReaderFake{err: domain.WrapErrorf(domain.ErrDocumentNotFound, "get speech", "missing")}
	handler := newTestRouter(nil, nil, docs, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	query := &queryRouterFake{intent: domain.IntentResult{Intent: domain.IntentFactual}}
	handler := NewRouter(query, &ingestorFake{}, &docReaderFake{}, &laureateListFake{}, Options{
		Service:        "api-test",
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}).Handler()

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("held request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("held request never completed")
	}
}
