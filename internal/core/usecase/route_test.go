package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type laureateRepoFake struct {
	byName map[string]domain.Laureate
	err    error
}

func (f *laureateRepoFake) List(context.Context) ([]domain.Laureate, error) {
	out := make([]domain.Laureate, 0, len(f.byName))
	for _, l := range f.byName {
		out = append(out, l)
	}
	return out, nil
}

func (f *laureateRepoFake) GetByName(_ context.Context, fullName string) (*domain.Laureate, error) {
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.byName[fullName]
	if !ok {
		return nil, domain.WrapErrorf(domain.ErrDocumentNotFound, "get laureate", "%s", fullName)
	}
	return &l, nil
}

func (f *laureateRepoFake) Upsert(context.Context, []domain.Laureate) error { return nil }

type generatorFake struct {
	answer    string
	err       error
	lastFacts []domain.Laureate
}

func (f *generatorFake) GenerateAnswer(_ context.Context, _ string, facts []domain.Laureate, _ []domain.Citation) (string, error) {
	f.lastFacts = facts
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *generatorFake) GenerateFromPrompt(context.Context, string) (string, error) {
	return f.answer, f.err
}

func testRouterConfig() RouterConfig {
	return RouterConfig{
		TopK:      10,
		MinReturn: 3,
		MaxReturn: 8,
		Thresholds: map[domain.Intent]float64{
			domain.IntentFactual:    0.25,
			domain.IntentThematic:   0.2,
			domain.IntentGenerative: 0.2,
		},
	}
}

func newTestRouter(backend *backendFake, expander *expanderFake, repo *laureateRepoFake, gen *generatorFake) *RouterUseCase {
	retriever := NewWeightedRetriever(backend, expander, 2.0, 2, nil)
	return NewRouterUseCase(
		newTestClassifier(),
		retriever,
		backend,
		NewFallbackEngine(nil),
		repo,
		gen,
		testRouterConfig(),
		nil,
	)
}

func TestRouteEmptyQuery(t *testing.T) {
	router := newTestRouter(&backendFake{}, &expanderFake{}, &laureateRepoFake{}, &generatorFake{})
	if _, err := router.Route(context.Background(), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRouteRejectsInconsistentBounds(t *testing.T) {
	query := "When did Kazuo Ishiguro win the Nobel Prize?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		query: {rawResult("a", 0.5, domain.SourceLecture)},
	}}
	cfg := testRouterConfig()
	cfg.MinReturn = 10
	cfg.MaxReturn = 5
	router := NewRouterUseCase(
		newTestClassifier(),
		NewWeightedRetriever(backend, &expanderFake{}, 2.0, 2, nil),
		backend,
		NewFallbackEngine(nil),
		&laureateRepoFake{},
		&generatorFake{},
		cfg,
		nil,
	)

	// A factual query takes the direct path, which must reject the bounds
	// just as the thematic path does.
	_, err := router.Route(context.Background(), query)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for min_return > max_return, got %v", err)
	}
	if len(backend.filters) != 0 {
		t.Fatal("no search may run with inconsistent bounds")
	}
}

func TestRouteThematicScopesLaureateFilter(t *testing.T) {
	query := "What did Toni Morrison say about justice?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		"justice": {rawResult("a", 0.6, domain.SourceLecture)},
	}}
	expander := &expanderFake{terms: []domain.ExpandedTerm{{Term: "justice", Score: 0.8}}}
	router := newTestRouter(backend, expander, &laureateRepoFake{}, &generatorFake{})

	routed, err := router.Route(context.Background(), query)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Intent.Intent != domain.IntentThematic {
		t.Fatalf("intent = %s, want thematic", routed.Intent.Intent)
	}
	if routed.Config.Filter.Laureate != "Toni Morrison" {
		t.Fatalf("config filter = %+v, want Toni Morrison scope", routed.Config.Filter)
	}
	if len(backend.filters) == 0 {
		t.Fatal("backend never called")
	}
	for _, filter := range backend.filters {
		if filter.Laureate != "Toni Morrison" {
			t.Fatalf("backend filter = %+v, scoping lost", filter)
		}
	}
	if len(routed.Expansion) != 1 || routed.Expansion[0].Term != "justice" {
		t.Fatalf("expansion trace missing: %v", routed.Expansion)
	}
}

func TestRouteFactualFetchesFacts(t *testing.T) {
	query := "When did Kazuo Ishiguro win the Nobel Prize?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		query: {rawResult("a", 0.5, domain.SourceLecture)},
	}}
	repo := &laureateRepoFake{byName: map[string]domain.Laureate{
		"Kazuo Ishiguro": {FullName: "Kazuo Ishiguro", LastName: "Ishiguro", YearAwarded: 2017, Country: "United Kingdom"},
	}}
	router := newTestRouter(backend, &expanderFake{}, repo, &generatorFake{})

	routed, err := router.Route(context.Background(), query)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Intent.Intent != domain.IntentFactual {
		t.Fatalf("intent = %s, want factual", routed.Intent.Intent)
	}
	if len(routed.Facts) != 1 || routed.Facts[0].YearAwarded != 2017 {
		t.Fatalf("facts = %v, want Ishiguro 2017", routed.Facts)
	}
}

func TestRouteFactualLookupFailureDegrades(t *testing.T) {
	query := "When did Kazuo Ishiguro win the Nobel Prize?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		query: {rawResult("a", 0.5, domain.SourceLecture)},
	}}
	repo := &laureateRepoFake{err: errors.New("db down")}
	router := newTestRouter(backend, &expanderFake{}, repo, &generatorFake{})

	routed, err := router.Route(context.Background(), query)
	if err != nil {
		t.Fatalf("fact lookup failure must not abort routing, got %v", err)
	}
	if len(routed.Facts) != 0 {
		t.Fatalf("facts = %v, want none", routed.Facts)
	}
	if len(routed.Chunks) == 0 {
		t.Fatal("chunks lost alongside fact failure")
	}
}

func TestRouteGenerativeIgnoresScoping(t *testing.T) {
	query := "Write a speech in the style of Toni Morrison about creativity"
	backend := &backendFake{results: map[string][]domain.RawResult{
		query: {rawResult("a", 0.5, domain.SourceLecture)},
	}}
	router := newTestRouter(backend, &expanderFake{}, &laureateRepoFake{}, &generatorFake{})

	routed, err := router.Route(context.Background(), query)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if routed.Intent.Intent != domain.IntentGenerative {
		t.Fatalf("intent = %s, want generative", routed.Intent.Intent)
	}
	if !routed.Config.Filter.IsZero() {
		t.Fatalf("generative queries must not filter by laureate: %+v", routed.Config.Filter)
	}
}

func TestRouteBackendFailure(t *testing.T) {
	query := "When did Kazuo Ishiguro win the Nobel Prize?"
	backend := &backendFake{errs: map[string]error{query: errors.New("connection refused")}}
	router := newTestRouter(backend, &expanderFake{}, &laureateRepoFake{}, &generatorFake{})

	_, err := router.Route(context.Background(), query)
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestAnswerNoEvidence(t *testing.T) {
	backend := &backendFake{}
	router := newTestRouter(backend, &expanderFake{}, &laureateRepoFake{}, &generatorFake{answer: "should not be used"})

	answer, err := router.Answer(context.Background(), "themes of memory and exile")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != NoEvidenceAnswer {
		t.Fatalf("answer = %q, want the no-evidence message", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("no-evidence answer must carry no sources: %v", answer.Sources)
	}
}

func TestAnswerWithEvidence(t *testing.T) {
	query := "What did Toni Morrison say about justice?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		"justice": {rawResult("a", 0.6, domain.SourceLecture)},
	}}
	expander := &expanderFake{terms: []domain.ExpandedTerm{{Term: "justice", Score: 0.8}}}
	gen := &generatorFake{answer: "Morrison spoke of language as the measure of our lives."}
	router := newTestRouter(backend, expander, &laureateRepoFake{}, gen)

	answer, err := router.Answer(context.Background(), query)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(answer.Text, "Morrison") {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].ChunkID != "a" {
		t.Fatalf("sources = %v, want chunk a cited", answer.Sources)
	}
}

func TestAnswerGeneratorFailure(t *testing.T) {
	query := "What did Toni Morrison say about justice?"
	backend := &backendFake{results: map[string][]domain.RawResult{
		"justice": {rawResult("a", 0.6, domain.SourceLecture)},
	}}
	expander := &expanderFake{terms: []domain.ExpandedTerm{{Term: "justice", Score: 0.8}}}
	router := newTestRouter(backend, expander, &laureateRepoFake{}, &generatorFake{err: errors.New("model timeout")})

	_, err := router.Answer(context.Background(), query)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary generation error, got %v", err)
	}
}
