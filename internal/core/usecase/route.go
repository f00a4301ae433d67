package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

// NoEvidenceAnswer is returned when fallback logic exhausts all chunks and
// metadata lookup finds nothing; distinct from any failure path.
const NoEvidenceAnswer = "I could not find any passages or award records relevant to that question."

// RouterConfig carries the routing policy: retrieval sizing and the
// per-intent score thresholds.
type RouterConfig struct {
	TopK       int
	MinReturn  int
	MaxReturn  int
	Thresholds map[domain.Intent]float64
}

func (c RouterConfig) thresholdFor(intent domain.Intent) float64 {
	if t, ok := c.Thresholds[intent]; ok {
		return t
	}
	return 0.2
}

// RouterUseCase orchestrates the query pipeline: classify, expand when
// thematic, retrieve, apply fallback, and hand off to answer construction.
type RouterUseCase struct {
	classifier *Classifier
	retriever  *WeightedRetriever
	backend    ports.SearchBackend
	fallback   *FallbackEngine
	laureates  ports.LaureateRepository
	generator  ports.AnswerGenerator
	cfg        RouterConfig
	logger     *slog.Logger
}

func NewRouterUseCase(
	classifier *Classifier,
	retriever *WeightedRetriever,
	backend ports.SearchBackend,
	fallback *FallbackEngine,
	laureates ports.LaureateRepository,
	generator ports.AnswerGenerator,
	cfg RouterConfig,
	logger *slog.Logger,
) *RouterUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.MinReturn <= 0 {
		cfg.MinReturn = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouterUseCase{
		classifier: classifier,
		retriever:  retriever,
		backend:    backend,
		fallback:   fallback,
		laureates:  laureates,
		generator:  generator,
		cfg:        cfg,
		logger:     logger,
	}
}

func (uc *RouterUseCase) Classify(query string) domain.IntentResult {
	return uc.classifier.Classify(query)
}

// Route is the top-level retrieval entry point. An empty chunk list with a
// nil error is the structured "no evidence" outcome; errors mean the
// pipeline itself failed.
func (uc *RouterUseCase) Route(ctx context.Context, query string) (*domain.RouteResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapErrorf(domain.ErrInvalidInput, "route query", "empty query")
	}

	start := time.Now()
	intent := uc.classifier.Classify(query)
	retrievalCfg := uc.retrievalConfigFor(intent)
	// Inconsistent bounds fail every path fast, not just the thematic one.
	if err := retrievalCfg.Validate(); err != nil {
		return nil, err
	}

	result := &domain.RouteResult{
		Intent: intent,
		Config: retrievalCfg,
	}

	switch intent.Intent {
	case domain.IntentThematic:
		merged, expansion, err := uc.retriever.Retrieve(ctx, query, retrievalCfg)
		if err != nil {
			return nil, err
		}
		result.Expansion = expansion
		result.Chunks = uc.fallback.Apply(merged, retrievalCfg.ScoreThreshold, retrievalCfg.MinReturn, retrievalCfg.MaxReturn)
	default:
		raw, err := uc.backend.Search(ctx, query, retrievalCfg.TopK, retrievalCfg.Filter)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "route query", err)
		}
		result.Chunks = uc.fallback.Apply(scoredFromRaw(raw), retrievalCfg.ScoreThreshold, retrievalCfg.MinReturn, retrievalCfg.MaxReturn)
	}

	if intent.Intent == domain.IntentFactual {
		result.Facts = uc.lookupFacts(ctx, intent.ScopedEntities)
	}

	uc.logger.Info("query_routed",
		"intent", string(intent.Intent),
		"confidence", intent.Confidence,
		"scoped_entities", len(intent.ScopedEntities),
		"expansion_terms", len(result.Expansion),
		"chunks", len(result.Chunks),
		"facts", len(result.Facts),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return result, nil
}

// Answer routes the query and synthesizes the final answer text.
func (uc *RouterUseCase) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	routed, err := uc.Route(ctx, query)
	if err != nil {
		return nil, err
	}

	sources := routed.Citations()
	if len(sources) == 0 && len(routed.Facts) == 0 {
		return &domain.Answer{Text: NoEvidenceAnswer, Sources: []domain.Citation{}}, nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, query, routed.Facts, sources)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}
	return &domain.Answer{Text: text, Sources: sources}, nil
}

// retrievalConfigFor derives immutable retrieval parameters from the
// classification: intent-specific thresholds and laureate scoping.
func (uc *RouterUseCase) retrievalConfigFor(intent domain.IntentResult) domain.RetrievalConfig {
	filter := domain.SearchFilter{}
	// Generative queries cast the widest net; scoping only binds the
	// factual and thematic paths.
	if intent.Intent != domain.IntentGenerative && len(intent.ScopedEntities) > 0 {
		filter.Laureate = intent.ScopedEntities[0]
	}
	return domain.RetrievalConfig{
		TopK:           uc.cfg.TopK,
		ScoreThreshold: uc.cfg.thresholdFor(intent.Intent),
		MinReturn:      uc.cfg.MinReturn,
		MaxReturn:      uc.cfg.MaxReturn,
		Filter:         filter,
	}
}

// lookupFacts fetches award metadata for scoped laureates. Lookup failures
// degrade to fewer facts, never abort the route.
func (uc *RouterUseCase) lookupFacts(ctx context.Context, entities []string) []domain.Laureate {
	if uc.laureates == nil || len(entities) == 0 {
		return nil
	}
	facts := make([]domain.Laureate, 0, len(entities))
	for _, name := range entities {
		laureate, err := uc.laureates.GetByName(ctx, name)
		if err != nil {
			uc.logger.Warn("laureate_fact_lookup_failed", "laureate", name, "error", err)
			continue
		}
		facts = append(facts, *laureate)
	}
	return facts
}

func scoredFromRaw(raw []domain.RawResult) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.ScoredChunk{Chunk: r.Chunk, Score: r.Score})
	}
	return out
}
