package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

// WeightedRetriever issues one backend call per expansion term, boosts raw
// scores exponentially by term similarity, and merges results keeping the
// best evidence per chunk. A boost coefficient of zero disables boosting,
// which is exactly the legacy uniform-weight behavior.
type WeightedRetriever struct {
	backend        ports.SearchBackend
	expander       ports.ExpansionStrategy
	boostCoeff     float64
	maxConcurrency int
	logger         *slog.Logger
}

func NewWeightedRetriever(
	backend ports.SearchBackend,
	expander ports.ExpansionStrategy,
	boostCoeff float64,
	maxConcurrency int,
	logger *slog.Logger,
) *WeightedRetriever {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeightedRetriever{
		backend:        backend,
		expander:       expander,
		boostCoeff:     boostCoeff,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

type termResult struct {
	term    domain.ExpandedTerm
	results []domain.RawResult
	err     error
}

// Retrieve runs the full weighted thematic retrieval for one query and
// returns the merged, boosted, sorted chunk list together with the
// expansion terms that produced it. Threshold and min/max enforcement is
// the fallback engine's job, not ours.
func (r *WeightedRetriever) Retrieve(
	ctx context.Context,
	query string,
	cfg domain.RetrievalConfig,
) ([]domain.ScoredChunk, []domain.ExpandedTerm, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, domain.WrapErrorf(domain.ErrInvalidInput, "weighted retrieve", "empty query")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	terms, err := r.expander.Expand(ctx, query)
	if err != nil {
		if domain.IsKind(err, domain.ErrDimensionMismatch) {
			return nil, nil, err
		}
		r.logger.Warn("expansion_failed_using_raw_query", "error", err)
		terms = nil
	}
	if len(terms) == 0 {
		// No theme cleared the threshold: retrieve on the raw query alone
		// at full weight.
		terms = []domain.ExpandedTerm{{Term: query, Score: 1.0}}
	}

	start := time.Now()
	perTerm := r.searchTerms(ctx, terms, cfg)

	failures := 0
	merged := make(map[string]domain.ScoredChunk, cfg.TopK*2)
	for _, tr := range perTerm {
		if tr.err != nil {
			failures++
			r.logger.Warn("term_retrieval_failed",
				"term", tr.term.Term,
				"term_weight", tr.term.Score,
				"error", tr.err,
			)
			continue
		}
		r.mergeTermResults(merged, tr)
	}

	if failures == len(perTerm) {
		return nil, terms, domain.WrapErrorf(domain.ErrBackendUnavailable, "weighted retrieve",
			"all %d expansion term retrievals failed", len(perTerm))
	}

	out := sortMerged(merged)
	r.logger.Debug("weighted_retrieval_merged",
		"query_terms", len(perTerm),
		"failed_terms", failures,
		"merged_chunks", len(out),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return out, terms, nil
}

// searchTerms fans out one search per expansion term with bounded
// concurrency; results are collected only after every call completes.
func (r *WeightedRetriever) searchTerms(
	ctx context.Context,
	terms []domain.ExpandedTerm,
	cfg domain.RetrievalConfig,
) []termResult {
	out := make([]termResult, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, term := range terms {
		i, term := i, term
		g.Go(func() error {
			results, err := r.backend.Search(gctx, term.Term, cfg.TopK, cfg.Filter)
			out[i] = termResult{term: term, results: results, err: err}
			// Per-term failures are absorbed; returning an error here
			// would cancel the sibling searches.
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *WeightedRetriever) mergeTermResults(merged map[string]domain.ScoredChunk, tr termResult) {
	boost := math.Exp(r.boostCoeff * tr.term.Score)
	for _, raw := range tr.results {
		candidate := domain.ScoredChunk{
			Chunk:       raw.Chunk,
			Score:       raw.Score * boost,
			BoostFactor: boost,
			SourceTerm:  tr.term.Term,
			TermWeight:  tr.term.Score,
		}
		// Keep the best evidence per chunk, never an additive combination:
		// generically relevant chunks must not accumulate runaway scores.
		existing, ok := merged[raw.ID]
		if !ok || candidate.Score > existing.Score {
			merged[raw.ID] = candidate
		}
	}
}

// sortMerged orders by boosted score descending, preferring lectures over
// ceremony and acceptance speeches on equal scores, then chunk id for
// determinism.
func sortMerged(merged map[string]domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(merged))
	for _, chunk := range merged {
		out = append(out, chunk)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		iLecture := out[i].SourceType == domain.SourceLecture
		jLecture := out[j].SourceType == domain.SourceLecture
		if iLecture != jLecture {
			return iLecture
		}
		return out[i].ID < out[j].ID
	})
	return out
}
