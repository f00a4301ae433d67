package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

// RankedExpansion expands a query into theme keywords ordered by cosine
// similarity between the query embedding and each keyword embedding.
// Literal lexicon matches bypass the similarity threshold.
type RankedExpansion struct {
	lexicon    ports.ThemeLexicon
	embeddings ports.ThemeEmbeddings
	embedder   ports.Embedder
	threshold  float64
	legacy     *LegacyExpansion
	logger     *slog.Logger
}

func NewRankedExpansion(
	lexicon ports.ThemeLexicon,
	embeddings ports.ThemeEmbeddings,
	embedder ports.Embedder,
	threshold float64,
	logger *slog.Logger,
) *RankedExpansion {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankedExpansion{
		lexicon:    lexicon,
		embeddings: embeddings,
		embedder:   embedder,
		threshold:  threshold,
		legacy:     NewLegacyExpansion(lexicon),
		logger:     logger,
	}
}

func (e *RankedExpansion) Expand(ctx context.Context, query string) ([]domain.ExpandedTerm, error) {
	literals := literalThemeMatches(e.lexicon, query)

	embedText := chooseEmbedText(query, literals)
	queryVector, err := e.embedder.EmbedQuery(ctx, embedText)
	if err != nil {
		// Model unavailability degrades to the legacy unranked expansion;
		// it must never abort the query.
		e.logger.Warn("theme_expansion_embed_failed",
			"error", err,
			"fallback", "legacy_expansion",
		)
		return e.legacy.Expand(ctx, query)
	}

	if dim := e.embeddings.Dimension(); dim > 0 && len(queryVector) != dim {
		return nil, domain.WrapErrorf(domain.ErrDimensionMismatch, "expand query terms",
			"query embedding has %d dimensions, theme store expects %d", len(queryVector), dim)
	}

	keywordVectors, err := e.embeddings.KeywordVectors(ctx)
	if err != nil {
		e.logger.Warn("theme_embedding_store_unavailable",
			"error", err,
			"fallback", "legacy_expansion",
		)
		return e.legacy.Expand(ctx, query)
	}

	literalSet := make(map[string]struct{}, len(literals))
	for _, term := range literals {
		literalSet[term] = struct{}{}
	}

	terms := make([]domain.ExpandedTerm, 0, len(literals)+8)
	for keyword, vector := range keywordVectors {
		score := cosineSimilarity(queryVector, vector)
		_, isLiteral := literalSet[keyword]
		if score < e.threshold && !isLiteral {
			continue
		}
		if isLiteral {
			delete(literalSet, keyword)
		}
		terms = append(terms, domain.ExpandedTerm{Term: keyword, Score: score})
	}
	// Literal matches with no stored embedding still participate at full
	// weight; they were present verbatim in the query.
	for term := range literalSet {
		terms = append(terms, domain.ExpandedTerm{Term: term, Score: 1.0})
	}

	sortTermsDescending(terms)
	return terms, nil
}

// LegacyExpansion is the unranked baseline: literal and lemma lexicon
// matches at uniform weight, no embedding involved. Preserved as a
// regression baseline and as the fallback when embedding fails.
type LegacyExpansion struct {
	lexicon ports.ThemeLexicon
}

func NewLegacyExpansion(lexicon ports.ThemeLexicon) *LegacyExpansion {
	return &LegacyExpansion{lexicon: lexicon}
}

func (e *LegacyExpansion) Expand(_ context.Context, query string) ([]domain.ExpandedTerm, error) {
	matches := literalThemeMatches(e.lexicon, query)
	terms := make([]domain.ExpandedTerm, 0, len(matches))
	for _, term := range matches {
		terms = append(terms, domain.ExpandedTerm{Term: term, Score: 1.0})
	}
	sortTermsDescending(terms)
	return terms, nil
}

// literalThemeMatches finds lexicon keywords present in the query via
// lemma-aware token match or, for multiword keywords, substring match.
func literalThemeMatches(lexicon ports.ThemeLexicon, query string) []string {
	lowered := strings.ToLower(query)
	lemmas := lemmaSet(tokenize(query))

	matches := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, keyword := range lexicon.Keywords() {
		kw := strings.ToLower(keyword)
		if _, dup := seen[kw]; dup {
			continue
		}
		if keywordMatches(kw, lowered, lemmas) {
			seen[kw] = struct{}{}
			matches = append(matches, kw)
		}
	}
	sort.Strings(matches)
	return matches
}

// chooseEmbedText picks what to embed, deterministically: literal keywords
// if any were found, otherwise the stopword-stripped query, otherwise the
// raw query.
func chooseEmbedText(query string, literals []string) string {
	if len(literals) > 0 {
		return strings.Join(literals, " ")
	}
	if stripped := stripStopwords(query); stripped != "" {
		return stripped
	}
	return query
}

func sortTermsDescending(terms []domain.ExpandedTerm) {
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Term < terms[j].Term
	})
}
