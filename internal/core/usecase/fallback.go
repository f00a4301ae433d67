package usecase

import (
	"log/slog"
	"sort"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// FallbackEngine standardizes threshold filtering with min/max return
// guarantees: callers always receive usable context when any chunks exist,
// trading precision for availability.
type FallbackEngine struct {
	logger *slog.Logger
}

func NewFallbackEngine(logger *slog.Logger) *FallbackEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEngine{logger: logger}
}

// Apply partitions chunks by the score threshold. Enough passing chunks:
// return the top maxReturn of them. Too few: top up from the full set until
// minReturn is reached, tagging below-threshold entries fallback_relaxed.
// Empty input always yields an empty slice, never an error — the one
// outcome callers should treat as "no results".
func (e *FallbackEngine) Apply(
	chunks []domain.ScoredChunk,
	threshold float64,
	minReturn, maxReturn int,
) []domain.ScoredChunk {
	start := time.Now()
	if len(chunks) == 0 {
		return []domain.ScoredChunk{}
	}

	sorted := make([]domain.ScoredChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	// A non-positive threshold means no filtering policy at all.
	wildcard := threshold <= 0

	passing := 0
	for _, chunk := range sorted {
		if chunk.Score >= threshold {
			passing++
		}
	}

	var out []domain.ScoredChunk
	relaxed := 0
	switch {
	case wildcard:
		out = tagAll(capChunks(sorted, maxReturn), domain.ReasonWildcard)
	case passing >= minReturn:
		out = tagAll(capChunks(sorted[:passing], maxReturn), domain.ReasonPassedThreshold)
	default:
		take := minReturn
		if take > len(sorted) {
			take = len(sorted)
		}
		out = make([]domain.ScoredChunk, take)
		copy(out, sorted[:take])
		for i := range out {
			if out[i].Score >= threshold {
				out[i].FilteringReason = domain.ReasonPassedThreshold
			} else {
				out[i].FilteringReason = domain.ReasonFallbackRelaxed
				relaxed++
			}
		}
	}

	e.logger.Info("retrieval_fallback_decision",
		"input_chunks", len(chunks),
		"passed_threshold", passing,
		"relaxed", relaxed,
		"returned", len(out),
		"score_threshold", threshold,
		"min_return", minReturn,
		"max_return", maxReturn,
		"top_score", sorted[0].Score,
		"bottom_score", sorted[len(sorted)-1].Score,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return out
}

func capChunks(chunks []domain.ScoredChunk, maxReturn int) []domain.ScoredChunk {
	if maxReturn <= 0 || len(chunks) <= maxReturn {
		return chunks
	}
	return chunks[:maxReturn]
}

func tagAll(chunks []domain.ScoredChunk, reason domain.FilteringReason) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		out[i].FilteringReason = reason
	}
	return out
}
