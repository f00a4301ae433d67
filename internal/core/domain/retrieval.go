package domain

// RetrievalConfig carries the retrieval parameters derived from a
// classification. Immutable once constructed by the router.
type RetrievalConfig struct {
	TopK           int          `json:"top_k"`
	ScoreThreshold float64      `json:"score_threshold"`
	MinReturn      int          `json:"min_return"`
	MaxReturn      int          `json:"max_return"`
	Filter         SearchFilter `json:"filter"`
}

// Validate rejects parameter combinations that would silently produce
// degenerate retrievals.
func (c RetrievalConfig) Validate() error {
	if c.TopK <= 0 {
		return WrapErrorf(ErrInvalidInput, "validate retrieval config", "top_k must be positive, got %d", c.TopK)
	}
	if c.MinReturn < 0 || c.MaxReturn < 0 {
		return WrapErrorf(ErrInvalidInput, "validate retrieval config", "min/max return must be non-negative")
	}
	if c.MaxReturn > 0 && c.MinReturn > c.MaxReturn {
		return WrapErrorf(ErrInvalidInput, "validate retrieval config", "min_return %d exceeds max_return %d", c.MinReturn, c.MaxReturn)
	}
	return nil
}

// ExpandedTerm is one theme-expansion keyword with its similarity to the
// query embedding.
type ExpandedTerm struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// RouteResult is the top-level routing outcome handed to answer
// construction: the classification, the retrieval parameters used, and the
// filtered chunk list. An empty Chunks slice with a nil error is a genuine
// "no evidence" outcome, not a failure.
type RouteResult struct {
	Intent    IntentResult    `json:"intent"`
	Config    RetrievalConfig `json:"retrieval_config"`
	Expansion []ExpandedTerm  `json:"expansion,omitempty"`
	Facts     []Laureate      `json:"facts,omitempty"`
	Chunks    []ScoredChunk   `json:"chunks"`
}

// Citations projects the routed chunks into the display-safe form.
func (r RouteResult) Citations() []Citation {
	out := make([]Citation, 0, len(r.Chunks))
	for _, chunk := range r.Chunks {
		out = append(out, chunk.Citation())
	}
	return out
}

// Answer is the final user-facing payload.
type Answer struct {
	Text    string     `json:"text"`
	Sources []Citation `json:"sources"`
}
