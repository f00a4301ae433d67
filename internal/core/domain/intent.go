package domain

// Intent is the coarse query category driving retrieval strategy.
type Intent string

const (
	IntentFactual    Intent = "factual"
	IntentThematic   Intent = "thematic"
	IntentGenerative Intent = "generative"
)

// MinConfidence is the floor every classification confidence is clamped to.
const MinConfidence = 0.1

// IntentScore is one intent's raw pattern-match evidence.
type IntentScore struct {
	Intent       Intent   `json:"intent"`
	PatternScore float64  `json:"pattern_score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// DecisionTrace explains how a classification was reached: the per-intent
// pattern scores, the ambiguity penalty derived from the top-two gap, and
// whether the low-confidence fallback fired.
type DecisionTrace struct {
	Scores           []IntentScore `json:"scores"`
	TopScore         float64       `json:"top_score"`
	RunnerUpScore    float64       `json:"runner_up_score"`
	AmbiguityPenalty float64       `json:"ambiguity_penalty"`
	UsedFallback     bool          `json:"used_fallback"`
	TieBreakApplied  bool          `json:"tie_break_applied"`
}

// IntentResult is the immutable outcome of classifying one query.
type IntentResult struct {
	Intent         Intent        `json:"intent"`
	Confidence     float64       `json:"confidence"`
	MatchedTerms   []string      `json:"matched_terms"`
	ScopedEntities []string      `json:"scoped_entities"`
	Trace          DecisionTrace `json:"decision_trace"`
}
