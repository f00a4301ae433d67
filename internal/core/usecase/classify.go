package usecase

import (
	"sort"
	"strings"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// classifiedIntents fixes evaluation order so classification is fully
// deterministic regardless of config map iteration.
var classifiedIntents = []domain.Intent{
	domain.IntentFactual,
	domain.IntentThematic,
	domain.IntentGenerative,
}

// intentPrecedence breaks ties within epsilon: generative > thematic >
// factual. Domain policy, applied only after weighted scoring.
var intentPrecedence = map[domain.Intent]int{
	domain.IntentGenerative: 3,
	domain.IntentThematic:   2,
	domain.IntentFactual:    1,
}

// Classifier assigns queries to an intent with an ambiguity-penalized
// confidence score and detects laureate-name scoping entities.
type Classifier struct {
	cfg         IntentConfig
	laureates   []domain.Laureate
	maxEntities int
}

func NewClassifier(cfg IntentConfig, laureates []domain.Laureate, maxEntities int) *Classifier {
	if maxEntities <= 0 {
		maxEntities = 3
	}
	return &Classifier{
		cfg:         cfg,
		laureates:   laureates,
		maxEntities: maxEntities,
	}
}

// Classify never fails: empty input and unrecognizable queries fall back to
// the default intent at minimum confidence.
func (c *Classifier) Classify(query string) domain.IntentResult {
	trimmed := strings.TrimSpace(query)
	entities := c.scopeEntities(trimmed)

	if trimmed == "" {
		return domain.IntentResult{
			Intent:         c.cfg.DefaultIntent,
			Confidence:     domain.MinConfidence,
			MatchedTerms:   []string{},
			ScopedEntities: entities,
			Trace:          domain.DecisionTrace{UsedFallback: true},
		}
	}

	lowered := strings.ToLower(trimmed)
	lemmas := lemmaSet(tokenize(trimmed))

	scores := make([]domain.IntentScore, 0, len(classifiedIntents))
	for _, intent := range classifiedIntents {
		weights, ok := c.cfg.Intents[intent]
		if !ok {
			scores = append(scores, domain.IntentScore{Intent: intent})
			continue
		}
		scores = append(scores, scoreIntent(intent, weights, lowered, lemmas))
	}

	top, runnerUp, tieBreak := pickTopIntent(scores, c.cfg.TieEpsilon)
	trace := domain.DecisionTrace{
		Scores:          scores,
		TopScore:        top.PatternScore,
		RunnerUpScore:   runnerUp,
		TieBreakApplied: tieBreak,
	}

	if top.PatternScore <= 0 {
		trace.UsedFallback = true
		return domain.IntentResult{
			Intent:         c.cfg.DefaultIntent,
			Confidence:     domain.MinConfidence,
			MatchedTerms:   []string{},
			ScopedEntities: entities,
			Trace:          trace,
		}
	}

	penalty := c.ambiguityPenalty(top.PatternScore, runnerUp)
	trace.AmbiguityPenalty = penalty

	confidence := clamp(top.PatternScore*(1-penalty), domain.MinConfidence, 1.0)
	if confidence < c.cfg.MinConfidence {
		trace.UsedFallback = true
		return domain.IntentResult{
			Intent:         c.cfg.DefaultIntent,
			Confidence:     domain.MinConfidence,
			MatchedTerms:   []string{},
			ScopedEntities: entities,
			Trace:          trace,
		}
	}

	matched := append([]string(nil), top.MatchedTerms...)
	if matched == nil {
		matched = []string{}
	}
	return domain.IntentResult{
		Intent:         top.Intent,
		Confidence:     confidence,
		MatchedTerms:   matched,
		ScopedEntities: entities,
		Trace:          trace,
	}
}

func scoreIntent(intent domain.Intent, weights IntentWeights, loweredQuery string, lemmas map[string]struct{}) domain.IntentScore {
	score := 0.0
	matched := make([]string, 0, 4)

	for keyword, weight := range weights.Keywords {
		if keywordMatches(keyword, loweredQuery, lemmas) {
			score += weight
			matched = append(matched, keyword)
		}
	}
	for phrase, weight := range weights.Phrases {
		if strings.Contains(loweredQuery, strings.ToLower(phrase)) {
			score += weight
			matched = append(matched, phrase)
		}
	}

	sort.Strings(matched)
	return domain.IntentScore{
		Intent:       intent,
		PatternScore: score,
		MatchedTerms: matched,
	}
}

func keywordMatches(keyword, loweredQuery string, lemmas map[string]struct{}) bool {
	kw := strings.ToLower(keyword)
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(loweredQuery, kw)
	}
	if _, ok := lemmas[lemma(kw)]; ok {
		return true
	}
	return false
}

// pickTopIntent returns the winning intent score and the runner-up pattern
// score. When the gap between contenders falls within epsilon, precedence
// decides; a clearly higher-scoring intent is never overridden.
func pickTopIntent(scores []domain.IntentScore, epsilon float64) (domain.IntentScore, float64, bool) {
	top := scores[0]
	for _, s := range scores[1:] {
		switch {
		case s.PatternScore > top.PatternScore+epsilon:
			top = s
		case s.PatternScore >= top.PatternScore-epsilon &&
			intentPrecedence[s.Intent] > intentPrecedence[top.Intent]:
			top = s
		}
	}

	runnerUp := 0.0
	tieBreak := false
	for _, s := range scores {
		if s.Intent == top.Intent {
			continue
		}
		if s.PatternScore > runnerUp {
			runnerUp = s.PatternScore
		}
		if s.PatternScore >= top.PatternScore-epsilon && s.PatternScore > 0 {
			tieBreak = true
		}
	}
	return top, runnerUp, tieBreak
}

// ambiguityPenalty grows as the gap between the top two intents shrinks:
// penalty = weight * (1 - gap/top), clamped to [0, weight].
func (c *Classifier) ambiguityPenalty(top, runnerUp float64) float64 {
	if top <= 0 || runnerUp <= 0 {
		return 0
	}
	gap := top - runnerUp
	if gap < 0 {
		gap = 0
	}
	penalty := c.cfg.AmbiguityWeight * (1 - gap/top)
	return clamp(penalty, 0, c.cfg.AmbiguityWeight)
}

// scopeEntities scans for known laureate names: exact full-name matches
// first, then last-name matches, preserving first-occurrence order and
// de-duplicating, capped at the configured maximum.
func (c *Classifier) scopeEntities(query string) []string {
	found := []string{}
	if query == "" || len(c.laureates) == 0 {
		return found
	}

	lowered := strings.ToLower(query)
	type hit struct {
		name string
		pos  int
	}
	hits := make([]hit, 0, 4)
	seen := make(map[string]struct{}, 4)

	for _, laureate := range c.laureates {
		full := strings.ToLower(laureate.FullName)
		if full == "" {
			continue
		}
		if pos := strings.Index(lowered, full); pos >= 0 {
			if _, dup := seen[laureate.FullName]; !dup {
				seen[laureate.FullName] = struct{}{}
				hits = append(hits, hit{name: laureate.FullName, pos: pos})
			}
		}
	}
	for _, laureate := range c.laureates {
		if _, dup := seen[laureate.FullName]; dup {
			continue
		}
		last := strings.ToLower(laureate.LastName)
		if last == "" {
			last = strings.ToLower(domain.SurnameOf(laureate.FullName))
		}
		if last == "" {
			continue
		}
		if pos := wordIndex(lowered, last); pos >= 0 {
			seen[laureate.FullName] = struct{}{}
			hits = append(hits, hit{name: laureate.FullName, pos: pos})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, h := range hits {
		if len(found) == c.maxEntities {
			break
		}
		found = append(found, h.name)
	}
	return found
}

// wordIndex finds needle in haystack on word boundaries only, so a surname
// like "Eliot" does not fire inside an unrelated longer word.
func wordIndex(haystack, needle string) int {
	offset := 0
	for {
		pos := strings.Index(haystack[offset:], needle)
		if pos < 0 {
			return -1
		}
		abs := offset + pos
		beforeOK := abs == 0 || !isWordRune(rune(haystack[abs-1]))
		afterIdx := abs + len(needle)
		afterOK := afterIdx >= len(haystack) || !isWordRune(rune(haystack[afterIdx]))
		if beforeOK && afterOK {
			return abs
		}
		offset = abs + 1
	}
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
