package usecase

import (
	"strings"
	"unicode"
)

// Tokenization and lemmatization helpers shared by the classifier and the
// theme reformulator. The lemmatizer is a deliberately small suffix
// stripper; lowercase matching is the documented fallback behavior.

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "say": {}, "tell": {}, "the": {},
	"their": {}, "them": {}, "these": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "with": {},
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// lemma strips common English inflection suffixes. Tokens too short to
// carry a suffix are returned lowercased as-is.
func lemma(token string) string {
	t := strings.ToLower(token)
	switch {
	case len(t) > 4 && strings.HasSuffix(t, "ies"):
		return t[:len(t)-3] + "y"
	case len(t) > 4 && strings.HasSuffix(t, "sses"):
		return t[:len(t)-2]
	case len(t) > 5 && strings.HasSuffix(t, "ing"):
		return t[:len(t)-3]
	case len(t) > 4 && strings.HasSuffix(t, "ed"):
		return t[:len(t)-2]
	case len(t) > 3 && strings.HasSuffix(t, "es"):
		return t[:len(t)-2]
	case len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	default:
		return t
	}
}

func lemmaSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[lemma(token)] = struct{}{}
	}
	return out
}

// stripStopwords returns the query with stopwords removed, preserving
// original token order. Empty output means the query was all stopwords.
func stripStopwords(query string) string {
	tokens := tokenize(query)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := stopwords[token]; ok {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}
