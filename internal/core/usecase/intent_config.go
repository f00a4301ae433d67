package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// IntentWeights holds one intent's keyword and phrase evidence weights.
type IntentWeights struct {
	Keywords map[string]float64 `yaml:"keywords"`
	Phrases  map[string]float64 `yaml:"phrases"`
}

// IntentConfig is the strongly-typed classifier configuration. Validated at
// load so scoring never has to defend against malformed weights.
type IntentConfig struct {
	Intents       map[domain.Intent]IntentWeights `yaml:"intents"`
	DefaultIntent domain.Intent                   `yaml:"default_intent"`
	MinConfidence float64                         `yaml:"min_confidence"`

	// AmbiguityWeight scales the penalty applied when the top two intent
	// scores are close. TieEpsilon bounds the score gap treated as a tie.
	AmbiguityWeight float64 `yaml:"ambiguity_weight"`
	TieEpsilon      float64 `yaml:"tie_epsilon"`
}

// DefaultIntentConfig mirrors the tuned weights shipped with the service.
func DefaultIntentConfig() IntentConfig {
	return IntentConfig{
		Intents: map[domain.Intent]IntentWeights{
			domain.IntentFactual: {
				Keywords: map[string]float64{
					"when": 0.6, "year": 0.6, "where": 0.5, "who": 0.5,
					"born": 0.5, "win": 0.6, "won": 0.6, "awarded": 0.6,
					"country": 0.4, "age": 0.4, "first": 0.3, "many": 0.3,
				},
				Phrases: map[string]float64{
					"when did": 0.7, "what year": 0.7, "how old": 0.6,
					"how many": 0.5, "where was": 0.6,
				},
			},
			domain.IntentThematic: {
				Keywords: map[string]float64{
					"theme": 0.7, "themes": 0.7, "compare": 0.6, "about": 0.3,
					"say": 0.4, "discuss": 0.5, "explore": 0.5, "view": 0.4,
					"justice": 0.4, "memory": 0.4, "exile": 0.4, "identity": 0.4,
				},
				Phrases: map[string]float64{
					"what did": 0.5, "what are": 0.4, "how did": 0.4,
					"talk about": 0.5, "say about": 0.6, "write about": 0.5,
				},
			},
			domain.IntentGenerative: {
				Keywords: map[string]float64{
					"write": 0.7, "compose": 0.7, "create": 0.6, "draft": 0.6,
					"imagine": 0.6, "generate": 0.7, "pretend": 0.6,
				},
				Phrases: map[string]float64{
					"in the style of": 0.9, "write a": 0.8, "compose a": 0.8,
					"as if": 0.5,
				},
			},
		},
		DefaultIntent:   domain.IntentFactual,
		MinConfidence:   0.3,
		AmbiguityWeight: 0.5,
		TieEpsilon:      1e-9,
	}
}

// LoadIntentConfig reads a YAML intent configuration, filling unset scalar
// fields from the defaults and validating the result.
func LoadIntentConfig(path string) (IntentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return IntentConfig{}, fmt.Errorf("read intent config: %w", err)
	}

	cfg := IntentConfig{}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return IntentConfig{}, fmt.Errorf("parse intent config: %w", err)
	}

	def := DefaultIntentConfig()
	if cfg.DefaultIntent == "" {
		cfg.DefaultIntent = def.DefaultIntent
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.AmbiguityWeight <= 0 {
		cfg.AmbiguityWeight = def.AmbiguityWeight
	}
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = def.TieEpsilon
	}

	if err := cfg.Validate(); err != nil {
		return IntentConfig{}, err
	}
	return cfg, nil
}

// Validate rejects unknown intents and out-of-range weights up front.
func (c IntentConfig) Validate() error {
	if len(c.Intents) == 0 {
		return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config", "no intents configured")
	}
	for intent, weights := range c.Intents {
		switch intent {
		case domain.IntentFactual, domain.IntentThematic, domain.IntentGenerative:
		default:
			return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config", "unknown intent %q", intent)
		}
		for term, w := range weights.Keywords {
			if term == "" || w <= 0 || w > 1 {
				return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config",
					"keyword %q for intent %q has weight %v outside (0,1]", term, intent, w)
			}
		}
		for phrase, w := range weights.Phrases {
			if phrase == "" || w <= 0 || w > 1 {
				return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config",
					"phrase %q for intent %q has weight %v outside (0,1]", phrase, intent, w)
			}
		}
	}
	switch c.DefaultIntent {
	case domain.IntentFactual, domain.IntentThematic, domain.IntentGenerative:
	default:
		return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config", "unknown default intent %q", c.DefaultIntent)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return domain.WrapErrorf(domain.ErrInvalidInput, "validate intent config", "min_confidence %v outside [0,1]", c.MinConfidence)
	}
	return nil
}
