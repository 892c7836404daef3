package tokens

import (
	"strings"
	"sync"
)

// Estimator implements character-based token estimation.
// It uses model-specific characters-per-token ratios; this stays within
// a few percent of real tokenizer counts and runs in microseconds, which
// is all a pre-flight budget check needs.
type Estimator struct {
	ratios map[string]float64
	mu     sync.RWMutex
}

// DefaultRatios returns the built-in characters-per-token table.
func DefaultRatios() map[string]float64 {
	return map[string]float64{
		"gpt-4o":   3.8,
		"gpt-4":    4.0,
		"claude-3": 3.5,
		"default":  4.0,
	}
}

// NewEstimator creates an estimator with the given ratio table.
// A nil table uses DefaultRatios.
func NewEstimator(ratios map[string]float64) *Estimator {
	if ratios == nil {
		ratios = DefaultRatios()
	}
	return &Estimator{ratios: ratios}
}

// EstimateText estimates the token count for a text string under the
// given model. Non-empty text always estimates at least one token.
func (e *Estimator) EstimateText(text string, model string) int {
	if text == "" {
		return 0
	}

	charsPerToken := e.charsPerToken(model)
	tokens := float64(len(text)) / charsPerToken
	if tokens < 1.0 {
		tokens = 1.0
	}
	return int(tokens + 0.5)
}

// charsPerToken returns the ratio for a model, trying exact match, then
// model-family prefix match, then the default entry.
func (e *Estimator) charsPerToken(model string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if ratio, ok := e.ratios[model]; ok {
		return ratio
	}
	for pattern, ratio := range e.ratios {
		if pattern != "default" && strings.HasPrefix(model, pattern) {
			return ratio
		}
	}
	if ratio, ok := e.ratios["default"]; ok {
		return ratio
	}
	return 4.0
}
