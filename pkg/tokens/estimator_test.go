package tokens

import (
	"strings"
	"testing"
)

func TestEstimateText(t *testing.T) {
	e := NewEstimator(nil)

	tests := []struct {
		name  string
		text  string
		model string
		want  int
	}{
		{"empty", "", "gpt-4", 0},
		{"single char rounds up to one", "x", "gpt-4", 1},
		{"forty chars at four per token", strings.Repeat("a", 40), "gpt-4", 10},
		{"unknown model uses default ratio", strings.Repeat("a", 40), "mystery-model", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.EstimateText(tt.text, tt.model); got != tt.want {
				t.Errorf("EstimateText(%q, %q) = %d, want %d", tt.text, tt.model, got, tt.want)
			}
		})
	}
}

func TestModelFamilyPrefixMatch(t *testing.T) {
	e := NewEstimator(map[string]float64{"claude-3": 2.0, "default": 4.0})

	// "claude-3-5-sonnet" should match the "claude-3" family ratio.
	got := e.EstimateText(strings.Repeat("a", 40), "claude-3-5-sonnet")
	if got != 20 {
		t.Errorf("expected family ratio to apply (20 tokens), got %d", got)
	}
}
