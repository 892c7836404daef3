package budget

import "veritas-hq/bastion/pkg/config"

// Pricer converts token counts to cost using the configured per-model
// rate table. Lookups fall back to the "default" entry for models not
// in the table.
type Pricer struct {
	table map[string]config.ModelPricing
}

// NewPricer creates a pricer from the configured rate table. A nil or
// empty table gets the built-in defaults so cost caps stay meaningful.
func NewPricer(table map[string]config.ModelPricing) *Pricer {
	if len(table) == 0 {
		table = config.DefaultPricing()
	}
	return &Pricer{table: table}
}

// Estimate prices a call of the given token counts against model's
// rates. Rates are USD per million tokens; the result is in cents.
func (p *Pricer) Estimate(model string, inputTokens, outputTokens int) CostEstimate {
	entry, ok := p.table[model]
	used := model
	if !ok {
		entry = p.table["default"]
		used = "default"
	}

	dollars := float64(inputTokens)/1e6*entry.InputPerMillion +
		float64(outputTokens)/1e6*entry.OutputPerMillion

	return CostEstimate{Cents: dollars * 100, Model: used}
}
