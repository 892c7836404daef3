package guardrail

import "veritas-hq/bastion/pkg/config"

// DefaultInputPolicies returns the default detector policy set for text
// sent to the model.
func DefaultInputPolicies() []Policy {
	return []Policy{
		{ID: PolicyJailbreak, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyPromptInjection, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyPII, Enabled: true, Action: ActionWarn, Threshold: 0.7},
		{ID: PolicyCredentials, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyUnsafeCode, Enabled: true, Action: ActionWarn, Threshold: 0.7},
		{ID: PolicyCryptoMining, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyDataExfil, Enabled: true, Action: ActionWarn, Threshold: 0.7},
		{ID: PolicyHarmfulContent, Enabled: true, Action: ActionBlock, Threshold: 0.7},
	}
}

// DefaultOutputPolicies returns the default detector policy set for text
// produced by the model. Output is judged more strictly on leakage
// (credentials, exfiltration) and more leniently on injection phrasing,
// which is only meaningful on the way in.
func DefaultOutputPolicies() []Policy {
	return []Policy{
		{ID: PolicyJailbreak, Enabled: true, Action: ActionLog, Threshold: 0.7},
		{ID: PolicyPromptInjection, Enabled: false, Action: ActionLog, Threshold: 0.7},
		{ID: PolicyPII, Enabled: true, Action: ActionWarn, Threshold: 0.7},
		{ID: PolicyCredentials, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyUnsafeCode, Enabled: true, Action: ActionWarn, Threshold: 0.7},
		{ID: PolicyCryptoMining, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyDataExfil, Enabled: true, Action: ActionBlock, Threshold: 0.7},
		{ID: PolicyHarmfulContent, Enabled: true, Action: ActionBlock, Threshold: 0.7},
	}
}

// ApplyOverrides returns a copy of policies with configuration overrides
// applied. Overrides are matched by policy ID; unknown IDs are ignored
// (they may belong to a newer detector battery than this binary).
func ApplyOverrides(policies []Policy, overrides []config.PolicyOverride) []Policy {
	if len(overrides) == 0 {
		return policies
	}

	byID := make(map[string]config.PolicyOverride, len(overrides))
	for _, o := range overrides {
		byID[o.ID] = o
	}

	out := make([]Policy, len(policies))
	copy(out, policies)
	for i := range out {
		o, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		if o.Enabled != nil {
			out[i].Enabled = *o.Enabled
		}
		if o.Action != "" {
			out[i].Action = Action(o.Action)
		}
		if o.Threshold != nil {
			out[i].Threshold = *o.Threshold
		}
	}
	return out
}
