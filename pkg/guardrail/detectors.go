package guardrail

import (
	"fmt"
	"regexp"
)

// Detector policy identifiers. Each ID names a fixed battery of patterns
// with a constant confidence: detectors are binary matchers, so the
// confidence is a property of the pattern family, not of the text.
const (
	PolicyJailbreak       = "jailbreak_detection"
	PolicyPromptInjection = "prompt_injection"
	PolicyPII             = "pii_detection"
	PolicyCredentials     = "credential_detection"
	PolicyUnsafeCode      = "unsafe_code"
	PolicyCryptoMining    = "crypto_mining"
	PolicyDataExfil       = "data_exfiltration"
	PolicyHarmfulContent  = "harmful_content"

	// PolicyLengthLimit is the absolute length check. It is reported as
	// a trigger like pattern policies but is configured through the
	// guardrail length limits, not a detector policy entry.
	PolicyLengthLimit = "length_limit"
)

// detector is one compiled pattern battery.
type detector struct {
	id          string
	confidence  float64
	description string
	patterns    []*regexp.Regexp
}

// detect returns whether any pattern matches and a reason naming the
// first match.
func (d *detector) detect(text string) (bool, string) {
	for _, p := range d.patterns {
		if loc := p.FindStringIndex(text); loc != nil {
			return true, fmt.Sprintf("%s: matched %q", d.description, p.String())
		}
	}
	return false, ""
}

// compileDetectors builds the full detector battery. Patterns are
// compiled once at filter construction.
func compileDetectors() map[string]*detector {
	ds := []*detector{
		{
			id:          PolicyJailbreak,
			confidence:  0.90,
			description: "jailbreak attempt",
			patterns: compileAll(
				// Instruction-override phrasing.
				`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions|prompts|rules|directives)`,
				`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|guidelines)`,
				`(?i)forget\s+(everything|all\s+previous\s+instructions|your\s+(instructions|rules|training))`,
				`(?i)override\s+(your|the)\s+(system|safety|previous)\s+(prompt|instructions|settings)`,
				`(?i)your\s+(new|real|true)\s+instructions\s+(are|follow)`,
				`(?i)do\s+not\s+follow\s+(your|the)\s+(instructions|guidelines|rules)`,
				// Role hijacking.
				`(?i)you\s+are\s+now\s+(a|an|in)\s`,
				`(?i)pretend\s+(to\s+be|you\s+are|you\s+have\s+no)`,
				`(?i)act\s+as\s+(if\s+you\s+(have|had)\s+no|an?\s+(unrestricted|uncensored|unfiltered))`,
				`(?i)\bdeveloper\s+mode\b`,
				`(?i)\bjailbr(eak|oken)\b`,
				`(?i)\bDAN\s+mode\b`,
				`(?i)do\s+anything\s+now`,
				`(?i)no\s+longer\s+(bound|restricted|limited)\s+by`,
				`(?i)without\s+(any\s+)?(restrictions|limitations|filters|censorship)`,
				`(?i)stay\s+in\s+character`,
				`(?i)evil\s+(twin|version|counterpart)`,
				// Hypothetical-scenario exploits.
				`(?i)hypothetically\s*,?\s+(speaking|if\s+you|you\s+could)`,
				`(?i)in\s+a\s+fictional\s+(world|scenario|universe)\s+where`,
				`(?i)for\s+(purely\s+)?(educational|research)\s+purposes\s+only`,
				`(?i)this\s+is\s+(just\s+)?a\s+(test|simulation|thought\s+experiment)`,
				`(?i)answer\s+as\s+(two|both)\s+(ais?|personas|characters)`,
				// Special-token injection markers.
				`<\|im_(start|end)\|>`,
				`<\|(system|user|assistant)\|>`,
				`\[/?INST\]`,
				`<<\/?SYS>>`,
			),
		},
		{
			id:          PolicyPromptInjection,
			confidence:  0.85,
			description: "prompt injection",
			patterns: compileAll(
				`(?i)^\s*system\s*:`,
				`(?i)\bnew\s+instructions?\s*:`,
				`(?i)reveal\s+(your\s+)?(system\s+)?prompt`,
				`(?i)(print|show|output|repeat)\s+(your\s+)?(initial\s+)?(instructions|system\s+prompt)`,
				`(?i)repeat\s+the\s+(text|words|content)\s+above`,
				`(?i)translate\s+.{0,40}\bignor(e|ing)\b`,
				`(?i)###\s*instruction`,
				`(?i)\bimportant\s*:\s*ignore\b`,
				`(?i)when\s+summarizing\s*,?\s+(also|instead)\s`,
				`(?i)end\s+of\s+(user\s+)?(input|prompt)\.\s`,
			),
		},
		{
			id:          PolicyPII,
			confidence:  0.75,
			description: "personally identifiable information",
			patterns: compileAll(
				`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
				`\b\d{3}-\d{2}-\d{4}\b`,
				`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`,
				`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`,
				`\b(?:\d{1,3}\.){3}\d{1,3}\b`,
			),
		},
		{
			id:          PolicyCredentials,
			confidence:  0.95,
			description: "hardcoded credential",
			patterns: compileAll(
				`\bAKIA[0-9A-Z]{16}\b`,
				`\bsk-[A-Za-z0-9]{20,}\b`,
				`\bghp_[A-Za-z0-9]{36}\b`,
				`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`,
				`(?i)\b(api[_-]?key|secret|password|passwd|token)\s*[:=]\s*["'][^"']{8,}["']`,
				`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE\s+KEY-----`,
				`(?i)\bauthorization\s*:\s*bearer\s+[A-Za-z0-9._\-]{20,}`,
			),
		},
		{
			id:          PolicyUnsafeCode,
			confidence:  0.80,
			description: "unsafe code",
			patterns: compileAll(
				`(?i)\brm\s+-[a-z]*rf?\s+[/~]`,
				`(?i)\bdd\s+if=/dev/(zero|random|urandom)\s+of=/dev/`,
				`(?i)\bmkfs(\.[a-z0-9]+)?\s+/dev/`,
				`:\(\)\s*\{\s*:\|\:?&\s*\}\s*;?\s*:`,
				`(?i)\bchmod\s+777\s+/`,
				`(?i)\beval\s*\(\s*(request|input|argv|params)`,
				`(?i)\bos\.system\s*\(`,
				`(?i)subprocess\.[a-z]+\([^)]*shell\s*=\s*True`,
				`(?i)(curl|wget)\s+[^\n|]*\|\s*(ba)?sh\b`,
				`(?i)\bdrop\s+(table|database)\s`,
				`(?i)>\s*/dev/sd[a-z]\b`,
			),
		},
		{
			id:          PolicyCryptoMining,
			confidence:  0.85,
			description: "crypto mining",
			patterns: compileAll(
				`(?i)\bxmrig\b`,
				`(?i)\bminerd\b`,
				`(?i)stratum\+tcp://`,
				`(?i)\bcryptonight\b`,
				`(?i)\bcoinhive\b`,
				`(?i)\bnicehash\b`,
				`(?i)\bmonero\b.{0,40}\bwallet\b`,
				`\b4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`,
			),
		},
		{
			id:          PolicyDataExfil,
			confidence:  0.80,
			description: "data exfiltration",
			patterns: compileAll(
				`(?i)/etc/(passwd|shadow)\b`,
				`(?i)\bcurl\s+[^\n]*(-d|--data|--upload-file)\s+@`,
				`(?i)\bwget\s+[^\n]*--post-file`,
				`(?i)\bnc\s+(-[a-z]*e[a-z]*\s+|[^\n]*\s-e\s)`,
				`(?i)\bscp\s+[^\n]*\s+\S+@\S+:`,
				`(?i)base64\s+[^\n|]*\|\s*curl`,
				`(?i)\bexfiltrat`,
				`(?i)\b\.ssh/id_(rsa|ed25519|ecdsa)\b`,
				`(?i)\b(env|printenv)\s*\|\s*(curl|nc|wget)`,
			),
		},
		{
			id:          PolicyHarmfulContent,
			confidence:  0.85,
			description: "harmful content",
			patterns: compileAll(
				`(?i)how\s+to\s+(make|build|construct)\s+(a\s+)?(bomb|explosive|pipe\s+bomb)`,
				`(?i)synthesi(ze|s)\s+(meth|ricin|sarin|nerve\s+agent)`,
				`(?i)(untraceable|ghost)\s+(gun|firearm|weapon)`,
				`(?i)how\s+to\s+(poison|strangle|dispose\s+of\s+a\s+body)`,
				`(?i)\b(child|minor)\s+(sexual|abuse\s+material)\b`,
				`(?i)(instructions|guide)\s+(for|to)\s+(self[\s-]?harm|suicide)`,
			),
		},
	}

	out := make(map[string]*detector, len(ds))
	for _, d := range ds {
		out[d.id] = d
	}
	return out
}

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}
