// Package guardrail implements pattern-based content filtering for
// model inputs and outputs.
//
// A Filter runs a fixed battery of detectors (jailbreak, prompt
// injection, PII, credentials, unsafe code, crypto mining, data
// exfiltration, harmful content) over a text blob under a configurable
// policy set, plus an absolute length check. The result is a single
// Verdict whose action is the highest severity among everything that
// triggered.
package guardrail
