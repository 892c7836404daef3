// Package enforce is the enforcement orchestrator. It sequences the
// content filter, budget tracker, and approval workflow behind four
// entry points: input, output, tool, and code-generation enforcement.
// Every entry point returns a uniform Result.
package enforce
