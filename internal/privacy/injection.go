package privacy

import (
	"context"
	"strings"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// Prompt injection patterns — retrieved memory matching these is dropped
// before it reaches the context string. Prevents stored content from
// hijacking the assistant that receives the sanitized context.
var injectionPatterns = []string{
	"ignore previous",
	"ignore all previous",
	"ignore above",
	"disregard previous",
	"disregard all previous",
	"you are now",
	"new instructions",
	"system prompt",
	"<system>",
	"</system>",
}

// promptGuard is the package-level detector instance. Initialized once at
// import time with pattern-matching and statistical detectors, no LLM judge,
// so screening stays sub-millisecond on every retrieved row.
var promptGuard = detector.New(
	detector.WithThreshold(0.6), // stricter than default 0.7 — we're filtering stored memory, not user input
	detector.WithAllDetectors(),
	detector.WithMaxInputLength(4000),
)

// DetectInjection reports whether retrieved text looks like a prompt
// injection attempt. Primary detection is go-promptguard's multi-detector;
// the legacy string list is kept as a fallback.
func DetectInjection(text string) bool {
	if len(text) == 0 {
		return false
	}
	result := promptGuard.Detect(context.Background(), text)
	if !result.Safe {
		return true
	}
	lower := strings.ToLower(text)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
