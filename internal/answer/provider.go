// Package answer wraps an external generator in strict grounding, with a
// deterministic extractive fallback.
package answer

import (
	"fmt"
	"strings"

	"github.com/memgate-labs/memgate/internal/config"
)

// FallbackAnswer is the fixed string returned when nothing in the sanitized
// context answers the query. It also appears in the remote system prompt so
// a well-behaved model can signal "not in context" explicitly.
const FallbackAnswer = "I could not find that in your saved memory."

// generator is the single interface both provider branches implement.
type generator interface {
	Generate(systemPrompt, userQuery string) (string, error)
	Name() string
}

// newGenerator resolves the configured provider alias to a concrete client.
// Returns (nil, nil) when no provider is configured.
func newGenerator(cfg config.AnswerConfig) (generator, error) {
	provider := config.NormalizeAnswerProvider(cfg.Provider)
	switch provider {
	case "":
		return nil, nil
	case "gemini":
		return newGeminiClient(cfg)
	case "openai-compatible":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown answer provider: %q", cfg.Provider)
	}
}

// resolveProfileURL accepts either a fully-composed proxy URL that already
// contains the profile segment, or a base plus a separate profile id to be
// joined.
func resolveProfileURL(baseURL, profileID string) string {
	base := strings.TrimRight(baseURL, "/")
	if profileID == "" || strings.Contains(base, "/profiles/") {
		return base
	}
	return base + "/profiles/" + profileID
}

// normalizeGeminiURL ensures a Gemini base URL ends in the versioned
// endpoint path the generateContent route hangs off.
func normalizeGeminiURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return "https://generativelanguage.googleapis.com/v1beta"
	}
	if strings.HasSuffix(base, "/v1") || strings.HasSuffix(base, "/v1beta") {
		return base
	}
	return base + "/v1beta"
}

// systemPrompt builds the grounding-enforcing instruction carried to every
// remote provider.
func systemPrompt(systemContext string) string {
	return "You answer questions using ONLY the numbered context lines below. " +
		"Your entire answer must be copied verbatim from one context line — no paraphrasing, " +
		"no combining lines, no outside knowledge. If no line answers the question, reply exactly: " +
		FallbackAnswer + "\n\nContext:\n" + systemContext
}
