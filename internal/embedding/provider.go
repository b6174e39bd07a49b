// Package embedding maps text to fixed-dimension unit vectors.
//
// Supported providers:
//   - gemini: Google Gemini embedContent API. Requires GEMINI_API_KEY.
//   - openai-compatible: Any server exposing OpenAI-compatible /v1/embeddings
//     (OpenAI itself, llama.cpp, VLLM, LM Studio, proxies).
//   - local: Deterministic hash-based vectors. No network, fully reproducible.
package embedding

import (
	"errors"
	"fmt"
	"math"

	"github.com/memgate-labs/memgate/internal/config"
)

// ErrGatewayToken is returned when a gateway personal token is used where a
// direct provider API key is required. Distinct from generic auth failures so
// callers can explain the misconfiguration precisely.
var ErrGatewayToken = errors.New("credential is a gateway personal token, not a provider API key")

// Provider generates raw embedding vectors from text. Returned vectors may
// not match the store dimension — the Service aligns them.
type Provider interface {
	// Embed returns an embedding vector for normalized text.
	Embed(text string) ([]float32, error)

	// Name returns the provider identifier (e.g. "gemini", "local").
	Name() string

	// Model returns the embedding model name.
	Model() string
}

// NewProvider creates an embedding provider from the given config.
// Explicit provider selection is assumed to have happened at config load.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	if config.IsGatewayToken(cfg.APIKey) {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, ErrGatewayToken)
	}
	switch cfg.Provider {
	case "gemini":
		return newGeminiProvider(cfg)
	case "openai-compatible":
		return newOpenAIProvider(cfg)
	case "", "local":
		return newLocalProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q (supported: gemini, openai-compatible, local)", cfg.Provider)
	}
}

// Align coerces a vector to dims by truncation or zero-padding. The store
// assumes a fixed dimension, so alignment is mandatory for remote providers.
func Align(vec []float32, dims int) []float32 {
	if len(vec) == dims {
		return vec
	}
	out := make([]float32, dims)
	copy(out, vec)
	return out
}

// Normalize scales a vector to unit length in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}

// validateEmbedding checks that a provider returned a usable vector:
// non-empty and not all zeros (which indicates a provider error).
func validateEmbedding(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding returned")
	}
	allZero := true
	for _, v := range vec {
		if math.Float32bits(v) != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("embedding is all zeros (provider returned invalid vector)")
	}
	return nil
}
