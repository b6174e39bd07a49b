package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/memgate-labs/memgate/internal/config"
)

// Retry settings for openai-compatible HTTP requests.
const (
	openaiMaxRetries = 3
	openaiRetryBase  = 2 * time.Second // delays: 0s, 2s, 4s
)

// OpenAIProvider generates embeddings via the OpenAI API or any
// OpenAI-compatible endpoint (llama.cpp, VLLM, LM Studio, proxies).
type OpenAIProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

func newOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	isOpenAI := baseURL == "https://api.openai.com"
	if isOpenAI && cfg.APIKey == "" {
		return nil, fmt.Errorf("openai-compatible embedding provider requires an API key for api.openai.com")
	}

	model := cfg.Model
	if model == "" {
		if isOpenAI {
			model = "text-embedding-3-small"
		} else {
			return nil, fmt.Errorf("openai-compatible provider requires a model name (set MEMGATE_EMBED_MODEL)")
		}
	}

	return &OpenAIProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
		apiKey:     cfg.APIKey,
	}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai-compatible" }
func (p *OpenAIProvider) Model() string { return p.model }

type openaiEmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// openaiHTTPError distinguishes retryable errors from non-retryable ones.
type openaiHTTPError struct {
	StatusCode int
	Message    string // sanitized, never contains the API key
}

func (e *openaiHTTPError) Error() string {
	return fmt.Sprintf("openai-compatible endpoint returned %d: %s", e.StatusCode, e.Message)
}

// isRetryable returns true for 429 (rate limit), 5xx, and network errors.
func (e *openaiHTTPError) isRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Embed requests an embedding, retrying on 429/5xx with linear backoff.
func (p *OpenAIProvider) Embed(text string) ([]float32, error) {
	// Most embedding models cap around 8K tokens; truncate defensively.
	if len(text) > 30000 {
		text = text[:30000]
	}

	body, err := json.Marshal(openaiEmbeddingRequest{Input: text, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < openaiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * openaiRetryBase
			fmt.Fprintf(os.Stderr, "memgate: embedding request failed, retrying in %s... (attempt %d/%d)\n",
				delay, attempt+1, openaiMaxRetries)
			time.Sleep(delay)
		}

		result, err := p.doEmbedRequest(body)
		if err == nil {
			return result, nil
		}
		if he, ok := err.(*openaiHTTPError); ok && !he.isRetryable() {
			return nil, he
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", openaiMaxRetries, lastErr)
}

func (p *OpenAIProvider) doEmbedRequest(body []byte) ([]float32, error) {
	req, err := http.NewRequest("POST", p.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &openaiHTTPError{StatusCode: 0, Message: sanitizeError(err.Error(), p.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &openaiHTTPError{StatusCode: resp.StatusCode, Message: sanitizeError(string(respBody), p.apiKey)}
	}

	var result openaiEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("provider error: %s", sanitizeError(result.Error.Message, p.apiKey))
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	if err := validateEmbedding(result.Data[0].Embedding); err != nil {
		return nil, err
	}
	return result.Data[0].Embedding, nil
}

// sanitizeError removes any occurrence of the API key from an error message
// to prevent credential leakage in logs or user-facing output.
func sanitizeError(msg, apiKey string) string {
	if apiKey == "" {
		return msg
	}
	return strings.ReplaceAll(msg, apiKey, "[REDACTED]")
}
