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

const (
	geminiMaxRetries = 3
	geminiRetryBase  = 2 * time.Second
)

// GeminiProvider generates embeddings via the Gemini embedContent API.
type GeminiProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	dims       int
}

func newGeminiProvider(cfg config.EmbeddingConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedding provider requires an API key (set GEMINI_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     cfg.APIKey,
		dims:       cfg.Dimensions,
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

type geminiEmbedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed requests an embedding from embedContent, retrying on 429/5xx.
func (p *GeminiProvider) Embed(text string) ([]float32, error) {
	var req geminiEmbedRequest
	req.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	if p.dims > 0 {
		req.OutputDimensionality = p.dims
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * geminiRetryBase
			fmt.Fprintf(os.Stderr, "memgate: gemini embedding failed, retrying in %s... (attempt %d/%d)\n",
				delay, attempt+1, geminiMaxRetries)
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
	return nil, fmt.Errorf("gemini embedding failed after %d attempts: %w", geminiMaxRetries, lastErr)
}

func (p *GeminiProvider) doEmbedRequest(body []byte) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", p.baseURL, p.model, p.apiKey)
	resp, err := p.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, &openaiHTTPError{StatusCode: 0, Message: sanitizeError(err.Error(), p.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &openaiHTTPError{StatusCode: resp.StatusCode, Message: sanitizeError(string(respBody), p.apiKey)}
	}

	var result geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", result.Error.Code, sanitizeError(result.Error.Message, p.apiKey))
	}
	if err := validateEmbedding(result.Embedding.Values); err != nil {
		return nil, err
	}
	return result.Embedding.Values, nil
}
