package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/memgate-labs/memgate/internal/config"
)

func TestOpenAIProviderEmbed(t *testing.T) {
	var gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req openaiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotModel = req.Model
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0}},
		})
	}))
	defer server.Close()

	p, err := newOpenAIProvider(config.EmbeddingConfig{
		Provider: "openai-compatible",
		BaseURL:  server.URL,
		Model:    "test-model",
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatal(err)
	}

	vec, err := p.Embed("hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("got %d dims", len(vec))
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotModel != "test-model" {
		t.Errorf("model = %q", gotModel)
	}
}

func TestOpenAIProviderClientErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	p, err := newOpenAIProvider(config.EmbeddingConfig{
		Provider: "openai-compatible",
		BaseURL:  server.URL,
		Model:    "m",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed("x"); err == nil {
		t.Fatal("expected error on 400")
	}
	if calls != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls)
	}
}

func TestOpenAIProviderRequiresModel(t *testing.T) {
	_, err := newOpenAIProvider(config.EmbeddingConfig{
		Provider: "openai-compatible",
		BaseURL:  "http://localhost:9999",
	})
	if err == nil {
		t.Error("custom endpoint without a model should error")
	}
}

func TestSanitizeError(t *testing.T) {
	if got := sanitizeError("unauthorized: sk-secret123", "sk-secret123"); got != "unauthorized: [REDACTED]" {
		t.Errorf("sanitizeError = %q", got)
	}
	if got := sanitizeError("plain message", ""); got != "plain message" {
		t.Errorf("sanitizeError with empty key = %q", got)
	}
}

func TestGeminiProviderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-embedding-004:embedContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key query param = %q", r.URL.Query().Get("key"))
		}
		var req geminiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.OutputDimensionality != 4 {
			t.Errorf("outputDimensionality = %d, want 4", req.OutputDimensionality)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{1, 2, 3, 4}},
		})
	}))
	defer server.Close()

	p, err := newGeminiProvider(config.EmbeddingConfig{
		Provider:   "gemini",
		APIKey:     "g-key",
		BaseURL:    server.URL,
		Dimensions: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := p.Embed("hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("got %d dims", len(vec))
	}
}

func TestGeminiProviderRequiresKey(t *testing.T) {
	if _, err := newGeminiProvider(config.EmbeddingConfig{Provider: "gemini"}); err == nil {
		t.Error("gemini without key should error")
	}
}

func TestServiceAlignsRemoteVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Return a 3-dim vector regardless of what the store expects.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{3, 4, 0}, "index": 0}},
		})
	}))
	defer server.Close()

	svc, err := NewService(config.EmbeddingConfig{
		Provider:   "openai-compatible",
		BaseURL:    server.URL,
		Model:      "m",
		Dimensions: 5,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	vec, err := svc.Embed("align me")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 5 {
		t.Fatalf("aligned dims = %d, want 5", len(vec))
	}
	if vec[3] != 0 || vec[4] != 0 {
		t.Error("padding should be zero")
	}
	// 3-4-5 triangle: normalized to 0.6, 0.8.
	if vec[0] < 0.59 || vec[0] > 0.61 {
		t.Errorf("vector not unit-normalized: %v", vec)
	}
}
