package config

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Retrieval.Scope != ScopeHybrid {
		t.Errorf("default scope = %q", cfg.Retrieval.Scope)
	}
	if !cfg.StrictMatch() {
		t.Error("strict match should default on")
	}
	if !cfg.ConsentEnabled() {
		t.Error("consent should default on")
	}
	if cfg.Consent.TTLMillis != DefaultTTLMillis {
		t.Errorf("default TTL = %d", cfg.Consent.TTLMillis)
	}
	if cfg.Events.Capacity != 200 {
		t.Errorf("default event capacity = %d", cfg.Events.Capacity)
	}
	if cfg.Answer.Grounding != "excerpt" {
		t.Errorf("default grounding = %q", cfg.Answer.Grounding)
	}
}

func TestValidateCollectsAllDiagnostics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "gemini" // no key
	cfg.Retrieval.Scope = "bogus"
	cfg.Retrieval.TopK = 99
	cfg.Web.Port = 99999

	result := Validate(cfg)
	if result.OK() {
		t.Fatal("invalid config passed validation")
	}
	if len(result.Errors) < 3 {
		t.Errorf("expected every error collected, got %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Errorf("top_k out of range should warn, got %v", result.Warnings)
	}
}

func TestValidateGatewayToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.APIKey = "gw_pat_12345"

	result := Validate(cfg)
	if result.OK() {
		t.Fatal("gateway token accepted as provider key")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "gateway personal token") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a gateway-token error, got %v", result.Errors)
	}
}

func TestValidateGeminiAnswerNeedsProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Answer.Enabled = true
	cfg.Answer.Provider = "google"
	cfg.Answer.APIKey = "real-key"
	cfg.Answer.BaseURL = "https://proxy.example.com"

	result := Validate(cfg)
	if result.OK() {
		t.Fatal("gemini answer provider without profile id should error")
	}

	// A profile embedded in the base URL satisfies the requirement.
	cfg.Answer.BaseURL = "https://proxy.example.com/profiles/p1"
	if result := Validate(cfg); !result.OK() {
		t.Errorf("embedded profile should validate, got %v", result.Errors)
	}

	// So does a standalone profile id.
	cfg.Answer.BaseURL = "https://proxy.example.com"
	cfg.Answer.ProfileID = "p1"
	if result := Validate(cfg); !result.OK() {
		t.Errorf("standalone profile should validate, got %v", result.Errors)
	}
}

func TestValidateTTLFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Consent.TTLMillis = -5
	result := Validate(cfg)
	if !result.OK() {
		t.Fatalf("negative TTL should only warn, got %v", result.Errors)
	}
	if cfg.Consent.TTLMillis != DefaultTTLMillis {
		t.Errorf("TTL not reset to default: %d", cfg.Consent.TTLMillis)
	}
}

func TestProviderInference(t *testing.T) {
	t.Run("gemini key wins", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("MEMGATE_EMBED_PROVIDER", "")
		t.Setenv("MEMGATE_EMBED_API_KEY", "")

		cfg := DefaultConfig()
		applyEnv(cfg)
		if cfg.Embedding.Provider != "gemini" {
			t.Errorf("inferred provider = %q, want gemini", cfg.Embedding.Provider)
		}
		if cfg.Embedding.APIKey != "g-key" {
			t.Errorf("key not adopted: %q", cfg.Embedding.APIKey)
		}
	})

	t.Run("openai key second", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "o-key")
		t.Setenv("MEMGATE_EMBED_PROVIDER", "")
		t.Setenv("MEMGATE_EMBED_API_KEY", "")

		cfg := DefaultConfig()
		applyEnv(cfg)
		if cfg.Embedding.Provider != "openai-compatible" {
			t.Errorf("inferred provider = %q", cfg.Embedding.Provider)
		}
	})

	t.Run("no keys means local", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("MEMGATE_EMBED_PROVIDER", "")
		t.Setenv("MEMGATE_EMBED_API_KEY", "")

		cfg := DefaultConfig()
		applyEnv(cfg)
		if cfg.Embedding.Provider != "local" {
			t.Errorf("inferred provider = %q, want local", cfg.Embedding.Provider)
		}
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("MEMGATE_EMBED_PROVIDER", "local")

		cfg := DefaultConfig()
		applyEnv(cfg)
		if cfg.Embedding.Provider != "local" {
			t.Errorf("explicit provider overridden: %q", cfg.Embedding.Provider)
		}
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEMGATE_QUERY_SCOPE", "facts_only")
	t.Setenv("MEMGATE_STRICT_MATCH", "off")
	t.Setenv("MEMGATE_TOP_K", "3")
	t.Setenv("MEMGATE_CONSENT_TTL_MS", "1000")
	t.Setenv("MEMGATE_EVENT_CAPACITY", "50")

	cfg := DefaultConfig()
	applyEnv(cfg)

	if cfg.Retrieval.Scope != ScopeFactsOnly {
		t.Errorf("scope = %q", cfg.Retrieval.Scope)
	}
	if cfg.StrictMatch() {
		t.Error("strict match should be off")
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Consent.TTLMillis != 1000 {
		t.Errorf("ttl = %d", cfg.Consent.TTLMillis)
	}
	if cfg.Events.Capacity != 50 {
		t.Errorf("capacity = %d", cfg.Events.Capacity)
	}
}

func TestIsGatewayToken(t *testing.T) {
	if !IsGatewayToken("gw_pat_abc") {
		t.Error("gateway token not detected")
	}
	if IsGatewayToken("sk-direct-key") {
		t.Error("direct key flagged as gateway token")
	}
}
