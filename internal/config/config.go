// Package config provides configuration for the memgate binary.
// Loads from: env vars > .memgate/config.toml > built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Query scope values for retrieval.
const (
	ScopeHybrid        = "hybrid"
	ScopeFactsOnly     = "facts_only"
	ScopeDocumentsOnly = "documents_only"
)

// Clamp bounds applied by the retrieval controller.
const (
	MinTopK           = 1
	MaxTopK           = 10
	MinResultChars    = 120
	MaxResultChars    = 2000
	DefaultTopK       = 5
	DefaultResultChars = 500
)

// Config holds all memgate configuration, loaded from TOML + env.
type Config struct {
	Data      DataConfig      `toml:"data"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Privacy   PrivacyConfig   `toml:"privacy"`
	Consent   ConsentConfig   `toml:"consent"`
	Answer    AnswerConfig    `toml:"answer"`
	Events    EventsConfig    `toml:"events"`
	Web       WebConfig       `toml:"web"`
}

// DataConfig holds on-disk layout settings.
type DataConfig struct {
	Dir string `toml:"dir"` // root for db, caches, snapshots
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`   // "gemini", "openai-compatible", "local", "" = infer from keys
	Model      string `toml:"model"`      // model name (provider-specific default if empty)
	APIKey     string `toml:"api_key"`    // provider API key
	BaseURL    string `toml:"base_url"`   // base URL (provider default if empty)
	Dimensions int    `toml:"dimensions"` // vector dimensions (default 768)
}

// RetrievalConfig holds search tuning parameters.
type RetrievalConfig struct {
	Scope          string `toml:"scope"`            // hybrid (default), facts_only, documents_only
	StrictMatch    *bool  `toml:"strict_match"`     // lexical guardrail (default on)
	TopK           int    `toml:"top_k"`            // clamped to [1, 10]
	MaxResultChars int    `toml:"max_result_chars"` // clamped to [120, 2000]
}

// PrivacyConfig holds redaction settings.
type PrivacyConfig struct {
	Debug bool `toml:"debug"` // include raw pre-redaction context in telemetry
}

// ConsentConfig holds consent gate settings.
type ConsentConfig struct {
	TTLMillis int64 `toml:"ttl_ms"`  // token lifetime (default 5 minutes)
	Enabled   *bool `toml:"enabled"` // consent hook enabled (default on)
}

// AnswerConfig holds answer orchestrator settings.
type AnswerConfig struct {
	Enabled    bool   `toml:"enabled"`     // route sanitized context through a generator
	Extractive bool   `toml:"extractive"`  // deterministic extractive mode, no network
	Grounding  string `toml:"grounding"`   // "excerpt" (default) or "exact"
	Provider   string `toml:"provider"`    // alias, normalized (google->gemini, etc.)
	BaseURL    string `toml:"base_url"`    // proxy base URL, may embed the profile segment
	ProfileID  string `toml:"profile_id"`  // profile id joined to base_url when not embedded
	Model      string `toml:"model"`       // model id
	APIKey     string `toml:"api_key"`     // provider key
}

// EventsConfig holds telemetry settings.
type EventsConfig struct {
	Capacity int `toml:"capacity"` // replay ring size (default 200)
}

// WebConfig holds the local HTTP surface settings.
type WebConfig struct {
	Port int `toml:"port"` // dashboard/health port (default 8787)
}

// DefaultTTLMillis is the default consent token lifetime.
const DefaultTTLMillis = 5 * 60 * 1000

// DefaultConfig returns a Config with all built-in defaults.
func DefaultConfig() *Config {
	on := true
	return &Config{
		Data: DataConfig{Dir: defaultDataDir()},
		Embedding: EmbeddingConfig{
			Dimensions: 768,
		},
		Retrieval: RetrievalConfig{
			Scope:          ScopeHybrid,
			StrictMatch:    &on,
			TopK:           DefaultTopK,
			MaxResultChars: DefaultResultChars,
		},
		Consent: ConsentConfig{
			TTLMillis: DefaultTTLMillis,
			Enabled:   &on,
		},
		Answer: AnswerConfig{
			Grounding: "excerpt",
		},
		Events: EventsConfig{Capacity: 200},
		Web:    WebConfig{Port: 8787},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memgate"
	}
	return filepath.Join(home, ".memgate")
}

// Load merges all configuration sources: defaults < TOML file < env vars.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := findConfigFile()
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// findConfigFile looks for .memgate/config.toml in the working directory,
// then in the data dir. Returns "" if none exists.
func findConfigFile() string {
	if p := os.Getenv("MEMGATE_CONFIG"); p != "" {
		return p
	}
	candidates := []string{
		filepath.Join(".memgate", "config.toml"),
		filepath.Join(defaultDataDir(), "config.toml"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst **bool, key string) {
		if v := os.Getenv(key); v != "" {
			b := parseBool(v)
			*dst = &b
		}
	}

	setStr(&cfg.Data.Dir, "MEMGATE_DATA_DIR")

	setStr(&cfg.Embedding.Provider, "MEMGATE_EMBED_PROVIDER")
	setStr(&cfg.Embedding.Model, "MEMGATE_EMBED_MODEL")
	setStr(&cfg.Embedding.APIKey, "MEMGATE_EMBED_API_KEY")
	setStr(&cfg.Embedding.BaseURL, "MEMGATE_EMBED_BASE_URL")
	setInt(&cfg.Embedding.Dimensions, "MEMGATE_EMBED_DIM")

	// Provider inference: explicit configuration wins; otherwise whichever
	// credential is present decides, falling back to the local provider.
	if cfg.Embedding.Provider == "" {
		switch {
		case cfg.Embedding.APIKey != "":
			cfg.Embedding.Provider = "openai-compatible"
		case os.Getenv("GEMINI_API_KEY") != "":
			cfg.Embedding.Provider = "gemini"
			cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		case os.Getenv("OPENAI_API_KEY") != "":
			cfg.Embedding.Provider = "openai-compatible"
			cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			cfg.Embedding.Provider = "local"
		}
	}
	if cfg.Embedding.Provider == "gemini" && cfg.Embedding.APIKey == "" {
		setStr(&cfg.Embedding.APIKey, "GEMINI_API_KEY")
	}

	setStr(&cfg.Retrieval.Scope, "MEMGATE_QUERY_SCOPE")
	setBool(&cfg.Retrieval.StrictMatch, "MEMGATE_STRICT_MATCH")
	setInt(&cfg.Retrieval.TopK, "MEMGATE_TOP_K")
	setInt(&cfg.Retrieval.MaxResultChars, "MEMGATE_MAX_RESULT_CHARS")

	if v := os.Getenv("MEMGATE_PRIVACY_DEBUG"); v != "" {
		cfg.Privacy.Debug = parseBool(v)
	}

	if v := os.Getenv("MEMGATE_CONSENT_TTL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Consent.TTLMillis = n
		}
	}
	setBool(&cfg.Consent.Enabled, "MEMGATE_CONSENT_ENABLED")

	if v := os.Getenv("MEMGATE_ANSWER_ENABLED"); v != "" {
		cfg.Answer.Enabled = parseBool(v)
	}
	if v := os.Getenv("MEMGATE_ANSWER_EXTRACTIVE"); v != "" {
		cfg.Answer.Extractive = parseBool(v)
	}
	setStr(&cfg.Answer.Grounding, "MEMGATE_GROUNDING_MODE")
	setStr(&cfg.Answer.Provider, "MEMGATE_ANSWER_PROVIDER")
	setStr(&cfg.Answer.BaseURL, "MEMGATE_ANSWER_BASE_URL")
	setStr(&cfg.Answer.ProfileID, "MEMGATE_ANSWER_PROFILE_ID")
	setStr(&cfg.Answer.Model, "MEMGATE_ANSWER_MODEL")
	setStr(&cfg.Answer.APIKey, "MEMGATE_ANSWER_API_KEY")

	setInt(&cfg.Events.Capacity, "MEMGATE_EVENT_CAPACITY")
	setInt(&cfg.Web.Port, "MEMGATE_HTTP_PORT")
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// StrictMatch reports whether the lexical guardrail is enabled (default on).
func (c *Config) StrictMatch() bool {
	return c.Retrieval.StrictMatch == nil || *c.Retrieval.StrictMatch
}

// ConsentEnabled reports whether the consent hook is enabled (default on).
func (c *Config) ConsentEnabled() bool {
	return c.Consent.Enabled == nil || *c.Consent.Enabled
}

// DBPath returns the SQLite database path under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.Data.Dir, "memgate.db")
}

// EmbedCachePath returns the persisted embedding cache file path.
func (c *Config) EmbedCachePath() string {
	return filepath.Join(c.Data.Dir, "embed-cache.json")
}

// ManifestPath returns the ingestion manifest file path.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Data.Dir, "ingest-manifest.json")
}

// StatsPath returns the stats snapshot file path.
func (c *Config) StatsPath() string {
	return filepath.Join(c.Data.Dir, "stats.json")
}
