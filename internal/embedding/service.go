package embedding

import (
	"strings"

	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/config"
)

// Service wraps a provider with normalization, dimension alignment, and the
// persisted cache. This is the only embedding entry point the rest of the
// gateway uses.
type Service struct {
	provider Provider
	cache    *Cache
	dims     int
	logger   *zap.Logger
}

// NewService builds a Service from config. The cache may be nil (tests).
func NewService(cfg config.EmbeddingConfig, cache *Cache, logger *zap.Logger) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 768
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, cache: cache, dims: dims, logger: logger}, nil
}

// Provider returns the underlying provider name.
func (s *Service) Provider() string { return s.provider.Name() }

// Model returns the underlying model name.
func (s *Service) Model() string { return s.provider.Model() }

// Dimensions returns the store-wide vector dimension.
func (s *Service) Dimensions() int { return s.dims }

// Embed maps text to an aligned unit vector. Whitespace is trimmed and
// collapsed before any processing or cache lookup; empty normalized text
// yields an empty vector, never an error.
func (s *Service) Embed(text string) ([]float32, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, nil
	}

	key := Key(s.provider.Name(), s.provider.Model(), normalized)
	if cached := s.cache.Get(key); cached != nil && len(cached) == s.dims {
		return cached, nil
	}

	raw, err := s.provider.Embed(normalized)
	if err != nil {
		return nil, err
	}
	aligned := Normalize(Align(raw, s.dims))

	// Cache write is isolated from the return path.
	s.cache.Put(key, aligned)

	return aligned, nil
}

// NormalizeText trims and collapses interior whitespace.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
