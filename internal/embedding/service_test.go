package embedding

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/memgate-labs/memgate/internal/config"
)

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  hello   world  ": "hello world",
		"\n\ttabs\tand\nnewlines\n": "tabs and newlines",
		"single": "single",
		"   ":    "",
	}
	for input, want := range cases {
		if got := NormalizeText(input); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEmbedEmptyText(t *testing.T) {
	svc, err := NewService(config.EmbeddingConfig{Provider: "local", Dimensions: 32}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	vec, err := svc.Embed("   \t\n ")
	if err != nil {
		t.Fatalf("empty text must not error: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("empty text should yield an empty vector, got %d dims", len(vec))
	}
}

func TestEmbedWhitespaceInsensitive(t *testing.T) {
	svc, _ := NewService(config.EmbeddingConfig{Provider: "local", Dimensions: 32}, nil, nil)
	a, _ := svc.Embed("hello   world")
	b, _ := svc.Embed("  hello world  ")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("whitespace variants should embed identically")
		}
	}
}

func TestEmbedUnitLength(t *testing.T) {
	svc, _ := NewService(config.EmbeddingConfig{Provider: "local", Dimensions: 128}, nil, nil)
	vec, err := svc.Embed("check the norm of this vector")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("vector norm^2 = %f, want 1", sum)
	}
}

func TestAlign(t *testing.T) {
	t.Run("truncate", func(t *testing.T) {
		got := Align([]float32{1, 2, 3, 4}, 2)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("Align truncate = %v", got)
		}
	})
	t.Run("pad", func(t *testing.T) {
		got := Align([]float32{1, 2}, 4)
		if len(got) != 4 || got[2] != 0 || got[3] != 0 {
			t.Errorf("Align pad = %v", got)
		}
	})
	t.Run("exact", func(t *testing.T) {
		in := []float32{1, 2, 3}
		if got := Align(in, 3); len(got) != 3 {
			t.Errorf("Align exact = %v", got)
		}
	})
}

func TestGatewayTokenRejected(t *testing.T) {
	_, err := NewProvider(config.EmbeddingConfig{
		Provider: "gemini",
		APIKey:   "gw_pat_abc123",
	})
	if err == nil {
		t.Fatal("gateway personal token should be rejected as a provider key")
	}
	if !errors.Is(err, ErrGatewayToken) {
		t.Errorf("error should be the distinct gateway-token kind, got %v", err)
	}
}

func TestCacheRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := NewCache(path)
	key := Key("local", "hash-v1", "some text")
	c.Put(key, []float32{0.25, 0.5})

	// A fresh cache instance reads the persisted entry back.
	c2 := NewCache(path)
	got := c2.Get(key)
	if len(got) != 2 || got[0] != 0.25 || got[1] != 0.5 {
		t.Errorf("persisted cache entry = %v", got)
	}
}

func TestCacheMissAndNil(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	if c.Get(Key("p", "m", "never stored")) != nil {
		t.Error("miss should return nil")
	}

	// A nil cache must never break the caller.
	var nilCache *Cache
	if nilCache.Get("k") != nil {
		t.Error("nil cache Get should return nil")
	}
	nilCache.Put("k", []float32{1})
}

func TestServiceUsesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCache(path)
	svc, err := NewService(config.EmbeddingConfig{Provider: "local", Dimensions: 16}, cache, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Embed("cache me"); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", cache.Len())
	}

	key := Key("local", "hash-v1", "cache me")
	if cache.Get(key) == nil {
		t.Error("aligned vector not cached under the composite key")
	}
}

func TestKeyComposite(t *testing.T) {
	a := Key("gemini", "m1", "text")
	b := Key("openai-compatible", "m1", "text")
	c := Key("gemini", "m2", "text")
	if a == b || a == c {
		t.Error("cache key must include provider and model")
	}
}
