package embedding

import (
	"hash/fnv"
	"strings"

	"github.com/memgate-labs/memgate/internal/config"
)

// LocalProvider computes deterministic hash-based vectors. It exists so the
// gateway works with zero credentials and zero network: identical input text
// always produces a bitwise-identical vector.
type LocalProvider struct {
	dims int
}

func newLocalProvider(cfg config.EmbeddingConfig) *LocalProvider {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 768
	}
	return &LocalProvider{dims: dims}
}

func (p *LocalProvider) Name() string  { return "local" }
func (p *LocalProvider) Model() string { return "hash-v1" }

// Embed hashes each token into a handful of vector buckets with
// position-seeded weights, then unit-normalizes. Tokens sharing a prefix
// land in overlapping buckets, which gives the vector a weak notion of
// lexical similarity — enough for the lexical reranker to do the real work.
func (p *LocalProvider) Embed(text string) ([]float32, error) {
	vec := make([]float32, p.dims)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return vec, nil
	}

	for pos, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		seed := h.Sum64()

		// Spread each token across 4 buckets, each with a hash-derived sign.
		for i := 0; i < 4; i++ {
			mixed := seed ^ (uint64(i+1) * 0x9e3779b97f4a7c15)
			idx := int(mixed % uint64(p.dims))
			sign := float32(1)
			if mixed&(1<<63) != 0 {
				sign = -1
			}
			// Earlier tokens weigh slightly more.
			weight := 1.0 / float32(1+pos/8)
			vec[idx] += sign * weight
		}

		// Prefix buckets: the first 4 bytes of the token contribute too, so
		// "number" and "numbers" overlap.
		prefix := tok
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		ph := fnv.New64a()
		ph.Write([]byte(prefix))
		pidx := int(ph.Sum64() % uint64(p.dims))
		vec[pidx] += 0.5
	}

	return Normalize(vec), nil
}
