// Package consent implements TTL-bounded, consume-once topic tokens that
// permit one high-risk release each.
package consent

import (
	"strings"
	"sync"
	"time"
)

// Gate is a process-local mapping from normalized topic to absolute expiry.
type Gate struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// New creates a gate with the given token lifetime.
func New(ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Gate{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// normalize case-folds and trims a topic so grants and queries agree on keys.
func normalize(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// Grant inserts or replaces the token for topic, valid for one TTL from now.
func (g *Gate) Grant(topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[normalize(topic)] = g.now().Add(g.ttl)
}

// Deny erases any token for topic.
func (g *Gate) Deny(topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tokens, normalize(topic))
}

// Consume atomically removes the topic's token and reports whether it
// existed and had not expired. One-shot: a second consume for the same
// topic requires a fresh grant.
func (g *Gate) Consume(topic string) bool {
	key := normalize(topic)
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.tokens[key]
	if !ok {
		return false
	}
	delete(g.tokens, key)
	return g.now().Before(expiry)
}

// Pending reports whether a live token exists without consuming it.
func (g *Gate) Pending(topic string) bool {
	key := normalize(topic)
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.tokens[key]
	return ok && g.now().Before(expiry)
}
