// Package gateway orchestrates the privacy-safe retrieval pipeline:
// search, redact, risk-gate, and optional answer generation per query.
package gateway

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/answer"
	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/consent"
	"github.com/memgate-labs/memgate/internal/privacy"
	"github.com/memgate-labs/memgate/internal/store"
)

// Output sentinels returned to MCP callers.
const (
	NoContextFound = "NO_CONTEXT_FOUND"
	NoContext      = "NO_CONTEXT"
)

// Controller is the per-query state machine. Strictly sequential per query:
// retrieve, redact, gate, generate, return.
type Controller struct {
	repo   *store.Repo
	gate   *consent.Gate
	orch   *answer.Orchestrator
	bus    *bus.Bus
	cfg    *config.Config
	logger *zap.Logger
}

// New wires a controller over its collaborators.
func New(repo *store.Repo, gate *consent.Gate, orch *answer.Orchestrator, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{repo: repo, gate: gate, orch: orch, bus: b, cfg: cfg, logger: logger}
}

// Query runs the full pipeline for one topic and returns the caller-facing
// payload. Errors never escape: failures surface as ERROR: sentinels.
func (c *Controller) Query(topic string) string {
	c.bus.Publish(bus.EventQueryReceived, map[string]any{"topic": topic})

	// Retrieve.
	topK := clamp(c.cfg.Retrieval.TopK, config.MinTopK, config.MaxTopK)
	maxChars := clamp(c.cfg.Retrieval.MaxResultChars, config.MinResultChars, config.MaxResultChars)

	results, err := c.repo.Search(topic, topK)
	if err != nil {
		c.logger.Error("retrieval failed", zap.String("topic", topic), zap.Error(err))
		return "ERROR: memory search failed."
	}
	results = c.screenResults(results)
	if len(results) == 0 {
		return NoContextFound
	}

	// Shrink-to-safe: use the full context if it redacts to a safe snapshot,
	// otherwise the shortest prefix of it that does.
	context, red := shrinkToSafe(results, maxChars)

	payload := map[string]any{
		"topic":      topic,
		"redactions": red.RedactionCount,
		"risk":       red.RiskLevel,
		"confidence": red.Confidence,
		"cleaned":    red.CleanedText,
	}
	if c.cfg.Privacy.Debug {
		payload["original"] = context
	}
	c.bus.Publish(bus.EventPrivacyProcessed, payload)

	// Gate.
	if red.Confidence == privacy.ConfidenceLow {
		c.bus.Publish(bus.EventRiskBlocked, map[string]any{
			"topic": topic, "reason": "low-confidence",
		})
		return NoContext
	}
	if red.RiskLevel == privacy.RiskHigh {
		if !c.consumeConsent(topic, red.CleanedText) {
			return NoContext
		}
	}

	// Generate (optional).
	if c.cfg.Answer.Enabled && c.orch != nil {
		if out, ok := c.generate(topic, red); ok {
			return out
		}
	}

	return fmt.Sprintf("SANITIZED_CONTEXT:\n%s\n\nRedactions: %d\nRisk: %s",
		red.CleanedText, red.RedactionCount, red.RiskLevel)
}

// consumeConsent reports whether a high-risk release may proceed. When it
// may not, the pending-consent and blocked events are published.
func (c *Controller) consumeConsent(topic, cleaned string) bool {
	if c.cfg.ConsentEnabled() && c.gate.Consume(topic) {
		return true
	}
	if c.cfg.ConsentEnabled() {
		// The cleaned text rides along so the dashboard can show what
		// would be released.
		c.bus.Publish(bus.EventConsentRequired, map[string]any{
			"topic": topic, "cleaned": cleaned,
		})
	}
	c.bus.Publish(bus.EventRiskBlocked, map[string]any{
		"topic": topic, "reason": "high-risk",
	})
	return false
}

// generate routes the sanitized context through the answer orchestrator.
// Returns ok=false when generation produced nothing usable and the caller
// should fall through to the default payload.
func (c *Controller) generate(topic string, red privacy.Result) (string, bool) {
	c.bus.Publish(bus.EventAnswerRequest, map[string]any{
		"topic": topic, "redactions": red.RedactionCount, "risk": red.RiskLevel,
	})
	out := c.orch.Generate(answer.Request{
		SystemContext:  red.CleanedText,
		UserQuery:      topic,
		RedactionCount: red.RedactionCount,
		RiskLevel:      red.RiskLevel,
	})
	if out == answer.FallbackAnswer {
		// Nothing in context answered the query; fall through to the
		// sanitized-context payload rather than returning the stock line.
		c.logger.Info("generation produced no grounded answer", zap.String("topic", topic))
		c.bus.Publish(bus.EventAnswerResponse, map[string]any{
			"topic": topic, "ok": false,
		})
		return "", false
	}
	c.bus.Publish(bus.EventAnswerResponse, map[string]any{
		"topic": topic, "ok": true, "answer": out,
	})
	return out, true
}

// SaveFact stores an explicit user fact and returns the tool payload.
func (c *Controller) SaveFact(fact, category string) string {
	if strings.TrimSpace(fact) == "" {
		return "ERROR: 'fact' is required."
	}
	m, err := c.repo.SaveUserFact(fact, category)
	if err != nil {
		c.logger.Error("save fact failed", zap.Error(err))
		return "ERROR: could not save memory."
	}
	if m == nil {
		return "ERROR: 'fact' is required."
	}
	c.bus.Publish(bus.EventMemorySaved, map[string]any{
		"id": m.UID, "category": category,
	})
	return fmt.Sprintf("MEMORY_SAVED: %s", m.UID)
}

// Grant records a consent decision and publishes it.
func (c *Controller) Grant(topic string) {
	c.gate.Grant(topic)
	c.bus.Publish(bus.EventConsentDecision, map[string]any{
		"topic": topic, "decision": "granted",
	})
}

// Deny erases any pending consent for topic and publishes the decision.
func (c *Controller) Deny(topic string) {
	c.gate.Deny(topic)
	c.bus.Publish(bus.EventConsentDecision, map[string]any{
		"topic": topic, "decision": "denied",
	})
}

// screenResults drops retrieved rows that look like prompt injection and
// truncates the rest to the per-result budget.
func (c *Controller) screenResults(results []string) []string {
	maxChars := clamp(c.cfg.Retrieval.MaxResultChars, config.MinResultChars, config.MaxResultChars)
	out := results[:0]
	for _, r := range results {
		if privacy.DetectInjection(r) {
			c.logger.Warn("dropped retrieved row flagged as prompt injection")
			continue
		}
		if len(r) > maxChars {
			r = r[:maxChars]
		}
		out = append(out, r)
	}
	return out
}

// shrinkToSafe builds the numbered context string and redacts it. If the
// full context is not safe (confidence HIGH and risk LOW), prefixes of
// length 1..N-1 are tried in order and the first safe one wins; otherwise
// the full snapshot falls through.
func shrinkToSafe(results []string, maxChars int) (string, privacy.Result) {
	full := numberedContext(results, maxChars)
	red := privacy.Redact(full)
	if red.Confidence == privacy.ConfidenceHigh && red.RiskLevel == privacy.RiskLow {
		return full, red
	}

	for n := 1; n < len(results); n++ {
		prefix := numberedContext(results[:n], maxChars)
		candidate := privacy.Redact(prefix)
		if candidate.Confidence == privacy.ConfidenceHigh && candidate.RiskLevel == privacy.RiskLow {
			return prefix, candidate
		}
	}
	return full, red
}

func numberedContext(results []string, maxChars int) string {
	var b strings.Builder
	for i, r := range results {
		if len(r) > maxChars {
			r = r[:maxChars]
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, r)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
