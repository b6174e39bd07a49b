package answer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/config"
)

// Request carries the sanitized context and query into generation.
type Request struct {
	SystemContext  string
	UserQuery      string
	RedactionCount int
	RiskLevel      string
}

// Orchestrator routes a request to the configured generator and enforces
// grounding on whatever comes back.
type Orchestrator struct {
	cfg    config.AnswerConfig
	client generator
	logger *zap.Logger
}

// New builds an orchestrator from config. A missing or misconfigured remote
// provider degrades to extractive mode rather than failing.
func New(cfg config.AnswerConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{cfg: cfg, logger: logger}
	if !cfg.Extractive {
		client, err := newGenerator(cfg)
		if err != nil {
			logger.Warn("answer provider unavailable, using extractive mode", zap.Error(err))
		} else {
			o.client = client
		}
	}
	return o
}

// newWithClient injects a generator directly. Tests only.
func newWithClient(cfg config.AnswerConfig, client generator) *Orchestrator {
	return &Orchestrator{cfg: cfg, client: client, logger: zap.NewNop()}
}

// Generate produces a grounded answer for the request. Remote failures and
// grounding rejections fall back to extractive selection; if extraction also
// fails, the fixed fallback string is returned unchanged.
func (o *Orchestrator) Generate(req Request) string {
	if o.client == nil || o.cfg.Extractive {
		return o.extractOrFallback(req)
	}

	response, err := o.client.Generate(systemPrompt(req.SystemContext), req.UserQuery)
	if err != nil {
		o.logger.Warn("remote generation failed, falling back to extractive",
			zap.String("provider", o.client.Name()), zap.Error(err))
		return o.extractOrFallback(req)
	}

	if response == FallbackAnswer || !Grounded(response, req.SystemContext, o.cfg.Grounding) {
		return o.extractOrFallback(req)
	}
	return response
}

func (o *Orchestrator) extractOrFallback(req Request) string {
	if line := extractBestLine(req.SystemContext, req.UserQuery); line != "" {
		return line
	}
	return FallbackAnswer
}

// Grounded reports whether a generated answer appears verbatim in the
// sanitized context: equal to some line in exact mode, a substring of some
// line in the default excerpt mode. Comparison is whitespace-normalized.
func Grounded(answer, systemContext, mode string) bool {
	normAnswer := normalizeWS(answer)
	if normAnswer == "" {
		return false
	}
	for _, line := range contextLines(systemContext) {
		normLine := normalizeWS(line)
		if mode == "exact" {
			if normAnswer == normLine {
				return true
			}
			continue
		}
		if strings.Contains(normLine, normAnswer) {
			return true
		}
	}
	return false
}

func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
