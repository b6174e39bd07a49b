// Package privacy implements the multi-pattern PII redaction pipeline with
// risk and confidence scoring.
package privacy

// Risk and confidence levels. MEDIUM is reserved and never emitted.
const (
	RiskLow  = "LOW"
	RiskHigh = "HIGH"

	ConfidenceHigh = "HIGH"
	ConfidenceLow  = "LOW"
)

// riskThreshold is the redaction count at which output is high-risk even
// without a high-severity match.
const riskThreshold = 5

// Result is the outcome of one redaction pass.
type Result struct {
	CleanedText    string            `json:"cleaned_text"`
	RedactionCount int               `json:"redaction_count"`
	PatternCounts  map[string]int    `json:"pattern_counts,omitempty"`
	RiskLevel      string            `json:"risk_level"`
	Confidence     string            `json:"confidence"`
	// SyntheticMap maps each redacted sensitive value to its placeholder.
	// Debug observability only — never leaves the process.
	SyntheticMap map[string]string `json:"-"`
}

// Redact runs the ordered pattern list left-to-right over text.
func Redact(text string) Result {
	result := Result{
		CleanedText:   text,
		PatternCounts: make(map[string]int),
		SyntheticMap:  make(map[string]string),
		RiskLevel:     RiskLow,
		Confidence:    ConfidenceHigh,
	}

	highFired := false
	for _, p := range patterns {
		fired := 0
		result.CleanedText = p.Re.ReplaceAllStringFunc(result.CleanedText, func(match string) string {
			fired++

			groups := p.Re.FindStringSubmatch(match)
			sensitive := match
			if p.CaptureIndex > 0 && p.CaptureIndex < len(groups) {
				sensitive = groups[p.CaptureIndex]
			}

			var replacement string
			if p.Replace != nil {
				replacement = p.Replace(groups)
			} else {
				replacement = p.Placeholder
			}
			result.SyntheticMap[sensitive] = placeholderOf(p, replacement)
			return replacement
		})

		if fired > 0 {
			result.PatternCounts[p.Name] += fired
			result.RedactionCount += fired
			if p.Severity == SeverityHigh {
				highFired = true
			}
		}
	}

	if highFired || result.RedactionCount >= riskThreshold {
		result.RiskLevel = RiskHigh
	}

	// Fail-safe: a sensitive shape that survived the pass degrades
	// confidence regardless of what fired.
	for _, shape := range residualShapes {
		if shape.MatchString(result.CleanedText) {
			result.Confidence = ConfidenceLow
			break
		}
	}

	return result
}

// placeholderOf extracts the placeholder literal from a replacement that may
// carry a preserved label prefix.
func placeholderOf(p Pattern, replacement string) string {
	if p.Placeholder != "" {
		return p.Placeholder
	}
	if idx := indexOfBracket(replacement); idx >= 0 {
		return replacement[idx:]
	}
	return replacement
}

func indexOfBracket(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			return i
		}
	}
	return -1
}
