package privacy

import (
	"regexp"
	"strings"
)

// Severity levels for redaction patterns.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Placeholders emitted by the pipeline. The stats collector counts these in
// cleaned text, so the literals are shared.
const (
	PlaceholderEmail         = "[REDACTED_EMAIL]"
	PlaceholderPhone         = "[REDACTED_PHONE]"
	PlaceholderSSN           = "[REDACTED_SSN]"
	PlaceholderCreditCard    = "[REDACTED_CREDIT_CARD]"
	PlaceholderFinancial     = "[REDACTED_FINANCIAL_AMOUNT]"
	PlaceholderAPIKey        = "[REDACTED_API_KEY]"
	PlaceholderAWSAccessKey  = "[REDACTED_AWS_ACCESS_KEY]"
	PlaceholderJWT           = "[REDACTED_JWT]"
	PlaceholderPassword      = "[REDACTED_PASSWORD]"
	PlaceholderSecret        = "[REDACTED_SECRET]"
	PlaceholderAccountNumber = "[REDACTED_ACCOUNT_NUMBER]"
	PlaceholderProjectCode   = "[REDACTED_PROJECT_CODE]"
)

// AllPlaceholders lists every placeholder the pipeline can emit.
func AllPlaceholders() []string {
	return []string{
		PlaceholderEmail, PlaceholderPhone, PlaceholderSSN,
		PlaceholderCreditCard, PlaceholderFinancial, PlaceholderAPIKey,
		PlaceholderAWSAccessKey, PlaceholderJWT, PlaceholderPassword,
		PlaceholderSecret, PlaceholderAccountNumber, PlaceholderProjectCode,
	}
}

// Pattern is one entry in the ordered redaction list. Either Placeholder or
// Replace is set; Replace builds label-preserving replacements from the
// submatch slice. CaptureIndex identifies the sensitive sub-match recorded in
// the synthetic map (0 = whole match).
type Pattern struct {
	Name         string
	Severity     string
	Re           *regexp.Regexp
	CaptureIndex int
	Placeholder  string
	Replace      func(groups []string) string
}

// patterns is the ordered pattern list. Order is load-bearing: broad
// patterns (email, phone) run before narrow structural ones that could
// otherwise match their substrings.
var patterns = []Pattern{
	{
		Name:        "email",
		Severity:    SeverityMedium,
		Re:          regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		Placeholder: PlaceholderEmail,
	},
	{
		Name:     "phone",
		Severity: SeverityMedium,
		// 10-digit or 3-3-4 grouped, optional country code. The bounded
		// digit count plus \b on both ends keeps it off 13-16 digit card
		// runs, which pattern order reserves for credit_card.
		Re:          regexp.MustCompile(`(?:\+\d{1,2}[-.\s]?)?\b(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		Placeholder: PlaceholderPhone,
	},
	{
		Name:        "ssn",
		Severity:    SeverityHigh,
		Re:          regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Placeholder: PlaceholderSSN,
	},
	{
		Name:        "credit_card",
		Severity:    SeverityHigh,
		Re:          regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),
		Placeholder: PlaceholderCreditCard,
	},
	{
		Name:     "financial_amount",
		Severity: SeverityMedium,
		// RE2 has no lookbehind, so the word boundary is consumed
		// explicitly as group 1 and restored in the replacement.
		Re:           regexp.MustCompile(`(^|[\s(:=])([$₹€£]\s?\d+(?:,\d{3})*(?:\.\d+)?\s?[kKmMbB]?)`),
		CaptureIndex: 2,
		Replace: func(groups []string) string {
			return groups[1] + PlaceholderFinancial
		},
	},
	{
		Name:        "api_key",
		Severity:    SeverityHigh,
		Re:          regexp.MustCompile(`\b(?:sk|pk)[_-](?:live|test)[_-][A-Za-z0-9]{8,}\b|\bsk-[A-Za-z0-9_-]{16,}\b`),
		Placeholder: PlaceholderAPIKey,
	},
	{
		Name:        "aws_access_key",
		Severity:    SeverityHigh,
		Re:          regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
		Placeholder: PlaceholderAWSAccessKey,
	},
	{
		Name:        "jwt",
		Severity:    SeverityHigh,
		Re:          regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		Placeholder: PlaceholderJWT,
	},
	{
		Name:     "labeled_secret",
		Severity: SeverityHigh,
		// Value class excludes '[' so an already-placed placeholder can
		// never re-match (idempotence).
		Re:           regexp.MustCompile(`(?i)\b(api[ _-]?key|access[ _-]?key|password|pwd|secret|token)(\s*[:=]\s*)["']?([^\s"'\[\]]{8,})["']?`),
		CaptureIndex: 3,
		Replace: func(groups []string) string {
			return groups[1] + groups[2] + labelPlaceholder(groups[1])
		},
	},
	{
		Name:         "account_number",
		Severity:     SeverityHigh,
		Re:           regexp.MustCompile(`(?i)\b(account(?:\s*(?:number|no\.?|#))?)(\s*[:=]\s*)(\d{7,})`),
		CaptureIndex: 3,
		Replace: func(groups []string) string {
			return groups[1] + groups[2] + PlaceholderAccountNumber
		},
	},
	{
		Name:         "project_code",
		Severity:     SeverityHigh,
		Re:           regexp.MustCompile(`(?i)\b(project\s+code)(\s*[:=]\s*)([A-Za-z]+-\d+)`),
		CaptureIndex: 3,
		Replace: func(groups []string) string {
			return groups[1] + groups[2] + PlaceholderProjectCode
		},
	},
}

// labelPlaceholder maps a labeled-secret label to its placeholder so the
// replacement keeps the contextual label while distinguishing the kind.
func labelPlaceholder(label string) string {
	normalized := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(label))
	switch normalized {
	case "password", "pwd":
		return PlaceholderPassword
	case "accesskey":
		return PlaceholderAWSAccessKey
	case "apikey":
		return PlaceholderAPIKey
	default: // secret, token
		return PlaceholderSecret
	}
}

// residualShapes are sensitive shapes checked against the cleaned text. A
// survivor drops confidence to LOW even when no rule matched it.
var residualShapes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                  // SSN
	regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),               // 13-16 digit run
	regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),                   // AWS key
	regexp.MustCompile(`(?i)\b(?:api[ _-]?key|access[ _-]?key|password|pwd|secret|token)\s*[:=]\s*["']?[^\s"'\[\]]{8,}`), // label=secret
}
