package answer

import (
	"regexp"
	"strings"
)

// lineNumberRe strips the "[n] " prefix the controller puts on context lines.
var lineNumberRe = regexp.MustCompile(`^\[\d+\]\s*`)

// shape patterns used by the personal-intent tiebreak.
var (
	nameShapeRe  = regexp.MustCompile(`([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+|[A-Z]{2,}(?:[ \t]+[A-Z]{2,})+)`)
	phoneShapeRe = regexp.MustCompile(`\+?\d[\d\-\s().]{7,}\d`)
	emailShapeRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// extractBestLine returns the context line with the highest tokenized
// lexical overlap with the query, or "" when nothing scores above zero.
// Personal-intent queries get a shape bonus so "what is my name" picks the
// line carrying a name even without token overlap.
func extractBestLine(systemContext, query string) string {
	lines := contextLines(systemContext)
	if len(lines) == 0 {
		return ""
	}

	queryTokens := tokenize(query)
	intent := detectIntent(query)

	best := ""
	bestScore := 0
	for _, line := range lines {
		score := overlapScore(line, queryTokens)
		if intent != nil && intent.MatchString(line) {
			score += 2
		}
		if score > bestScore {
			bestScore = score
			best = line
		}
	}
	return best
}

// contextLines splits the numbered context into trimmed lines with the
// numbering removed.
func contextLines(systemContext string) []string {
	var lines []string
	for _, raw := range strings.Split(systemContext, "\n") {
		line := strings.TrimSpace(lineNumberRe.ReplaceAllString(strings.TrimSpace(raw), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func overlapScore(line string, queryTokens []string) int {
	lineTokens := make(map[string]bool)
	for _, t := range tokenize(line) {
		lineTokens[t] = true
	}
	score := 0
	for _, t := range queryTokens {
		if lineTokens[t] {
			score++
			continue
		}
		// Loose singular/plural match.
		if strings.HasSuffix(t, "s") && lineTokens[strings.TrimSuffix(t, "s")] {
			score++
		} else if lineTokens[t+"s"] {
			score++
		}
	}
	return score
}

var extractStopWords = map[string]bool{
	"what": true, "is": true, "my": true, "the": true, "a": true, "an": true,
	"do": true, "i": true, "me": true, "of": true, "to": true, "in": true,
	"like": true, "how": true, "who": true, "which": true, "are": true,
	"was": true, "does": true, "did": true, "have": true, "has": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 2 || extractStopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func detectIntent(query string) *regexp.Regexp {
	lower := " " + strings.ToLower(query) + " "
	switch {
	case strings.Contains(lower, " name"):
		return nameShapeRe
	case strings.Contains(lower, " phone") || strings.Contains(lower, " mobile") || strings.Contains(lower, " contact"):
		return phoneShapeRe
	case strings.Contains(lower, " email"):
		return emailShapeRe
	}
	return nil
}
