package store

import (
	"regexp"
	"sort"
	"strings"
)

// Boost multipliers applied to vector distance (lower = closer, so boosts
// scale distance down).
const (
	phraseBoost      = 0.5
	keywordBoostStep = 0.1
	keywordBoostMin  = 0.6
)

// scored is a raw result annotated with lexical signals.
type scored struct {
	RawResult
	boosted     float64
	phraseMatch bool
	keywordHits int
}

// RankedResult is one search hit after lexical reranking.
type RankedResult struct {
	Memory   Memory
	Distance float64
}

// Rank applies the lexical reranking pipeline to raw vector hits:
// phrase/keyword boosts, the lexical guardrail, personal-intent shape
// filtering, distance sort, and exact-text dedup.
func Rank(raw []RawResult, query string, k int, strictMatch bool) []RankedResult {
	normQuery := normalizeForMatch(query)
	tokens := ExtractSearchTerms(query)

	scoredRows := make([]scored, 0, len(raw))
	for _, r := range raw {
		s := scored{RawResult: r, boosted: r.Distance}
		haystack := normalizeForMatch(r.Text + " " + r.Category + " " + r.Source)
		if normQuery != "" && strings.Contains(haystack, normQuery) {
			s.phraseMatch = true
		}
		s.keywordHits = countKeywordHits(tokens, haystack)

		switch {
		case s.phraseMatch:
			s.boosted = r.Distance * phraseBoost
		case s.keywordHits > 0:
			mult := 1 - keywordBoostStep*float64(s.keywordHits)
			if mult < keywordBoostMin {
				mult = keywordBoostMin
			}
			s.boosted = r.Distance * mult
		}
		scoredRows = append(scoredRows, s)
	}

	// Lexical guardrail: vector-only matches on unrelated content must not
	// leak into a privacy-sensitive response.
	if len(tokens) > 0 {
		var lexical []scored
		for _, s := range scoredRows {
			if s.phraseMatch || s.keywordHits > 0 {
				lexical = append(lexical, s)
			}
		}
		switch {
		case len(lexical) > 0:
			scoredRows = lexical
		case detectPersonalIntent(query) != nil:
			pattern := detectPersonalIntent(query)
			var shaped []scored
			for _, s := range scoredRows {
				if pattern.MatchString(s.Text) {
					shaped = append(shaped, s)
				}
			}
			scoredRows = shaped
		case strictMatch:
			return nil
		}
	}

	sort.SliceStable(scoredRows, func(i, j int) bool {
		return scoredRows[i].boosted < scoredRows[j].boosted
	})

	seen := make(map[string]bool, len(scoredRows))
	var out []RankedResult
	for _, s := range scoredRows {
		if seen[s.Text] {
			continue
		}
		seen[s.Text] = true
		out = append(out, RankedResult{
			Memory: Memory{
				UID:      s.UID,
				Text:     s.Text,
				Category: s.Category,
				Source:   s.Source,
			},
			Distance: s.boosted,
		})
		if len(out) >= k {
			break
		}
	}
	return out
}

// countKeywordHits counts distinct query tokens that match any haystack token
// via prefix-or-equality, after light morphological expansion.
func countKeywordHits(tokens []string, haystack string) int {
	if len(tokens) == 0 {
		return 0
	}
	hayTokens := strings.Fields(haystack)
	hits := 0
	for _, tok := range tokens {
		if matchesAnyToken(tok, hayTokens) {
			hits++
		}
	}
	return hits
}

func matchesAnyToken(query string, hayTokens []string) bool {
	variants := expandToken(query)
	for _, ht := range hayTokens {
		ht = strings.Trim(ht, ".,;:!?\"'()[]{}")
		if len(ht) < 2 {
			continue
		}
		for _, v := range variants {
			if ht == v || strings.HasPrefix(ht, v) || strings.HasPrefix(v, ht) {
				return true
			}
		}
	}
	return false
}

// expandToken produces light morphological variants of a token: the token
// itself plus stems with common suffixes removed.
func expandToken(tok string) []string {
	variants := []string{tok}
	add := func(v string) {
		if len(v) < 2 {
			return
		}
		for _, existing := range variants {
			if existing == v {
				return
			}
		}
		variants = append(variants, v)
	}

	switch {
	case strings.HasSuffix(tok, "ies") && len(tok) > 4:
		add(tok[:len(tok)-3] + "y")
	case strings.HasSuffix(tok, "es") && len(tok) > 3:
		add(tok[:len(tok)-2])
	case strings.HasSuffix(tok, "s") && len(tok) > 2:
		add(tok[:len(tok)-1])
	}
	if strings.HasSuffix(tok, "ed") && len(tok) > 3 {
		add(tok[:len(tok)-2])
	}
	if strings.HasSuffix(tok, "ing") && len(tok) > 4 {
		add(tok[:len(tok)-3])
	}
	if strings.HasSuffix(tok, "ences") && len(tok) > 6 {
		add(tok[:len(tok)-5])
	} else if strings.HasSuffix(tok, "ence") && len(tok) > 5 {
		add(tok[:len(tok)-4])
	}
	return variants
}

func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Personal-intent shape patterns. When a query asks about a name, phone, or
// email but shares no tokens with any row, rows are kept only if their text
// carries the matching shape.
var (
	nameShapeRe  = regexp.MustCompile(`([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+|[A-Z]{2,}(?:[ \t]+[A-Z]{2,})+)`)
	phoneShapeRe = regexp.MustCompile(`\+?\d[\d\-\s().]{7,}\d`)
	emailShapeRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// detectPersonalIntent returns the shape pattern for a personal-information
// query, or nil when the query expresses no such intent.
func detectPersonalIntent(query string) *regexp.Regexp {
	lower := strings.ToLower(query)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	has := func(targets ...string) bool {
		for _, w := range words {
			for _, t := range targets {
				if w == t {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("name"):
		return nameShapeRe
	case has("phone", "mobile", "contact"):
		return phoneShapeRe
	case has("email"):
		return emailShapeRe
	}
	return nil
}

// searchStopWords are common English words filtered from query tokens.
var searchStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "shall": true, "can": true,
	"of": true, "in": true, "to": true, "for": true, "with": true,
	"on": true, "at": true, "from": true, "by": true, "about": true,
	"as": true, "into": true, "through": true, "during": true,
	"and": true, "or": true, "but": true, "not": true, "so": true,
	"what": true, "how": true, "when": true, "where": true, "which": true,
	"who": true, "whom": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "its": true, "my": true, "your": true,
	"our": true, "their": true, "i": true, "me": true, "we": true,
	"you": true, "he": true, "she": true, "they": true, "them": true,
	"tell": true, "show": true, "find": true, "search": true,
}

// ExtractSearchTerms extracts meaningful query tokens: length >= 2,
// non-stopword, lowercased, distinct.
func ExtractSearchTerms(query string) []string {
	words := strings.Fields(query)
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}"))
		if len(lower) < 2 || searchStopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		terms = append(terms, lower)
	}
	return terms
}
