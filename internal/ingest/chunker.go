package ingest

import "strings"

// DefaultChunkChars bounds one document chunk.
const DefaultChunkChars = 1200

// ChunkText splits text into chunks of at most maxChars, preferring
// paragraph boundaries and falling back to sentence boundaries for
// paragraphs that are too long on their own.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, piece := range splitLong(para, maxChars) {
			if current.Len() > 0 && current.Len()+len(piece)+2 > maxChars {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

// splitLong breaks an over-budget paragraph at the last sentence end in the
// back half of the budget, else at the last space there, hard-cutting at the
// budget only when the back half holds neither.
func splitLong(para string, maxChars int) []string {
	if len(para) <= maxChars {
		return []string{para}
	}

	var pieces []string
	rest := para
	for len(rest) > maxChars {
		cut := -1
		for i := maxChars; i > maxChars/2; i-- {
			if rest[i-1] == '.' || rest[i-1] == '!' || rest[i-1] == '?' {
				cut = i
				break
			}
		}
		if cut < 0 {
			// No sentence break in range — cut at the last space instead.
			if idx := strings.LastIndexByte(rest[:maxChars], ' '); idx > maxChars/2 {
				cut = idx
			} else {
				cut = maxChars
			}
		}
		pieces = append(pieces, strings.TrimSpace(rest[:cut]))
		rest = strings.TrimSpace(rest[cut:])
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}
