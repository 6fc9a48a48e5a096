package retrieval

import (
	"strings"
	"unicode"
)

// Highlight marks a matched query term inside a snippet. Offsets are
// rune positions within the snippet.
type Highlight struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	MatchedText string `json:"matchedText"`
}

// SnippetExtractor cuts a short, word-aligned excerpt out of a chunk
// around the first query-term match, for display in search results.
type SnippetExtractor struct {
	contextChars    int
	maxContextChars int
}

func NewSnippetExtractor() *SnippetExtractor {
	return &SnippetExtractor{
		contextChars:    50,
		maxContextChars: 200,
	}
}

// Snippet returns an excerpt of content centered on the first query
// term found, plus the highlight positions adjusted to the excerpt.
// Without a match it returns the beginning of the content.
func (e *SnippetExtractor) Snippet(content, query string) (string, []Highlight) {
	runes := []rune(content)
	if len(runes) == 0 {
		return "", nil
	}

	matches := e.findMatches(runes, query)
	if len(matches) == 0 {
		return e.leadingExcerpt(runes), nil
	}

	start, end := e.window(matches[0].Start, len(runes))
	start = e.toWordBoundary(runes, start, false)
	end = e.toWordBoundary(runes, end, true)

	var b strings.Builder
	prefixLen := 0
	if start > 0 {
		b.WriteString("...")
		prefixLen = 3
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}

	var adjusted []Highlight
	for _, m := range matches {
		if m.Start >= start && m.End <= end {
			adjusted = append(adjusted, Highlight{
				Start:       m.Start - start + prefixLen,
				End:         m.End - start + prefixLen,
				MatchedText: m.MatchedText,
			})
		}
	}
	return b.String(), adjusted
}

// findMatches locates every occurrence of each query term, in content
// order. Terms shorter than three runes are too noisy to highlight.
func (e *SnippetExtractor) findMatches(runes []rune, query string) []Highlight {
	lower := strings.ToLower(string(runes))
	lowerRunes := []rune(lower)

	var matches []Highlight
	seen := make(map[int]bool)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		term = strings.TrimFunc(term, unicode.IsPunct)
		if len([]rune(term)) < 3 {
			continue
		}
		termRunes := []rune(term)
		for i := 0; i+len(termRunes) <= len(lowerRunes); i++ {
			if seen[i] || string(lowerRunes[i:i+len(termRunes)]) != term {
				continue
			}
			seen[i] = true
			matches = append(matches, Highlight{
				Start:       i,
				End:         i + len(termRunes),
				MatchedText: string(runes[i : i+len(termRunes)]),
			})
		}
	}

	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Start < matches[j-1].Start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	return matches
}

func (e *SnippetExtractor) leadingExcerpt(runes []rune) string {
	end := e.contextChars * 2
	if end > len(runes) {
		end = len(runes)
	}
	end = e.toWordBoundary(runes, end, true)

	excerpt := string(runes[:end])
	if end < len(runes) {
		excerpt += "..."
	}
	return excerpt
}

func (e *SnippetExtractor) window(center, contentLen int) (int, int) {
	start := center - e.contextChars
	end := center + e.contextChars
	if start < 0 {
		end += -start
		start = 0
	}
	if end > contentLen {
		start -= end - contentLen
		end = contentLen
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// toWordBoundary nudges pos to the nearest separator so snippets never
// cut a word in half. The scan is capped to keep the window stable.
func (e *SnippetExtractor) toWordBoundary(runes []rune, pos int, forward bool) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(runes) {
		return len(runes)
	}

	const maxAdjust = 10
	if forward {
		for i := pos; i < len(runes) && i < pos+maxAdjust; i++ {
			if isSeparator(runes[i]) {
				return i
			}
		}
	} else {
		for i := pos - 1; i >= 0 && i >= pos-maxAdjust; i-- {
			if isSeparator(runes[i]) {
				return i + 1
			}
		}
	}
	return pos
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(".,!?;:", r)
}
