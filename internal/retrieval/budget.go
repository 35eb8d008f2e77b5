package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// DefaultMaxContextLength bounds the assembled context when none is configured
const DefaultMaxContextLength = 3000

// minTruncatedChunk is the smallest remaining budget worth a truncated chunk
const minTruncatedChunk = 100

// Assemble formats snippets into a context string of at most max runes.
// Snippets are taken in order; the first one that does not fit is truncated
// with "..." if more than 100 runes remain, and assembly stops there.
func Assemble(snippets []domain.Snippet, max int) string {
	if max <= 0 {
		max = DefaultMaxContextLength
	}

	var b strings.Builder
	used := 0
	for _, s := range snippets {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			continue
		}

		chunk := content + "\n"
		if s.Title != "" {
			chunk = "**" + s.Title + "**\n" + chunk
		}

		n := utf8.RuneCountInString(chunk)
		if used+n <= max {
			b.WriteString(chunk)
			used += n
			continue
		}

		if remaining := max - used; remaining > minTruncatedChunk {
			runes := []rune(chunk)
			b.WriteString(string(runes[:remaining-3]))
			b.WriteString("...")
		}
		break
	}

	return b.String()
}
