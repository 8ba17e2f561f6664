package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// LineSeparator joins packed lines inside one delivery unit.
const LineSeparator = "\n"

// Chunk packs lines into delivery units of at most maxLen characters.
// Lines are normalized to "\n" endings, right-trimmed, and dropped when empty.
// Lines are packed greedily; a line longer than maxLen on its own is cut into
// maxLen-sized slices, each its own unit.
func Chunk(lines []string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, apperr.Usage("--%s: %s", config.FlagMaxContentLen, config.ErrMaxLen)
	}

	var units []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			units = append(units, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, raw := range NormalizeLines(lines) {
		n := utf8.RuneCountInString(raw)

		if currentLen > 0 && currentLen+len(LineSeparator)+n <= maxLen {
			current.WriteString(LineSeparator)
			current.WriteString(raw)
			currentLen += len(LineSeparator) + n
			continue
		}
		flush()

		if n <= maxLen {
			current.WriteString(raw)
			currentLen = n
			continue
		}
		units = append(units, hardSplit(raw, maxLen)...)
	}
	flush()
	return units, nil
}

// ChunkEach runs one chunking pass per line so that no two lines share a unit.
func ChunkEach(lines []string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, apperr.Usage("--%s: %s", config.FlagMaxContentLen, config.ErrMaxLen)
	}
	var units []string
	for _, ln := range lines {
		chunks, err := Chunk([]string{ln}, maxLen)
		if err != nil {
			return nil, err
		}
		units = append(units, chunks...)
	}
	return units, nil
}

// NormalizeLines unifies line endings, trims trailing whitespace and drops
// lines left empty.
func NormalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.ReplaceAll(ln, "\r\n", "\n")
		ln = strings.ReplaceAll(ln, "\r", "\n")
		ln = strings.TrimRightFunc(ln, unicode.IsSpace)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// hardSplit cuts s into consecutive slices of maxLen runes.
func hardSplit(s string, maxLen int) []string {
	var parts []string
	runes := []rune(s)
	for len(runes) > maxLen {
		parts = append(parts, string(runes[:maxLen]))
		runes = runes[maxLen:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
