// Package snippet cuts a short excerpt out of a stored document around the
// first matched term position.
package snippet

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
)

const (
	DefaultRadius = 50
	ellipsis      = "..."
)

// Render returns about radius bytes of text on each side of the earliest
// of positions. Positions refer to tokens produced by analyzer over text,
// which must be the exact text that was indexed. Without a usable position
// the first 2*radius bytes are returned. Cuts never split a UTF-8 sequence
// and are marked with "...".
func Render(text string, analyzer *tokenizer.Analyzer, positions []int, radius int) string {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	if text == "" {
		return ""
	}

	start, end, ok := locate(text, analyzer, positions)
	if !ok {
		return excerpt(text, 0, 2*radius)
	}
	return excerpt(text, start-radius, end+radius)
}

// Flatten merges per-term positions into one ascending list.
func Flatten(matched map[string][]int) []int {
	var out []int
	for _, ps := range matched {
		out = append(out, ps...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// locate finds the byte range of the token at the smallest position.
func locate(text string, analyzer *tokenizer.Analyzer, positions []int) (int, int, bool) {
	if len(positions) == 0 {
		return 0, 0, false
	}
	target := slices.Min(positions)
	if target < 0 {
		return 0, 0, false
	}
	for tok := range analyzer.Analyze(text) {
		if tok.Position == target {
			return tok.Start, tok.End, true
		}
	}
	return 0, 0, false
}

func excerpt(text string, from, to int) string {
	from = max(from, 0)
	to = min(to, len(text))
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	var b strings.Builder
	if from > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(strings.TrimSpace(text[from:to]))
	if to < len(text) {
		b.WriteString(ellipsis)
	}
	return b.String()
}
