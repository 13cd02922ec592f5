package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
)

func TestRender_WindowAroundFirstMatch(t *testing.T) {
	text := strings.Repeat("lorem ", 20) + "needle" + strings.Repeat(" ipsum", 20)
	// "lorem" occupies positions 0..19, so the needle is at 20.
	got := Render(text, nil, []int{25, 20}, 10)

	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Contains(t, got, "needle")
	assert.LessOrEqual(t, len(got), len("needle")+2*10+2*len("..."))
}

func TestRender_ShortTextHasNoMarkers(t *testing.T) {
	assert.Equal(t, "quick brown fox", Render("quick brown fox", nil, []int{1}, 50))
}

func TestRender_FallsBackToLeadingText(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 10)

	got := Render(text, nil, nil, 10)
	assert.Equal(t, "abcdefghij abcdefghi...", got)

	got = Render(text, nil, []int{999}, 10)
	assert.Equal(t, "abcdefghij abcdefghi...", got)
}

func TestRender_RuneSafeCuts(t *testing.T) {
	text := strings.Repeat("é", 30) + " target " + strings.Repeat("ü", 30)

	got := Render(text, nil, []int{1}, 7)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "target")
}

func TestRender_UsesAnalyzerPositions(t *testing.T) {
	a := tokenizer.New(tokenizer.Options{StopWords: []string{}, MinTokenLength: 1, MaxTokenLength: 50})
	text := "a b c d e f g h i j k l m n o p q r s t u v w x y z"

	got := Render(text, a, []int{25}, 2)

	assert.Equal(t, "...y z", got)
}

func TestRender_EmptyText(t *testing.T) {
	assert.Empty(t, Render("", nil, []int{0}, 10))
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string][]int{"b": {4, 9}, "a": {1, 4}})
	assert.Equal(t, []int{1, 4, 9}, got)
	assert.Empty(t, Flatten(nil))
}
