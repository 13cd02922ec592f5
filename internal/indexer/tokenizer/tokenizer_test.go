package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_NormalisesAndFilters(t *testing.T) {
	tokens := Default().Analyze("The Quick, brown FOX!").Collect()

	require.Len(t, tokens, 3)
	assert.Equal(t, []string{"quick", "brown", "fox"}, Default().Analyze("The Quick, brown FOX!").Terms())
	assert.Equal(t, 0, tokens[0].Position)
	assert.Equal(t, 1, tokens[1].Position)
	assert.Equal(t, 2, tokens[2].Position)
}

func TestAnalyze_PositionsDenseOverSurvivingTerms(t *testing.T) {
	// "is" and "a" are stop words, "x" is too short
	tokens := Tokenize("search is a x fast engine")

	require.Len(t, tokens, 3)
	assert.Equal(t, "search", tokens[0].Term)
	assert.Equal(t, 0, tokens[0].Position)
	assert.Equal(t, "fast", tokens[1].Term)
	assert.Equal(t, 1, tokens[1].Position)
	assert.Equal(t, "engine", tokens[2].Term)
	assert.Equal(t, 2, tokens[2].Position)
}

func TestAnalyze_ByteOffsets(t *testing.T) {
	text := "  Hello, wörld...  "
	tokens := Tokenize(text)

	require.Len(t, tokens, 2)
	assert.Equal(t, "Hello", text[tokens[0].Start:tokens[0].End])
	assert.Equal(t, "wörld", text[tokens[1].Start:tokens[1].End])
	assert.Equal(t, "wörld", tokens[1].Term)
}

func TestAnalyze_EmptyAndPunctuationOnly(t *testing.T) {
	inputs := []string{"", "   \n\t ", "...!!!,,,", "a an the", "!"}
	for _, in := range inputs {
		assert.Empty(t, Tokenize(in), "input %q", in)
	}
}

func TestAnalyze_Restartable(t *testing.T) {
	seq := Default().Analyze("inverted index posting lists")

	first := seq.Collect()
	second := seq.Collect()

	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestAnalyze_EarlyBreak(t *testing.T) {
	seen := 0
	for range Default().Analyze("one two three four") {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestAnalyze_InternalPunctuationSplits(t *testing.T) {
	assert.Equal(t, []string{"e", "mail"}, New(Options{MinTokenLength: 1, StopWords: []string{}}).AnalyzeTerm("e-mail"))
	assert.Equal(t, []string{"don"}, Default().AnalyzeTerm("don't"))
}

func TestAnalyze_TokenLengthBounds(t *testing.T) {
	a := New(Options{MinTokenLength: 3, MaxTokenLength: 5, StopWords: []string{}})

	assert.Equal(t, []string{"abc", "abcde"}, a.Analyze("ab abc abcde abcdef").Terms())
}

func TestAnalyze_CustomStopWords(t *testing.T) {
	a := New(Options{StopWords: []string{"Lorem"}})

	assert.Equal(t, []string{"ipsum", "and"}, a.Analyze("lorem ipsum and").Terms())
	assert.True(t, a.IsStopWord("LOREM"))
	assert.False(t, a.IsStopWord("and"))
}

func TestAnalyze_CaseInsensitiveIdentity(t *testing.T) {
	assert.Equal(t, Default().AnalyzeTerm("RUST"), Default().AnalyzeTerm("rust"))
	assert.Equal(t, Default().AnalyzeTerm("(rust)"), Default().AnalyzeTerm("Rust."))
}

func TestAnalyze_NoFailureOnOddInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("x", 10000),
		"\x00\xff\xfe",
		"日本語 テキスト",
		"emoji 🚀 rocket",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Tokenize(in) })
	}
	assert.Equal(t, []string{"emoji", "rocket"}, Default().Analyze("emoji 🚀 rocket").Terms())
}

func TestStemmers(t *testing.T) {
	tests := []struct {
		stemmer Stemmer
		in      string
		want    string
	}{
		{IdentityStemmer{}, "searching", "searching"},
		{SuffixStemmer{}, "searching", "search"},
		{SuffixStemmer{}, "searched", "search"},
		{SuffixStemmer{}, "searches", "search"},
		{SuffixStemmer{}, "class", "class"},
		{SnowballStemmer{}, "running", "run"},
		{SnowballStemmer{}, "searches", "search"},
	}
	for _, tt := range tests {
		t.Run(tt.stemmer.Name()+"/"+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stemmer.Stem(tt.in))
		})
	}
}

func TestStemmerAppliedToDocumentsAndQueries(t *testing.T) {
	a := New(Options{Stemmer: SuffixStemmer{}})

	doc := a.Analyze("Searching searched searches").Terms()
	query := a.AnalyzeTerm("SEARCHING")

	assert.Equal(t, []string{"search", "search", "search"}, doc)
	assert.Equal(t, []string{"search"}, query)
	assert.Equal(t, StemmerSuffix, a.StemmerName())
}

func TestNewStemmer(t *testing.T) {
	for _, name := range []string{"", StemmerNone, StemmerSuffix, StemmerSnowball} {
		s, err := NewStemmer(name)
		require.NoError(t, err)
		assert.NotNil(t, s)
	}
	_, err := NewStemmer("lancaster")
	assert.Error(t, err)
}
