// Package tokenizer turns raw text into the normalised term stream the index
// is built from. Text is split on every rune that is not a letter or digit,
// lower-cased, filtered by length and stop-word set, and finally passed
// through a pluggable stemmer. Positions are dense over the surviving terms,
// so two terms are adjacent in a phrase exactly when their positions differ
// by one after filtering.
package tokenizer

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMinTokenLength = 2
	DefaultMaxTokenLength = 50
)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// DefaultStopWords returns a copy of the built-in stop-word list.
func DefaultStopWords() []string {
	return slices.Clone(defaultStopWords)
}

// Token is a single normalised term. Start and End are byte offsets of the
// raw word in the analysed text.
type Token struct {
	Term     string
	Position int
	Start    int
	End      int
}

// Options configures an Analyzer. A nil StopWords slice selects the default
// list; an empty non-nil slice disables stop-word filtering.
type Options struct {
	StopWords      []string
	MinTokenLength int
	MaxTokenLength int
	Stemmer        Stemmer
}

func DefaultOptions() Options {
	return Options{
		MinTokenLength: DefaultMinTokenLength,
		MaxTokenLength: DefaultMaxTokenLength,
		Stemmer:        IdentityStemmer{},
	}
}

// Analyzer is immutable after construction and safe for concurrent use.
// Documents and queries must go through the same Analyzer, otherwise terms
// produced at query time will not line up with the indexed vocabulary.
type Analyzer struct {
	stopWords map[string]struct{}
	minLen    int
	maxLen    int
	stemmer   Stemmer
}

func New(opts Options) *Analyzer {
	words := opts.StopWords
	if words == nil {
		words = defaultStopWords
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[strings.ToLower(w)] = struct{}{}
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = 1
	}
	if opts.MaxTokenLength <= 0 {
		opts.MaxTokenLength = DefaultMaxTokenLength
	}
	if opts.Stemmer == nil {
		opts.Stemmer = IdentityStemmer{}
	}
	return &Analyzer{
		stopWords: stop,
		minLen:    opts.MinTokenLength,
		maxLen:    opts.MaxTokenLength,
		stemmer:   opts.Stemmer,
	}
}

var defaultAnalyzer = New(DefaultOptions())

// Default returns the analyzer built from DefaultOptions.
func Default() *Analyzer {
	return defaultAnalyzer
}

// Sequence is a lazy, finite stream of tokens. Ranging over it twice
// re-analyses the text and yields the same tokens.
type Sequence func(yield func(Token) bool)

// Collect drains the sequence into a slice.
func (s Sequence) Collect() []Token {
	tokens := make([]Token, 0, 8)
	for tok := range s {
		tokens = append(tokens, tok)
	}
	return tokens
}

// Terms drains the sequence and keeps only the term strings.
func (s Sequence) Terms() []string {
	terms := make([]string, 0, 8)
	for tok := range s {
		terms = append(terms, tok.Term)
	}
	return terms
}

// Analyze returns the token sequence for text. It never fails; empty or
// punctuation-only input produces an empty sequence.
func (a *Analyzer) Analyze(text string) Sequence {
	return func(yield func(Token) bool) {
		pos := 0
		for start, end := range words(text) {
			term, ok := a.normalize(text[start:end])
			if !ok {
				continue
			}
			if !yield(Token{Term: term, Position: pos, Start: start, End: end}) {
				return
			}
			pos++
		}
	}
}

// AnalyzeTerm runs a single query operand through the same pipeline as
// document text. A word such as "e-mail" can produce more than one term.
func (a *Analyzer) AnalyzeTerm(word string) []string {
	return a.Analyze(word).Terms()
}

// IsStopWord reports whether the lower-cased word is filtered out.
func (a *Analyzer) IsStopWord(word string) bool {
	_, ok := a.stopWords[strings.ToLower(word)]
	return ok
}

// StemmerName identifies the stemming step. It is recorded alongside
// persisted snapshots.
func (a *Analyzer) StemmerName() string {
	return a.stemmer.Name()
}

func (a *Analyzer) normalize(word string) (string, bool) {
	word = strings.ToLower(word)
	n := utf8.RuneCountInString(word)
	if n < a.minLen || n > a.maxLen {
		return "", false
	}
	if _, isStop := a.stopWords[word]; isStop {
		return "", false
	}
	stemmed := a.stemmer.Stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// Tokenize analyses text with the default analyzer.
func Tokenize(text string) []Token {
	return defaultAnalyzer.Analyze(text).Collect()
}

// words yields the byte range of every maximal run of letters and digits.
func words(text string) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(start, i) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(start, len(text))
		}
	}
}
