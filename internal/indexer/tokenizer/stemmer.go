package tokenizer

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Stemmer is the optional last step of the analysis pipeline. Whatever
// stemmer indexed a corpus must also analyse its queries.
type Stemmer interface {
	Name() string
	Stem(word string) string
}

const (
	StemmerNone     = "none"
	StemmerSuffix   = "suffix"
	StemmerSnowball = "snowball"
)

// NewStemmer resolves a configured stemmer name.
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case "", StemmerNone:
		return IdentityStemmer{}, nil
	case StemmerSuffix:
		return SuffixStemmer{}, nil
	case StemmerSnowball:
		return SnowballStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// IdentityStemmer leaves words untouched.
type IdentityStemmer struct{}

func (IdentityStemmer) Name() string            { return StemmerNone }
func (IdentityStemmer) Stem(word string) string { return word }

// SnowballStemmer applies the English snowball (Porter2) algorithm.
type SnowballStemmer struct{}

func (SnowballStemmer) Name() string { return StemmerSnowball }

func (SnowballStemmer) Stem(word string) string {
	return english.Stem(word, true)
}

// SuffixStemmer strips a short list of common English suffixes. It is much
// cruder than snowball but predictable, which makes it handy in tests.
type SuffixStemmer struct{}

func (SuffixStemmer) Name() string { return StemmerSuffix }

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"ed", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

func (SuffixStemmer) Stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
