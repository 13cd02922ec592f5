package index

import (
	"sort"
	"strings"
)

// TermsMatchingPrefix returns the vocabulary terms starting with prefix in
// ascending order. An empty prefix matches every term.
func (ix *Index) TermsMatchingPrefix(prefix string) []string {
	vocab := ix.vocabulary()
	lo := sort.SearchStrings(vocab, prefix)
	var out []string
	for i := lo; i < len(vocab) && strings.HasPrefix(vocab[i], prefix); i++ {
		out = append(out, vocab[i])
	}
	return out
}

// TermsMatchingSuffix returns the vocabulary terms ending with suffix.
func (ix *Index) TermsMatchingSuffix(suffix string) []string {
	var out []string
	for _, term := range ix.vocabulary() {
		if strings.HasSuffix(term, suffix) {
			out = append(out, term)
		}
	}
	return out
}

// TermsMatching expands a pattern in which '*' stands for any run of
// characters, possibly empty. Patterns of the form "abc*" use the sorted
// vocabulary directly; everything else is a scan.
func (ix *Index) TermsMatching(pattern string) []string {
	if !strings.Contains(pattern, "*") {
		if _, ok := ix.terms[pattern]; ok {
			return []string{pattern}
		}
		return nil
	}
	parts := strings.Split(pattern, "*")
	if len(parts) == 2 && parts[1] == "" {
		return ix.TermsMatchingPrefix(parts[0])
	}
	if len(parts) == 2 && parts[0] == "" {
		return ix.TermsMatchingSuffix(parts[1])
	}

	var candidates []string
	if parts[0] != "" {
		candidates = ix.TermsMatchingPrefix(parts[0])
	} else {
		candidates = ix.vocabulary()
	}
	var out []string
	for _, term := range candidates {
		if MatchGlob(pattern, term) {
			out = append(out, term)
		}
	}
	return out
}

// MatchGlob reports whether term matches pattern, where '*' matches any
// (possibly empty) run of characters and every other byte matches itself.
func MatchGlob(pattern, term string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == term
	}
	if !strings.HasPrefix(term, parts[0]) {
		return false
	}
	rest := term[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, mid)
		if i < 0 {
			return false
		}
		rest = rest[i+len(mid):]
	}
	return len(rest) >= len(last) && strings.HasSuffix(rest, last)
}
