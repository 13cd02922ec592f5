package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

func mustParse(t *testing.T, input string) *Query {
	t.Helper()
	q, err := Parse(input, nil)
	require.NoError(t, err, "query %q", input)
	return q
}

func TestParse_Canonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"rust", "rust"},
		{"Rust", "rust"},
		{"cats dogs", "(cats AND dogs)"},
		{"cats AND dogs", "(cats AND dogs)"},
		{"cats and dogs", "(cats AND dogs)"},
		{"cats OR dogs", "(cats OR dogs)"},
		{"cats NOT dogs", "(cats AND NOT dogs)"},
		{"NOT dogs", "NOT dogs"},
		{"NOT NOT dogs", "NOT NOT dogs"},
		{"a1 OR b1 c1", "(a1 OR (b1 AND c1))"},
		{"a1 b1 OR c1", "((a1 AND b1) OR c1)"},
		{"(a1 OR b1) c1", "((a1 OR b1) AND c1)"},
		{"NOT a1 b1", "(NOT a1 AND b1)"},
		{"NOT (a1 b1)", "NOT (a1 AND b1)"},
		{"x1 OR y1 OR z1", "((x1 OR y1) OR z1)"},
		{`"quick brown fox"`, `"quick brown fox"`},
		{`"Quick"`, "quick"},
		{"search*", "search*"},
		{"*ING", "*ing"},
		{"s**rch", "s*rch"},
		{"*", "*"},
		{"e-mail address", "(mail AND address)"},
		{"well-known", `"well known"`},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.input).String())
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	inputs := []string{
		`(alpha OR beta*) NOT "gamma delta"`,
		"one two three",
		"NOT x1",
	}
	for _, in := range inputs {
		assert.Equal(t, mustParse(t, in), mustParse(t, in))
	}
}

func TestParse_StructuredAST(t *testing.T) {
	q := mustParse(t, `cats NOT "big dogs" OR bird*`)

	want := &Or{
		Left: &And{
			Left:  &Term{Term: "cats"},
			Right: &Not{Child: &Phrase{Terms: []string{"big", "dogs"}}},
		},
		Right: &Wildcard{Pattern: "bird*"},
	}
	assert.Equal(t, want, q.Root)
}

func TestParse_DroppedOperands(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		dropped []string
	}{
		{"the cats", "cats", []string{"the"}},
		{"cats OR the", "cats", []string{"the"}},
		{"cats NOT the", "cats", []string{"the"}},
		{`"and"`, "", []string{`"and"`}},
		{"the a an", "", []string{"the", "a", "an"}},
		{"(the) cats", "cats", []string{"the"}},
		{"x cats", "cats", []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := mustParse(t, tt.input)
			assert.Equal(t, tt.want, q.String())
			assert.Equal(t, tt.dropped, q.Dropped)
			assert.Equal(t, tt.want == "", q.Empty())
		})
	}
}

func TestParse_QuotedKeywordIsOperand(t *testing.T) {
	a := tokenizer.New(tokenizer.Options{StopWords: []string{}})

	q, err := Parse(`rock "and" roll`, a)
	require.NoError(t, err)

	assert.Equal(t, `((rock AND "and") AND roll)`, q.String())
	assert.Empty(t, q.Dropped)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		input    string
		fragment string
		offset   int
	}{
		{`"unterminated phrase`, `"unterminated phrase`, 0},
		{"cats AND", "AND", 5},
		{"cats OR", "OR", 5},
		{"NOT", "NOT", 0},
		{"AND cats", "AND", 0},
		{"cats OR AND dogs", "OR", 5},
		{"(cats", "(", 0},
		{"cats)", ")", 4},
		{"()", "(", 0},
		{"cats (dogs OR", "OR", 11},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input, nil)
			require.Error(t, err)

			var syntaxErr *QuerySyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.fragment, syntaxErr.Fragment)
			assert.Equal(t, tt.offset, syntaxErr.Offset)
			assert.ErrorIs(t, err, apperrors.ErrQuerySyntax)
		})
	}
}

func TestParse_HyphenIsNotNegation(t *testing.T) {
	assert.Equal(t, "cats", mustParse(t, "-cats").String())
}

func TestLeaves(t *testing.T) {
	q := mustParse(t, `alpha NOT (beta OR "gamma delta") eps*`)

	leaves := Leaves(q.Root)

	require.Len(t, leaves, 4)
	assert.Equal(t, "alpha", leaves[0].Node.String())
	assert.False(t, leaves[0].Negated)
	assert.Equal(t, "beta", leaves[1].Node.String())
	assert.True(t, leaves[1].Negated)
	assert.True(t, leaves[2].Negated)
	assert.Equal(t, "eps*", leaves[3].Node.String())
	assert.False(t, leaves[3].Negated)
	assert.Empty(t, Leaves(nil))
}
