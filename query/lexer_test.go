package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "arithmetic",
			input: "price * 1.5e2 - 3",
			want: []Token{
				{TokenIdent, "price"}, {TokenStar, "*"}, {TokenNumber, "1.5e2"},
				{TokenMinus, "-"}, {TokenNumber, "3"}, {Type: TokenEOF},
			},
		},
		{
			name:  "comparison spellings",
			input: "a == 1 <> b != c <= d >= e",
			want: []Token{
				{TokenIdent, "a"}, {TokenEqual, "="}, {TokenNumber, "1"},
				{TokenNotEqual, "<>"}, {TokenIdent, "b"}, {TokenNotEqual, "!="},
				{TokenIdent, "c"}, {TokenLessEqual, "<="}, {TokenIdent, "d"},
				{TokenGreaterEqual, ">="}, {TokenIdent, "e"}, {Type: TokenEOF},
			},
		},
		{
			name:  "keywords ignore case",
			input: "x Is NoT nUlL and TRUE",
			want: []Token{
				{TokenIdent, "x"}, {TokenIs, "Is"}, {TokenNot, "NoT"}, {TokenNull, "nUlL"},
				{TokenAnd, "and"}, {TokenBool, "TRUE"}, {Type: TokenEOF},
			},
		},
		{
			name:  "strings and quoted identifiers",
			input: "`order id` = 'it''s' OR name = \"a\\\"b\"",
			want: []Token{
				{TokenIdent, "order id"}, {TokenEqual, "="}, {TokenString, "it's"},
				{TokenOr, "OR"}, {TokenIdent, "name"}, {TokenEqual, "="}, {TokenString, `a"b`},
				{Type: TokenEOF},
			},
		},
		{
			name:  "call with window",
			input: "rank(x, 'desc') OVER (PARTITION BY g)",
			want: []Token{
				{TokenIdent, "rank"}, {TokenLeftParen, "("}, {TokenIdent, "x"}, {TokenComma, ","},
				{TokenString, "desc"}, {TokenRightParen, ")"}, {TokenOver, "OVER"},
				{TokenLeftParen, "("}, {TokenPartition, "PARTITION"}, {TokenBy, "BY"},
				{TokenIdent, "g"}, {TokenRightParen, ")"}, {Type: TokenEOF},
			},
		},
		{
			name:  "unterminated string stops",
			input: "a = 'oops",
			want: []Token{
				{TokenIdent, "a"}, {TokenEqual, "="}, {TokenError, "unterminated string"},
			},
		},
		{
			name:  "stray character",
			input: "a ; b",
			want:  []Token{{TokenIdent, "a"}, {TokenError, ";"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "TRY_CAST", TokenTryCast.String())
	assert.Equal(t, "end of input", TokenEOF.String())
	assert.Equal(t, "TokenType(999)", TokenType(999).String())
}
