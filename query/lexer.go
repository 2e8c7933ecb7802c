package query

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenAnd TokenType = iota
	TokenOr
	TokenNot
	TokenAs
	TokenIn
	TokenLike
	TokenBetween
	TokenIs
	TokenNull
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenCast
	TokenTryCast
	TokenOver
	TokenPartition
	TokenBy

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenAnd: "AND", TokenOr: "OR", TokenNot: "NOT", TokenAs: "AS", TokenIn: "IN",
	TokenLike: "LIKE", TokenBetween: "BETWEEN", TokenIs: "IS", TokenNull: "NULL",
	TokenCase: "CASE", TokenWhen: "WHEN", TokenThen: "THEN", TokenElse: "ELSE",
	TokenEnd: "END", TokenCast: "CAST", TokenTryCast: "TRY_CAST", TokenOver: "OVER",
	TokenPartition: "PARTITION", TokenBy: "BY",
	TokenEqual: "=", TokenNotEqual: "!=", TokenLess: "<", TokenGreater: ">",
	TokenLessEqual: "<=", TokenGreaterEqual: ">=", TokenPlus: "+", TokenMinus: "-",
	TokenStar: "*", TokenSlash: "/", TokenPercent: "%",
	TokenString: "string", TokenNumber: "number", TokenIdent: "identifier", TokenBool: "bool",
	TokenComma: ",", TokenLeftParen: "(", TokenRightParen: ")",
	TokenEOF: "end of input", TokenError: "error",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes expression strings
type Lexer struct {
	input []rune
	pos   int
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: []rune(input)}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.pos]
	}
	l.pos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readString reads a quoted string. A doubled quote or a backslash escapes
// the quote character.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != 0 {
		switch {
		case l.ch == quote && l.peekChar() == quote:
			result.WriteRune(quote)
			l.readChar()
		case l.ch == quote:
			l.readChar()
			return result.String(), true
		case l.ch == '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 0:
				return "", false
			default:
				result.WriteRune(l.ch)
			}
		default:
			result.WriteRune(l.ch)
		}
		l.readChar()
	}
	return "", false
}

// readNumber reads an unsigned integer or decimal number with an optional
// exponent
func (l *Lexer) readNumber() string {
	var result strings.Builder
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if (l.ch == 'e' || l.ch == 'E') && (unicode.IsDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		result.WriteRune(l.ch)
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			result.WriteRune(l.ch)
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			result.WriteRune(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF}
	case '=':
		tok = Token{Type: TokenEqual, Value: "="}
		if l.peekChar() == '=' {
			l.readChar()
		}
	case '!':
		if l.peekChar() != '=' {
			tok = Token{Type: TokenError, Value: "!"}
			break
		}
		l.readChar()
		tok = Token{Type: TokenNotEqual, Value: "!="}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<="}
		case '>':
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "<>"}
		default:
			tok = Token{Type: TokenLess, Value: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">="}
		} else {
			tok = Token{Type: TokenGreater, Value: ">"}
		}
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
	case '*':
		tok = Token{Type: TokenStar, Value: "*"}
	case '/':
		tok = Token{Type: TokenSlash, Value: "/"}
	case '%':
		tok = Token{Type: TokenPercent, Value: "%"}
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
	case '\'', '"':
		s, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string"}
		}
		return Token{Type: TokenString, Value: s}
	case '`':
		// quoted identifier
		s, ok := l.readString('`')
		if !ok {
			return Token{Type: TokenError, Value: "unterminated identifier"}
		}
		return Token{Type: TokenIdent, Value: s}
	default:
		if unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())) {
			return Token{Type: TokenNumber, Value: l.readNumber()}
		}
		if unicode.IsLetter(l.ch) || l.ch == '_' {
			value := l.readIdentifier()
			return Token{Type: identifierType(value), Value: value}
		}
		tok = Token{Type: TokenError, Value: string(l.ch)}
	}

	l.readChar()
	return tok
}

var keywords = map[string]TokenType{
	"and":       TokenAnd,
	"or":        TokenOr,
	"not":       TokenNot,
	"as":        TokenAs,
	"in":        TokenIn,
	"like":      TokenLike,
	"between":   TokenBetween,
	"is":        TokenIs,
	"null":      TokenNull,
	"case":      TokenCase,
	"when":      TokenWhen,
	"then":      TokenThen,
	"else":      TokenElse,
	"end":       TokenEnd,
	"cast":      TokenCast,
	"try_cast":  TokenTryCast,
	"over":      TokenOver,
	"partition": TokenPartition,
	"by":        TokenBy,
	"true":      TokenBool,
	"false":     TokenBool,
}

// identifierType determines if an identifier is a keyword. Keywords are
// case-insensitive.
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToLower(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
