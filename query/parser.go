package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// Parser parses expression text into an Expr
type Parser struct {
	tokens []Token
	pos    int
	depth  *depthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		depth:  newDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return p.unexpected(tokType.String())
	}
	p.advance()
	return nil
}

func (p *Parser) unexpected(want string) error {
	tok := p.current()
	if tok.Type == TokenError {
		return fmt.Errorf("invalid input: %s", tok.Value)
	}
	if tok.Value == "" {
		return fmt.Errorf("expected %s, got %s", want, tok.Type)
	}
	return fmt.Errorf("expected %s, got %q", want, tok.Value)
}

// ParseExpr parses a single expression with an optional trailing
// "AS name" alias, for example:
//
//	cast(unit_price - unit_cost AS float64) / unit_price AS rate
//	sum(amount) / count(*)
//	CASE WHEN qty > 10 THEN 'bulk' ELSE 'retail' END AS tier
func ParseExpr(text string) (Expr, error) {
	if err := ValidateExpression(text); err != nil {
		return nil, err
	}
	tokens := Tokenize(text)
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	p := NewParser(tokens)
	e, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	if p.current().Type == TokenAs {
		p.advance()
		name, err := p.parseName()
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", text, err)
		}
		e = Alias(e, name)
	}
	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("parse %q: %w", text, p.unexpected("end of input"))
	}
	return e, nil
}

// ParseExprs parses each string with ParseExpr
func ParseExprs(texts []string) ([]Expr, error) {
	out := make([]Expr, len(texts))
	for i, text := range texts {
		e, err := ParseExpr(text)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// ParseSortKey parses "expr [ASC|DESC] [NULLS FIRST|NULLS LAST]"
func ParseSortKey(text string) (SortKey, error) {
	if err := ValidateExpression(text); err != nil {
		return SortKey{}, err
	}
	tokens := Tokenize(text)
	if err := ValidateTokens(tokens); err != nil {
		return SortKey{}, err
	}
	if tokens[len(tokens)-1].Type == TokenEOF {
		tokens = tokens[:len(tokens)-1]
	}

	key := SortKey{}
	isWord := func(tok Token, word string) bool {
		return tok.Type == TokenIdent && strings.EqualFold(tok.Value, word)
	}
trailing:
	for n := len(tokens); n > 0; n = len(tokens) {
		last := tokens[n-1]
		switch {
		case isWord(last, "asc"):
			tokens = tokens[:n-1]
		case isWord(last, "desc"):
			key.Descending = true
			tokens = tokens[:n-1]
		case n >= 2 && isWord(tokens[n-2], "nulls") && (isWord(last, "last") || isWord(last, "first")):
			key.NullsLast = isWord(last, "last")
			tokens = tokens[:n-2]
		default:
			break trailing
		}
	}
	if len(tokens) == 0 {
		return SortKey{}, fmt.Errorf("empty sort key %q", text)
	}

	p := NewParser(tokens)
	e, err := p.parseOr()
	if err == nil && p.current().Type != TokenEOF {
		err = p.unexpected("end of input")
	}
	if err != nil {
		return SortKey{}, fmt.Errorf("parse %q: %w", text, err)
	}
	key.Expr = e
	return key, nil
}

// parseName reads an identifier or a quoted string used as a name
func (p *Parser) parseName() (string, error) {
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenString {
		return "", p.unexpected("name")
	}
	if err := ValidateColumnName(tok.Value); err != nil {
		return "", err
	}
	p.advance()
	return tok.Value, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expr, error) {
	if err := p.depth.Enter(); err != nil {
		return nil, err
	}
	defer p.depth.Exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binary(OpOr, left, right)
	}
	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binary(OpAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}
	if err := p.depth.Enter(); err != nil {
		return nil, err
	}
	defer p.depth.Exit()
	p.advance()
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return Not(x), nil
}

var comparisonOps = map[TokenType]BinaryOp{
	TokenEqual:        OpEq,
	TokenNotEqual:     OpNe,
	TokenLess:         OpLt,
	TokenLessEqual:    OpLe,
	TokenGreater:      OpGt,
	TokenGreaterEqual: OpGe,
}

// parseComparison parses comparisons and the IS NULL, IN, LIKE and BETWEEN
// predicates
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if op, ok := comparisonOps[p.current().Type]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binary(op, left, right), nil
	}

	switch p.current().Type {
	case TokenIs:
		p.advance()
		negate := false
		if p.current().Type == TokenNot {
			negate = true
			p.advance()
		}
		if err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		if negate {
			return IsNotNull(left), nil
		}
		return IsNull(left), nil
	case TokenNot:
		p.advance()
		e, err := p.parsePredicate(left)
		if err != nil {
			return nil, err
		}
		if in, ok := e.(*InExpr); ok {
			in.Negate = true
			return in, nil
		}
		return Not(e), nil
	case TokenIn, TokenLike, TokenBetween:
		return p.parsePredicate(left)
	}
	return left, nil
}

// parsePredicate parses the IN, LIKE or BETWEEN clause applied to x
func (p *Parser) parsePredicate(x Expr) (Expr, error) {
	switch p.current().Type {
	case TokenIn:
		p.advance()
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return IsIn(x, values...), nil
	case TokenLike:
		p.advance()
		if p.current().Type != TokenString {
			return nil, p.unexpected("pattern string")
		}
		pattern := p.current().Value
		p.advance()
		return Call("like", x, Lit(pattern)), nil
	case TokenBetween:
		p.advance()
		lo, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenAnd); err != nil {
			return nil, err
		}
		hi, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return Between(x, lo, hi), nil
	}
	return nil, p.unexpected("IN, LIKE or BETWEEN")
}

// parseValueList parses a parenthesized list of literals
func (p *Parser) parseValueList() ([]any, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	var values []any
	for {
		v, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return values, nil
}

// parseLiteralValue parses a possibly negated literal into a Go value
func (p *Parser) parseLiteralValue() (any, error) {
	negative := false
	if p.current().Type == TokenMinus {
		negative = true
		p.advance()
	}
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		return parseNumber(tok.Value, negative)
	case TokenString, TokenBool, TokenNull:
		if negative {
			return nil, p.unexpected("number")
		}
		p.advance()
		switch tok.Type {
		case TokenString:
			return tok.Value, nil
		case TokenBool:
			return strings.EqualFold(tok.Value, "true"), nil
		}
		return nil, nil
	}
	return nil, p.unexpected("literal")
}

// parseNumber parses an integer, falling back to float
func parseNumber(text string, negative bool) (any, error) {
	if negative {
		text = "-" + text
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", text)
	}
	return f, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		case TokenPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.current().Type {
	case TokenMinus:
		if p.peek().Type == TokenNumber {
			p.advance()
			v, err := parseNumber(p.current().Value, true)
			if err != nil {
				return nil, err
			}
			p.advance()
			return Lit(v), nil
		}
		if err := p.depth.Enter(); err != nil {
			return nil, err
		}
		defer p.depth.Exit()
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(x), nil
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, column references, parenthesized
// expressions, CASE, CAST and function calls
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		v, err := parseNumber(tok.Value, false)
		if err != nil {
			return nil, err
		}
		return Lit(v), nil
	case TokenString:
		p.advance()
		return Lit(tok.Value), nil
	case TokenBool:
		p.advance()
		return Lit(strings.EqualFold(tok.Value, "true")), nil
	case TokenNull:
		p.advance()
		return Lit(nil), nil
	case TokenStar:
		p.advance()
		return All(), nil
	case TokenLeftParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return e, nil
	case TokenCase:
		return p.parseCase()
	case TokenCast, TokenTryCast:
		return p.parseCast()
	case TokenIdent:
		if err := ValidateColumnName(tok.Value); err != nil {
			return nil, err
		}
		p.advance()
		if p.current().Type == TokenLeftParen {
			return p.parseCall(tok.Value)
		}
		return Col(tok.Value), nil
	}
	return nil, p.unexpected("expression")
}

// parseCase parses CASE WHEN p THEN a [WHEN ...] [ELSE b] END. Without ELSE
// unmatched rows are null.
func (p *Parser) parseCase() (Expr, error) {
	if err := p.depth.Enter(); err != nil {
		return nil, err
	}
	defer p.depth.Exit()
	p.advance() // CASE

	type branch struct{ pred, then Expr }
	var branches []branch
	for p.current().Type == TokenWhen {
		p.advance()
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		then, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch{pred, then})
	}
	if len(branches) == 0 {
		return nil, p.unexpected("WHEN")
	}

	var otherwise Expr = Lit(nil)
	if p.current().Type == TokenElse {
		p.advance()
		var err error
		if otherwise, err = p.parseOr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenEnd); err != nil {
		return nil, err
	}

	// SQL CASE treats an unknown condition as not matched
	for i := len(branches) - 1; i >= 0; i-- {
		otherwise = When(branches[i].pred).Then(branches[i].then).Otherwise(otherwise).NullAsFalse()
	}
	return otherwise, nil
}

// parseCast parses CAST(x AS type) and TRY_CAST(x AS type)
func (p *Parser) parseCast() (Expr, error) {
	strict := p.current().Type == TokenCast
	p.advance()
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	x, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenAs); err != nil {
		return nil, err
	}
	if p.current().Type != TokenIdent && p.current().Type != TokenNull {
		return nil, p.unexpected("type name")
	}
	to, err := frame.ParseDataType(p.current().Value)
	if err != nil {
		return nil, err
	}
	p.advance()
	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	if strict {
		return Cast(x, to), nil
	}
	return TryCast(x, to), nil
}
