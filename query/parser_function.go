package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/lazytab/frame"
)

// aggregateParsers build an aggregate from its parsed argument list
var aggregateParsers = map[string]func(p *Parser, args []Expr) (Expr, error){
	"sum":      unaryAgg(Sum),
	"mean":     unaryAgg(Mean),
	"avg":      unaryAgg(Mean),
	"min":      unaryAgg(Min),
	"max":      unaryAgg(Max),
	"median":   unaryAgg(Median),
	"first":    unaryAgg(First),
	"last":     unaryAgg(Last),
	"n_unique": unaryAgg(NUnique),
	"count": func(p *Parser, args []Expr) (Expr, error) {
		if len(args) == 0 || (len(args) == 1 && isWildcard(args[0])) {
			return CountAll(), nil
		}
		return unaryAgg(Count)(p, args)
	},
	"std":      spreadAgg(Std),
	"stddev":   spreadAgg(Std),
	"var":      spreadAgg(Var),
	"variance": spreadAgg(Var),
	"quantile": func(p *Parser, args []Expr) (Expr, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, fmt.Errorf("quantile takes 2 or 3 arguments, got %d", len(args))
		}
		prob, err := literalFloat(args[1])
		if err != nil {
			return nil, fmt.Errorf("quantile probability: %w", err)
		}
		if prob < 0 || prob > 1 {
			return nil, fmt.Errorf("quantile probability %g outside [0, 1]", prob)
		}
		q := Quantile(args[0], prob)
		if len(args) == 3 {
			name, err := literalString(args[2])
			if err != nil {
				return nil, fmt.Errorf("quantile method: %w", err)
			}
			method, err := ParseQuantileMethod(name)
			if err != nil {
				return nil, err
			}
			q = q.Interpolation(method)
		}
		return q, nil
	},
}

func unaryAgg(build func(Expr) *AggExpr) func(*Parser, []Expr) (Expr, error) {
	return func(_ *Parser, args []Expr) (Expr, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("aggregate takes 1 argument, got %d", len(args))
		}
		return build(args[0]), nil
	}
}

// spreadAgg builds std or var with an optional ddof argument
func spreadAgg(build func(Expr) *AggExpr) func(*Parser, []Expr) (Expr, error) {
	return func(_ *Parser, args []Expr) (Expr, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("aggregate takes 1 or 2 arguments, got %d", len(args))
		}
		a := build(args[0])
		if len(args) == 2 {
			ddof, err := literalInt(args[1])
			if err != nil {
				return nil, fmt.Errorf("ddof: %w", err)
			}
			a = a.Ddof(int(ddof))
		}
		return a, nil
	}
}

// parseCall parses the argument list of a function call whose name has
// already been consumed
func (p *Parser) parseCall(name string) (Expr, error) {
	if err := p.depth.Enter(); err != nil {
		return nil, err
	}
	defer p.depth.Exit()

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("expected '(' after function name: %w", err)
	}
	var args []Expr
	if p.current().Type != TokenRightParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ')' after function arguments: %w", err)
	}

	lower := strings.ToLower(name)
	if build, ok := aggregateParsers[lower]; ok {
		e, err := build(p, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lower, err)
		}
		return e, nil
	}
	switch lower {
	case "rank", "shift":
		w, err := buildWindow(lower, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lower, err)
		}
		return p.parseOver(w)
	}

	if _, ok := globalRegistry.Get(lower); !ok {
		return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidPlan, name)
	}
	return Call(lower, args...), nil
}

// buildWindow handles rank(x[, 'asc'|'desc'[, method]]) and shift(x[, n])
func buildWindow(name string, args []Expr) (*WindowExpr, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing argument")
	}
	if name == "shift" {
		if len(args) > 2 {
			return nil, fmt.Errorf("takes 1 or 2 arguments, got %d", len(args))
		}
		n := int64(1)
		if len(args) == 2 {
			var err error
			if n, err = literalInt(args[1]); err != nil {
				return nil, err
			}
		}
		return Shift(args[0], int(n)), nil
	}

	if len(args) > 3 {
		return nil, fmt.Errorf("takes 1 to 3 arguments, got %d", len(args))
	}
	desc := false
	if len(args) >= 2 {
		dir, err := literalString(args[1])
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(dir) {
		case "asc":
		case "desc":
			desc = true
		default:
			return nil, fmt.Errorf("direction must be 'asc' or 'desc', got %q", dir)
		}
	}
	w := Rank(args[0], desc)
	if len(args) == 3 {
		name, err := literalString(args[2])
		if err != nil {
			return nil, err
		}
		method, err := ParseRankMethod(name)
		if err != nil {
			return nil, err
		}
		w = w.Method(method)
	}
	return w, nil
}

// parseOver parses an optional OVER (PARTITION BY a, b) clause
func (p *Parser) parseOver(w *WindowExpr) (Expr, error) {
	if p.current().Type != TokenOver {
		return w, nil
	}
	p.advance()
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	var cols []string
	if p.current().Type == TokenPartition {
		p.advance()
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		for {
			name, err := p.parseName()
			if err != nil {
				return nil, err
			}
			cols = append(cols, name)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return w, nil
	}
	return w.Over(cols...), nil
}

func literalOf(e Expr) (*LiteralExpr, error) {
	lit, ok := e.(*LiteralExpr)
	if !ok || !lit.Value.Valid {
		return nil, fmt.Errorf("expected a literal, got %s", e)
	}
	return lit, nil
}

func literalFloat(e Expr) (float64, error) {
	lit, err := literalOf(e)
	if err != nil {
		return 0, err
	}
	f, ok := lit.Value.AsFloat64()
	if !ok {
		return 0, fmt.Errorf("expected a number, got %s", e)
	}
	return f, nil
}

func literalInt(e Expr) (int64, error) {
	lit, err := literalOf(e)
	if err != nil {
		return 0, err
	}
	if lit.Value.Type != frame.Int64 {
		return 0, fmt.Errorf("expected an integer, got %s", e)
	}
	return lit.Value.Int64(), nil
}

func literalString(e Expr) (string, error) {
	lit, err := literalOf(e)
	if err != nil {
		return "", err
	}
	if lit.Value.Type != frame.Utf8 {
		return "", fmt.Errorf("expected a string, got %s", e)
	}
	return lit.Value.Str(), nil
}
