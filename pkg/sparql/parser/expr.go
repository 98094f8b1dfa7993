// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

// parseExpr parses a full conditional-or expression: the widest-scope
// SPARQL expression production, used everywhere an Expr is expected.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

// parseNotExpr handles "NOT EXISTS {...}" / "EXISTS {...}" ahead of the
// ordinary relational level, and falls through to it otherwise.
func (p *Parser) parseNotExpr() (ast.Expr, error) {
	if p.isKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isKeyword("EXISTS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			pat, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			return &ast.ExistsExpr{Pattern: pat, Negated: true}, nil
		}
		return nil, p.parseErr("expected EXISTS after NOT")
	}
	if p.isKeyword("EXISTS") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ast.ExistsExpr{Pattern: pat}, nil
	}
	return p.parseRelational()
}

var relOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.tok.kind == tokPunct && relOps[p.tok.text] {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
	}

	if p.isKeyword("IN") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &ast.InExpr{Expr: left, List: list}, nil
	}
	if p.isKeyword("NOT") {
		save := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isKeyword("IN") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			list, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			return &ast.InExpr{Expr: left, List: list, Negated: true}, nil
		}
		// Not actually "NOT IN" -- this parseRelational call does not own
		// bare NOT elsewhere, so this is a genuine parse error.
		_ = save
		return nil, p.parseErr("expected IN after NOT")
	}

	return left, nil
}

func (p *Parser) parseExprList() ([]ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var list []ast.Expr
	for !p.isPunct(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return list, p.expectPunct(")")
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.isPunct("!") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "!", Expr: e}, nil
	}
	if p.isPunct("-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "-", Expr: e}, nil
	}
	if p.isPunct("+") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseUnary()
	}
	return p.parsePrimaryExpr()
}

var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"SAMPLE": true, "GROUP_CONCAT": true,
}

// parsePrimaryExpr parses the atomic level: literals, variables,
// bracketed sub-expressions, and function/aggregate calls.
func (p *Parser) parsePrimaryExpr() (ast.Expr, error) {
	switch {
	case p.isPunct("("):
		return p.parseBracketedExpr()

	case p.tok.kind == tokVar:
		name := p.tok.text
		return &ast.VarRef{Name: name}, p.advance()

	case p.tok.kind == tokNumber:
		lex := p.tok.text
		isFloat := strings.ContainsAny(lex, ".eE")
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NumberConst{Lexical: lex, IsInt: !isFloat, IsFloat: isFloat}, nil

	case p.tok.kind == tokString, p.tok.kind == tokIRI, p.tok.kind == tokPNameLN:
		t, err := p.parseTermOrVar()
		if err != nil {
			return nil, err
		}
		return &ast.TermConst{Term: t}, nil

	case p.isKeyword("TRUE"):
		return &ast.BoolConst{Value: true}, p.advance()
	case p.isKeyword("FALSE"):
		return &ast.BoolConst{Value: false}, p.advance()

	case p.isKeyword("BOUND"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.tok.kind != tokVar {
			return nil, p.parseErr("expected variable in BOUND()")
		}
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.FuncCall{Name: "BOUND", Args: []ast.Expr{&ast.VarRef{Name: name}}}, nil

	case p.isKeyword("IF"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &ast.FuncCall{Name: "IF", Args: args}, nil

	case p.isKeyword("COALESCE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &ast.FuncCall{Name: "COALESCE", Args: args}, nil

	case p.tok.kind == tokKeyword && aggregateFuncs[p.tok.text]:
		return p.parseAggregateCallAsExpr()

	case p.tok.kind == tokKeyword:
		return p.parseFuncCall()

	default:
		return nil, p.parseErr("unexpected token in expression: " + p.tok.text)
	}
}

// parseAggregateCallAsExpr parses an aggregate appearing directly in
// expression position (SELECT list / HAVING) and returns it as a plain
// FuncCall. Nothing in the module lifts such a call into an ast.Group or
// uses SelectQuery.GroupBy, and compiling it through sqlexpr.Compile fails
// as an unsupported builtin.
func (p *Parser) parseAggregateCallAsExpr() (ast.Expr, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	distinct := false
	if p.isKeyword("DISTINCT") {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	call := &ast.FuncCall{Name: name}
	if name == "COUNT" && p.isPunct("*") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = []ast.Expr{arg}
	}

	if name == "GROUP_CONCAT" && p.isPunct(";") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("SEPARATOR"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		if p.tok.kind != tokString {
			return nil, p.parseErr("expected string literal separator")
		}
		call.Flags = p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if distinct {
		call.Flags = "DISTINCT;" + call.Flags
	}
	return call, p.expectPunct(")")
}

func (p *Parser) parseFuncCall() (ast.Expr, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	call := &ast.FuncCall{Name: name}
	for !p.isPunct(")") {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isKeyword("SEPARATOR") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.kind == tokString {
			call.Flags = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if name == "REGEX" && len(call.Args) == 3 {
		if tc, ok := call.Args[2].(*ast.TermConst); ok {
			call.Flags = tc.Term.Value
			call.Args = call.Args[:2]
		}
	}
	return call, p.expectPunct(")")
}
