// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

// Parser turns SPARQL query text into an ast.Query. It is not safe for
// concurrent use; construct one per query.
type Parser struct {
	lex     *lexer
	tok     token
	peeked  bool
	prologue ast.Prologue
}

// Parse parses a complete SPARQL query.
func Parse(input string) (*ast.Query, error) {
	p := &Parser{lex: newLexer(input), prologue: ast.Prologue{Prefixes: map[string]string{}}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseQuery()
}

func (p *Parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) parseErr(reason string) error {
	return &pgerr.ParseError{Line: p.tok.line, Column: p.tok.column, Reason: reason}
}

func (p *Parser) expectKeyword(kw string) error {
	if p.tok.kind != tokKeyword || p.tok.text != kw {
		return p.parseErr(fmt.Sprintf("expected %q, got %q", kw, p.tok.text))
	}
	return p.advance()
}

func (p *Parser) isKeyword(kw string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == kw
}

func (p *Parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.parseErr(fmt.Sprintf("expected %q, got %q", s, p.tok.text))
	}
	return p.advance()
}

func (p *Parser) parseQuery() (*ast.Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	switch {
	case p.isKeyword("SELECT"):
		sq, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &ast.Query{Form: ast.FormSelect, Select: sq, Prologue: p.prologue}, nil
	case p.isKeyword("ASK"):
		return p.parseAsk()
	case p.isKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.isKeyword("DESCRIBE"):
		return p.parseDescribe()
	default:
		return nil, p.parseErr("expected SELECT, ASK, CONSTRUCT, or DESCRIBE")
	}
}

func (p *Parser) parsePrologue() error {
	for {
		switch {
		case p.isKeyword("BASE"):
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.kind != tokIRI {
				return p.parseErr("expected IRI after BASE")
			}
			p.prologue.Base = p.tok.text
			if err := p.advance(); err != nil {
				return err
			}
		case p.isKeyword("PREFIX"):
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.kind != tokPNameLN && !(p.tok.kind == tokPunct && p.tok.text == ":") {
				return p.parseErr("expected prefix name after PREFIX")
			}
			prefix := strings.TrimSuffix(p.tok.text, ":")
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.kind != tokIRI {
				return p.parseErr("expected IRI after prefix name")
			}
			p.prologue.Prefixes[prefix] = p.tok.text
			if err := p.advance(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *Parser) parseSelect() (*ast.SelectQuery, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	sq := &ast.SelectQuery{Limit: -1}
	if p.isKeyword("DISTINCT") {
		sq.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.isKeyword("REDUCED") {
		sq.Reduced = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.isPunct("*") {
		sq.Star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.tok.kind == tokVar || p.isPunct("(") {
			if p.tok.kind == tokVar {
				sq.Vars = append(sq.Vars, p.tok.text)
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			if p.tok.kind != tokVar {
				return nil, p.parseErr("expected variable after AS in SELECT list")
			}
			varName := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			sq.ProjectExprs = append(sq.ProjectExprs, ast.ProjectExpr{Var: varName, Expr: expr})
		}
	}

	p.skipDatasetClauses()

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	sq.Where = where

	if err := p.parseSolutionModifiers(sq); err != nil {
		return nil, err
	}
	return sq, nil
}

func (p *Parser) skipDatasetClauses() {
	for p.isKeyword("FROM") {
		_ = p.advance()
		if p.isKeyword("NAMED") {
			_ = p.advance()
		}
		if p.tok.kind == tokIRI {
			_ = p.advance()
		}
	}
}

func (p *Parser) parseAsk() (*ast.Query, error) {
	if err := p.expectKeyword("ASK"); err != nil {
		return nil, err
	}
	p.skipDatasetClauses()
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &ast.Query{Form: ast.FormAsk, Select: &ast.SelectQuery{Where: where, Limit: -1}, Prologue: p.prologue}, nil
}

func (p *Parser) parseConstruct() (*ast.Query, error) {
	if err := p.expectKeyword("CONSTRUCT"); err != nil {
		return nil, err
	}
	var template []ast.TriplePattern
	if p.isPunct("{") {
		tpl, err := p.parseTriplesBlock()
		if err != nil {
			return nil, err
		}
		template = tpl
	}
	p.skipDatasetClauses()
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	sq := &ast.SelectQuery{Where: where, Limit: -1}
	if err := p.parseSolutionModifiers(sq); err != nil {
		return nil, err
	}
	return &ast.Query{Form: ast.FormConstruct, Select: sq, Template: template, Prologue: p.prologue}, nil
}

func (p *Parser) parseDescribe() (*ast.Query, error) {
	if err := p.expectKeyword("DESCRIBE"); err != nil {
		return nil, err
	}
	var resources []ast.TermOrVar
	if p.isPunct("*") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.tok.kind == tokVar || p.tok.kind == tokIRI || p.tok.kind == tokPNameLN {
			t, err := p.parseTermOrVar()
			if err != nil {
				return nil, err
			}
			resources = append(resources, t)
		}
	}
	p.skipDatasetClauses()

	sq := &ast.SelectQuery{Limit: -1}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		sq.Where = where
	}
	if err := p.parseSolutionModifiers(sq); err != nil {
		return nil, err
	}
	return &ast.Query{Form: ast.FormDescribe, Select: sq, Describe: resources, Prologue: p.prologue}, nil
}

func (p *Parser) parseSolutionModifiers(sq *ast.SelectQuery) error {
	if p.isKeyword("GROUP") {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for p.tok.kind == tokVar || p.isPunct("(") {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			sq.GroupBy = append(sq.GroupBy, e)
		}
	}
	if p.isKeyword("HAVING") {
		if err := p.advance(); err != nil {
			return err
		}
		e, err := p.parseBracketedExpr()
		if err != nil {
			return err
		}
		sq.Having = append(sq.Having, e)
	}
	if p.isKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			desc := false
			if p.isKeyword("ASC") {
				if err := p.advance(); err != nil {
					return err
				}
			} else if p.isKeyword("DESC") {
				desc = true
				if err := p.advance(); err != nil {
					return err
				}
			}
			var e ast.Expr
			var err error
			if p.isPunct("(") {
				e, err = p.parseBracketedExpr()
			} else if p.tok.kind == tokVar {
				e, err = p.parsePrimaryExpr()
			} else {
				e, err = p.parseExpr()
			}
			if err != nil {
				return err
			}
			sq.OrderBy = append(sq.OrderBy, ast.OrderCondition{Expr: e, Descending: desc})
			if p.tok.kind != tokVar && !p.isPunct("(") && !p.isKeyword("ASC") && !p.isKeyword("DESC") {
				break
			}
		}
	}
	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return err
		}
		sq.Limit = n
	}
	if p.isKeyword("OFFSET") {
		if err := p.advance(); err != nil {
			return err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return err
		}
		sq.Offset = n
	}
	return nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	if p.tok.kind != tokNumber {
		return 0, p.parseErr("expected integer literal")
	}
	n, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		return 0, p.parseErr("invalid integer literal " + p.tok.text)
	}
	return n, p.advance()
}

func (p *Parser) parseBracketedExpr() (ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}
