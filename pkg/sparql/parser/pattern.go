// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

// parseGroupGraphPattern parses a '{' ... '}' group graph pattern,
// composing its members left-to-right: triples accumulate into a BGP,
// and each GraphPatternNotTriples (FILTER/OPTIONAL/UNION/MINUS/BIND/
// GRAPH/VALUES/subquery) is joined onto the running pattern by ast.Join,
// except FILTER which attaches to the running pattern via ast.Filter and
// OPTIONAL which attaches via ast.LeftJoin, per SPARQL algebra semantics.
func (p *Parser) parseGroupGraphPattern() (ast.Pattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	var result ast.Pattern
	var pendingTriples []ast.TriplePattern
	flushTriples := func() {
		if len(pendingTriples) == 0 {
			return
		}
		bgp := &ast.BGP{Triples: pendingTriples}
		pendingTriples = nil
		result = joinPattern(result, bgp)
	}

	for !p.isPunct("}") {
		switch {
		case p.isKeyword("FILTER"):
			flushTriples()
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = &ast.Filter{Child: &ast.BGP{}, Expr: expr}
			} else {
				result = &ast.Filter{Child: result, Expr: expr}
			}

		case p.isKeyword("OPTIONAL"):
			flushTriples()
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			var filter ast.Expr
			right, filter = extractTrailingFilter(right)
			result = &ast.LeftJoin{Left: defaultIfNil(result), Right: right, Filter: filter}

		case p.isKeyword("MINUS"):
			flushTriples()
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			result = &ast.Minus{Left: defaultIfNil(result), Right: right}

		case p.isKeyword("GRAPH"):
			flushTriples()
			if err := p.advance(); err != nil {
				return nil, err
			}
			term, err := p.parseTermOrVar()
			if err != nil {
				return nil, err
			}
			child, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			result = joinPattern(result, &ast.Graph{Term: term, Child: child})

		case p.isKeyword("BIND"):
			flushTriples()
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
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
				return nil, p.parseErr("expected variable after AS")
			}
			varName := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			result = &ast.Extend{Child: defaultIfNil(result), Var: varName, Expr: expr}

		case p.isKeyword("VALUES"):
			flushTriples()
			vm, err := p.parseInlineData()
			if err != nil {
				return nil, err
			}
			result = joinPattern(result, vm)

		case p.isPunct("{"):
			flushTriples()
			left, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.isKeyword("UNION") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseGroupGraphPattern()
				if err != nil {
					return nil, err
				}
				for p.isKeyword("UNION") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					next, err := p.parseGroupGraphPattern()
					if err != nil {
						return nil, err
					}
					right = &ast.Union{Left: right, Right: next}
				}
				result = joinPattern(result, &ast.Union{Left: left, Right: right})
			} else {
				result = joinPattern(result, left)
			}

		case p.isKeyword("SELECT"):
			flushTriples()
			sq, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			result = joinPattern(result, &ast.Subquery{Query: sq})

		default:
			tp, err := p.parseTriple()
			if err != nil {
				return nil, err
			}
			pendingTriples = append(pendingTriples, tp...)
		}

		if p.isPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	flushTriples()
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return defaultIfNil(result), nil
}

// defaultIfNil returns an empty BGP in place of a nil pattern, so Join/
// LeftJoin/Filter never have to special-case an absent left side.
func defaultIfNil(p ast.Pattern) ast.Pattern {
	if p == nil {
		return &ast.BGP{}
	}
	return p
}

func joinPattern(left, right ast.Pattern) ast.Pattern {
	if left == nil {
		return right
	}
	return &ast.Join{Left: left, Right: right}
}

// extractTrailingFilter pulls a single outermost ast.Filter off pattern so
// its expression can be attached to the owning LeftJoin as the OPTIONAL's
// FILTER, per the classic OPTIONAL-with-FILTER rewrite the algebra
// documents.
func extractTrailingFilter(pattern ast.Pattern) (ast.Pattern, ast.Expr) {
	if f, ok := pattern.(*ast.Filter); ok {
		return f.Child, f.Expr
	}
	return pattern, nil
}

// parseConstraint parses a FILTER's constraint: either a bracketed
// expression or a builtin-call/function-call expression.
func (p *Parser) parseConstraint() (ast.Expr, error) {
	if p.isPunct("(") {
		return p.parseBracketedExpr()
	}
	return p.parsePrimaryExpr()
}

// parseTriple parses "Subject Predicate Object (, Object)* (; Predicate Object...)*"
// and returns one or more expanded TriplePattern values.
func (p *Parser) parseTriple() ([]ast.TriplePattern, error) {
	subj, err := p.parseTermOrVar()
	if err != nil {
		return nil, err
	}

	var out []ast.TriplePattern
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.parseTermOrVar()
			if err != nil {
				return nil, err
			}
			out = append(out, ast.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
			if p.isPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parsePredicate() (ast.TermOrVar, error) {
	if p.isKeyword("A") {
		if err := p.advance(); err != nil {
			return ast.TermOrVar{}, err
		}
		return ast.TermOrVar{Kind: ast.KindURI, Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"}, nil
	}
	return p.parseTermOrVar()
}

// parseTermOrVar parses a single triple-pattern position: a variable, IRI,
// prefixed name, literal, or blank node.
func (p *Parser) parseTermOrVar() (ast.TermOrVar, error) {
	switch p.tok.kind {
	case tokVar:
		name := p.tok.text
		return ast.TermOrVar{Kind: ast.KindVar, Value: name}, p.advance()

	case tokIRI:
		v := p.resolveIRI(p.tok.text)
		return ast.TermOrVar{Kind: ast.KindURI, Value: v}, p.advance()

	case tokPNameLN:
		if strings.HasPrefix(p.tok.text, "_:") {
			return ast.TermOrVar{Kind: ast.KindBNode, Value: p.tok.text[2:]}, p.advance()
		}
		v, err := p.resolvePName(p.tok.text)
		if err != nil {
			return ast.TermOrVar{}, err
		}
		return ast.TermOrVar{Kind: ast.KindURI, Value: v}, p.advance()

	case tokString:
		return p.parseLiteralTail(p.tok.text)

	case tokNumber:
		lex := p.tok.text
		if err := p.advance(); err != nil {
			return ast.TermOrVar{}, err
		}
		datatype := "http://www.w3.org/2001/XMLSchema#integer"
		if strings.ContainsAny(lex, ".eE") {
			datatype = "http://www.w3.org/2001/XMLSchema#decimal"
		}
		return ast.TermOrVar{Kind: ast.KindLiteral, Value: lex, Datatype: datatype}, nil

	case tokKeyword:
		switch p.tok.text {
		case "TRUE":
			if err := p.advance(); err != nil {
				return ast.TermOrVar{}, err
			}
			return ast.TermOrVar{Kind: ast.KindLiteral, Value: "true", Datatype: "http://www.w3.org/2001/XMLSchema#boolean"}, nil
		case "FALSE":
			if err := p.advance(); err != nil {
				return ast.TermOrVar{}, err
			}
			return ast.TermOrVar{Kind: ast.KindLiteral, Value: "false", Datatype: "http://www.w3.org/2001/XMLSchema#boolean"}, nil
		}
		return ast.TermOrVar{}, p.parseErr("unexpected keyword " + p.tok.text + " in term position")

	case tokPunct:
		if p.tok.text == "[" {
			return p.parseAnonBlankNode()
		}
		if p.tok.text == "_" {
			return p.parseLabeledBlankNode()
		}
		return ast.TermOrVar{}, p.parseErr("unexpected token " + p.tok.text + " in term position")

	default:
		return ast.TermOrVar{}, p.parseErr("unexpected token in term position")
	}
}

var blankNodeCounter int

func (p *Parser) parseAnonBlankNode() (ast.TermOrVar, error) {
	if err := p.advance(); err != nil {
		return ast.TermOrVar{}, err
	}
	if err := p.expectPunct("]"); err != nil {
		return ast.TermOrVar{}, err
	}
	blankNodeCounter++
	return ast.TermOrVar{Kind: ast.KindBNode, Value: "_anon" + strconvItoa(blankNodeCounter)}, nil
}

func (p *Parser) parseLabeledBlankNode() (ast.TermOrVar, error) {
	if err := p.advance(); err != nil {
		return ast.TermOrVar{}, err
	}
	if err := p.expectPunct(":"); err != nil {
		return ast.TermOrVar{}, err
	}
	if p.tok.kind != tokKeyword && p.tok.kind != tokPNameLN {
		return ast.TermOrVar{}, p.parseErr("expected blank node label")
	}
	label := p.tok.text
	return ast.TermOrVar{Kind: ast.KindBNode, Value: label}, p.advance()
}

func strconvItoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (p *Parser) parseLiteralTail(lexical string) (ast.TermOrVar, error) {
	if err := p.advance(); err != nil {
		return ast.TermOrVar{}, err
	}
	t := ast.TermOrVar{Kind: ast.KindLiteral, Value: lexical}
	if p.isPunct("@") {
		// Language tags are lexed as a separate '@' punct followed by a
		// keyword/name token in this simplified grammar.
		if err := p.advance(); err != nil {
			return ast.TermOrVar{}, err
		}
		t.Lang = p.tok.text
		if err := p.advance(); err != nil {
			return ast.TermOrVar{}, err
		}
		return t, nil
	}
	if p.isPunct("^^") {
		if err := p.advance(); err != nil {
			return ast.TermOrVar{}, err
		}
		dt, err := p.parseTermOrVar()
		if err != nil {
			return ast.TermOrVar{}, err
		}
		t.Datatype = dt.Value
		return t, nil
	}
	return t, nil
}

func (p *Parser) resolveIRI(iri string) string {
	if p.prologue.Base == "" || strings.Contains(iri, "://") {
		return iri
	}
	return p.prologue.Base + iri
}

func (p *Parser) resolvePName(pname string) (string, error) {
	idx := strings.Index(pname, ":")
	prefix, local := pname[:idx], pname[idx+1:]
	ns, ok := p.prologue.Prefixes[prefix]
	if !ok {
		return "", p.parseErr("undeclared prefix " + prefix)
	}
	return ns + local, nil
}

// parseTriplesBlock parses a '{' triples '}' block used by CONSTRUCT
// templates, returning the flattened triple list without wrapping it in a
// BGP pattern node.
func (p *Parser) parseTriplesBlock() ([]ast.TriplePattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var triples []ast.TriplePattern
	for !p.isPunct("}") {
		tp, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		triples = append(triples, tp...)
		if p.isPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return triples, p.expectPunct("}")
}

// parseInlineData parses "VALUES ( ?x ?y ) { (1 2) (3 4) }" and its
// single-variable short form "VALUES ?x { 1 2 3 }".
func (p *Parser) parseInlineData() (*ast.ToMultiSet, error) {
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	var vars []string
	multiVar := false
	if p.isPunct("(") {
		multiVar = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.kind == tokVar {
			vars = append(vars, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	} else if p.tok.kind == tokVar {
		vars = append(vars, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		return nil, p.parseErr("expected variable(s) after VALUES")
	}

	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var rows []ast.ValuesRow
	for !p.isPunct("}") {
		row := ast.ValuesRow{}
		if multiVar {
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			for _, v := range vars {
				val, err := p.parseValuesEntry()
				if err != nil {
					return nil, err
				}
				row[v] = val
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		} else {
			val, err := p.parseValuesEntry()
			if err != nil {
				return nil, err
			}
			row[vars[0]] = val
		}
		rows = append(rows, row)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.ToMultiSet{Vars: vars, Rows: rows}, nil
}

func (p *Parser) parseValuesEntry() (*ast.TermOrVar, error) {
	if p.isKeyword("UNDEF") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	t, err := p.parseTermOrVar()
	if err != nil {
		return nil, err
	}
	return &t, nil
}
