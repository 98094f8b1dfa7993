// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

// ParseUpdate parses a SPARQL 1.1 Update request: a prologue followed by
// one or more ';'-separated update operations.
func ParseUpdate(input string) (*ast.UpdateRequest, error) {
	p := &Parser{lex: newLexer(input), prologue: ast.Prologue{Prefixes: map[string]string{}}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	req := &ast.UpdateRequest{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokEOF {
			break
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		req.Operations = append(req.Operations, op)
		if p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	req.Prologue = p.prologue
	return req, nil
}

func (p *Parser) parseUpdateOp() (ast.UpdateOp, error) {
	switch {
	case p.isKeyword("INSERT"):
		return p.parseInsertOrModify()
	case p.isKeyword("DELETE"):
		return p.parseDeleteOrModify()
	case p.isKeyword("WITH"):
		return p.parseModifyWithWith()
	case p.isKeyword("LOAD"):
		return p.parseLoad()
	case p.isKeyword("CLEAR"):
		return p.parseClear()
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("DROP"):
		return p.parseDrop()
	case p.isKeyword("COPY"):
		return p.parseCopyMoveAdd("COPY")
	case p.isKeyword("MOVE"):
		return p.parseCopyMoveAdd("MOVE")
	case p.isKeyword("ADD"):
		return p.parseCopyMoveAdd("ADD")
	default:
		return nil, p.parseErr("expected an update operation")
	}
}

// parseInsertOrModify handles both "INSERT DATA { ... }" and
// "INSERT { template } [USING ...] WHERE { ... }" (DELETE template absent).
func (p *Parser) parseInsertOrModify() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil { // consume INSERT
		return nil, err
	}
	if p.isKeyword("DATA") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		quads, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		return &ast.InsertData{Quads: quads}, nil
	}
	insertTemplate, err := p.parseQuadPattern()
	if err != nil {
		return nil, err
	}
	return p.finishModify(nil, insertTemplate, nil)
}

// parseDeleteOrModify handles "DELETE DATA { ... }", "DELETE WHERE { ... }"
// (shorthand: template == pattern), and "DELETE { t } [INSERT { t }] ... WHERE { ... }".
func (p *Parser) parseDeleteOrModify() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil { // consume DELETE
		return nil, err
	}
	if p.isKeyword("DATA") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		quads, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		return &ast.DeleteData{Quads: quads}, nil
	}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		triples := flattenTriples(where)
		tmpl := []ast.QuadTemplate{{Graph: ast.GraphRef{Default: true}, Triples: triples}}
		return &ast.Modify{DeleteTemplate: tmpl, Where: where}, nil
	}
	deleteTemplate, err := p.parseQuadPattern()
	if err != nil {
		return nil, err
	}
	var insertTemplate []ast.QuadTemplate
	if p.isKeyword("INSERT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		insertTemplate, err = p.parseQuadPattern()
		if err != nil {
			return nil, err
		}
	}
	return p.finishModify(deleteTemplate, insertTemplate, nil)
}

// parseModifyWithWith handles "WITH <graph> DELETE {...} INSERT {...} WHERE {...}".
func (p *Parser) parseModifyWithWith() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil { // consume WITH
		return nil, err
	}
	graph, err := p.parseIRIRef()
	if err != nil {
		return nil, err
	}
	op, err := p.parseUpdateOp()
	if err != nil {
		return nil, err
	}
	if m, ok := op.(*ast.Modify); ok {
		m.With = &graph
	}
	return op, nil
}

func (p *Parser) finishModify(deleteTemplate, insertTemplate []ast.QuadTemplate, using []ast.GraphRef) (ast.UpdateOp, error) {
	m := &ast.Modify{DeleteTemplate: deleteTemplate, InsertTemplate: insertTemplate}
	for p.isKeyword("USING") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		named := false
		if p.isKeyword("NAMED") {
			named = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		ref := ast.GraphRef{Name: iri}
		if named {
			m.UsingNamed = append(m.UsingNamed, ref)
		} else {
			m.Using = append(m.Using, ref)
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	m.Where = where
	return m, nil
}

// parseQuadData parses the '{' ... '}' body of an INSERT/DELETE DATA
// block, which may contain "GRAPH <g> { triples }" sections in addition to
// default-graph triples.
func (p *Parser) parseQuadData() ([]ast.QuadTemplate, error) {
	quads, err := p.parseQuadPattern()
	if err != nil {
		return nil, err
	}
	for _, qt := range quads {
		if qt.Graph.IsVar {
			return nil, p.parseErr("variables are not allowed in INSERT DATA / DELETE DATA")
		}
		for _, tp := range qt.Triples {
			if tp.Subject.IsVariable() || tp.Predicate.IsVariable() || tp.Object.IsVariable() {
				return nil, p.parseErr("variables are not allowed in INSERT DATA / DELETE DATA")
			}
		}
	}
	return quads, nil
}

// parseQuadPattern parses a quad template body: a '{' ... '}' block whose
// top level may mix bare triples (default graph) with "GRAPH <g> { ... }"
// sections.
func (p *Parser) parseQuadPattern() ([]ast.QuadTemplate, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var out []ast.QuadTemplate
	var defaultTriples []ast.TriplePattern
	for !p.isPunct("}") {
		if p.isKeyword("GRAPH") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			gtv, err := p.parseTermOrVar()
			if err != nil {
				return nil, err
			}
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
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			out = append(out, ast.QuadTemplate{Graph: ast.GraphRef{Name: gtv.Value, IsVar: gtv.IsVariable()}, Triples: triples})
			continue
		}
		tp, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		defaultTriples = append(defaultTriples, tp...)
		if p.isPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if len(defaultTriples) > 0 {
		out = append(out, ast.QuadTemplate{Graph: ast.GraphRef{Default: true}, Triples: defaultTriples})
	}
	return out, p.expectPunct("}")
}

func (p *Parser) parseIRIRef() (string, error) {
	if p.tok.kind == tokIRI {
		iri := p.resolveIRI(p.tok.text)
		return iri, p.advance()
	}
	if p.tok.kind == tokPNameLN {
		iri, err := p.resolvePName(p.tok.text)
		if err != nil {
			return "", err
		}
		return iri, p.advance()
	}
	return "", p.parseErr("expected an IRI")
}

func (p *Parser) parseGraphRef() (ast.GraphRef, error) {
	switch {
	case p.isKeyword("DEFAULT"):
		return ast.GraphRef{Default: true}, p.advance()
	case p.isKeyword("NAMED"):
		return ast.GraphRef{Named: true}, p.advance()
	case p.isKeyword("ALL"):
		return ast.GraphRef{All: true}, p.advance()
	case p.isKeyword("GRAPH"):
		if err := p.advance(); err != nil {
			return ast.GraphRef{}, err
		}
		iri, err := p.parseIRIRef()
		return ast.GraphRef{Name: iri}, err
	default:
		iri, err := p.parseIRIRef()
		return ast.GraphRef{Name: iri}, err
	}
}

func (p *Parser) parseSilent() (bool, error) {
	if p.isKeyword("SILENT") {
		return true, p.advance()
	}
	return false, nil
}

func (p *Parser) parseLoad() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	source, err := p.parseIRIRef()
	if err != nil {
		return nil, err
	}
	op := &ast.Load{Source: source, Silent: silent}
	if p.isKeyword("INTO") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("GRAPH"); err != nil {
			return nil, err
		}
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		op.Into = &iri
	}
	return op, nil
}

func (p *Parser) parseClear() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	ref, err := p.parseGraphRef()
	if err != nil {
		return nil, err
	}
	return &ast.Clear{Graph: ref, Silent: silent}, nil
}

func (p *Parser) parseCreate() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("GRAPH"); err != nil {
		return nil, err
	}
	iri, err := p.parseIRIRef()
	if err != nil {
		return nil, err
	}
	return &ast.Create{Graph: iri, Silent: silent}, nil
}

func (p *Parser) parseDrop() (ast.UpdateOp, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	ref, err := p.parseGraphRef()
	if err != nil {
		return nil, err
	}
	return &ast.Drop{Graph: ref, Silent: silent}, nil
}

func (p *Parser) parseCopyMoveAdd(kind string) (ast.UpdateOp, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	src, err := p.parseGraphRef()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	dst, err := p.parseGraphRef()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "COPY":
		return &ast.Copy{Source: src, Dest: dst, Silent: silent}, nil
	case "MOVE":
		return &ast.Move{Source: src, Dest: dst, Silent: silent}, nil
	default:
		return &ast.Add{Source: src, Dest: dst, Silent: silent}, nil
	}
}

// flattenTriples collects every TriplePattern reachable from a WHERE
// pattern, used by the "DELETE WHERE { ... }" shorthand where the deleted
// template is exactly the matched pattern.
func flattenTriples(pattern ast.Pattern) []ast.TriplePattern {
	switch p := pattern.(type) {
	case *ast.BGP:
		return p.Triples
	case *ast.Join:
		return append(flattenTriples(p.Left), flattenTriples(p.Right)...)
	case *ast.Graph:
		return flattenTriples(p.Child)
	default:
		return nil
	}
}
