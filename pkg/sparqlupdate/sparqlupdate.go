// SPDX-License-Identifier: Apache-2.0

// Package sparqlupdate compiles a parsed SPARQL 1.1 Update request into an
// ordered sequence of quadstore batch calls. Dispatch is a type switch over
// ast.UpdateOp, the same shape pkg/migrations/execute.go uses to run an
// ordered Operation list one at a time, continuing on success and
// returning the first error encountered.
package sparqlupdate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/quadstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
	"github.com/vital-ai/vital-graph-sub011/pkg/termstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/translate"
)

// Executor runs update operations against one space's tables.
type Executor struct {
	db    pgstore.DB
	names storage.Names
	quads *quadstore.Store
	terms *termstore.Store
}

// New builds an Executor for the given space.
func New(db pgstore.DB, names storage.Names, quads *quadstore.Store, terms *termstore.Store) *Executor {
	return &Executor{db: db, names: names, quads: quads, terms: terms}
}

// Execute runs every operation in req, in order, stopping at the first
// error that is not suppressed by that operation's SILENT modifier.
func (ex *Executor) Execute(ctx context.Context, req *ast.UpdateRequest) error {
	for _, op := range req.Operations {
		if err := ex.execOne(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) execOne(ctx context.Context, op ast.UpdateOp) error {
	switch o := op.(type) {
	case *ast.InsertData:
		return ex.execInsertData(ctx, o)
	case *ast.DeleteData:
		return ex.execDeleteData(ctx, o)
	case *ast.Modify:
		return ex.execModify(ctx, o)
	case *ast.Load:
		return silenceIf(o.Silent, ex.execLoad(ctx, o))
	case *ast.Clear:
		return silenceIf(o.Silent, ex.execClear(ctx, o.Graph))
	case *ast.Create:
		return silenceIf(o.Silent, ex.execCreate(ctx, o.Graph))
	case *ast.Drop:
		return silenceIf(o.Silent, ex.execDrop(ctx, o))
	case *ast.Copy:
		return silenceIf(o.Silent, ex.execCopy(ctx, o.Source, o.Dest))
	case *ast.Move:
		return silenceIf(o.Silent, ex.execMove(ctx, o.Source, o.Dest))
	case *ast.Add:
		return silenceIf(o.Silent, ex.execAdd(ctx, o.Source, o.Dest))
	default:
		return &pgerr.TranslationError{Node: fmt.Sprintf("%T", op), Reason: "unsupported update operation"}
	}
}

func silenceIf(silent bool, err error) error {
	if silent {
		return nil
	}
	return err
}

// termOf converts a ground ast.TermOrVar into a term.Term. Callers must
// only pass positions that are not variables.
func termOf(tv ast.TermOrVar) term.Term {
	var typ term.Type
	switch tv.Kind {
	case ast.KindURI:
		typ = term.TypeURI
	case ast.KindBNode:
		typ = term.TypeBlankNode
	default:
		typ = term.TypeLiteral
	}
	var dt *uuid.UUID
	if tv.Datatype != "" {
		id := term.DeriveUUID(tv.Datatype, term.TypeURI, "", nil)
		dt = &id
	}
	return term.New(tv.Value, typ, tv.Lang, dt)
}

func graphTerm(ref ast.GraphRef) term.Term {
	if ref.Default || ref.Name == "" {
		return term.New(storage.ReservedDefaultGraph, term.TypeGraph, "", nil)
	}
	return term.New(ref.Name, term.TypeGraph, "", nil)
}

func (ex *Executor) execInsertData(ctx context.Context, op *ast.InsertData) error {
	var inputs []quadstore.InputQuad
	for _, qt := range op.Quads {
		ctxTerm := graphTerm(qt.Graph)
		for _, tp := range qt.Triples {
			inputs = append(inputs, quadstore.InputQuad{
				Subject:   termOf(tp.Subject),
				Predicate: termOf(tp.Predicate),
				Object:    termOf(tp.Object),
				Context:   ctxTerm,
			})
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	return ex.quads.AddBatch(ctx, inputs)
}

func (ex *Executor) execDeleteData(ctx context.Context, op *ast.DeleteData) error {
	var tuples []quadstore.Tuple
	for _, qt := range op.Quads {
		ctxUUID := graphTerm(qt.Graph).UUID
		for _, tp := range qt.Triples {
			tuples = append(tuples, quadstore.Tuple{
				SubjectUUID:   termOf(tp.Subject).UUID,
				PredicateUUID: termOf(tp.Predicate).UUID,
				ObjectUUID:    termOf(tp.Object).UUID,
				ContextUUID:   ctxUUID,
			})
		}
	}
	if len(tuples) == 0 {
		return nil
	}
	return ex.quads.RemoveBatch(ctx, tuples)
}

// binding is one materialized row of the WHERE clause: for each distinct
// template variable, the full term identity it was bound to.
type binding map[string]term.Term

// execModify compiles the WHERE pattern, executes it once, and for each
// result row substitutes the delete/insert templates with the row's
// bindings, accumulating every resulting quad before issuing a single
// RemoveBatch followed by a single AddBatch -- matching SPARQL Update's
// rule that DELETE and INSERT are both evaluated against the bindings
// produced before either takes effect.
func (ex *Executor) execModify(ctx context.Context, op *ast.Modify) error {
	if op.Where == nil {
		return &pgerr.TranslationError{Node: "Modify", Reason: "missing WHERE clause"}
	}

	where := op.Where
	if op.With != nil {
		where = &ast.Graph{Term: ast.TermOrVar{Kind: ast.KindURI, Value: *op.With}, Child: where}
	}
	tctx := translate.NewContext(ex.names)
	comp, err := translate.Translate(tctx, where)
	if err != nil {
		return err
	}

	vars := templateVars(op.DeleteTemplate, op.InsertTemplate)
	query, cols := buildBindingQuery(comp, vars)

	rows, err := ex.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	var bindings []binding
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		b := binding{}
		for i, c := range cols {
			b[c.varName] = c.toTerm(dest[i])
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var toDelete []quadstore.Tuple
	var toInsert []quadstore.InputQuad
	defaultGraph := term.New(storage.ReservedDefaultGraph, term.TypeGraph, "", nil)
	if op.With != nil {
		defaultGraph = term.New(*op.With, term.TypeGraph, "", nil)
	}

	for _, b := range bindings {
		for _, qt := range op.DeleteTemplate {
			g := resolveGraph(qt.Graph, b, defaultGraph)
			for _, tp := range qt.Triples {
				s, ok1 := resolveTerm(tp.Subject, b)
				p, ok2 := resolveTerm(tp.Predicate, b)
				o, ok3 := resolveTerm(tp.Object, b)
				if !ok1 || !ok2 || !ok3 {
					continue
				}
				toDelete = append(toDelete, quadstore.Tuple{SubjectUUID: s.UUID, PredicateUUID: p.UUID, ObjectUUID: o.UUID, ContextUUID: g.UUID})
			}
		}
		for _, qt := range op.InsertTemplate {
			g := resolveGraph(qt.Graph, b, defaultGraph)
			for _, tp := range qt.Triples {
				s, ok1 := resolveTerm(tp.Subject, b)
				p, ok2 := resolveTerm(tp.Predicate, b)
				o, ok3 := resolveTerm(tp.Object, b)
				if !ok1 || !ok2 || !ok3 {
					continue
				}
				toInsert = append(toInsert, quadstore.InputQuad{Subject: s, Predicate: p, Object: o, Context: g})
			}
		}
	}

	if len(toDelete) > 0 {
		if err := ex.quads.RemoveBatch(ctx, toDelete); err != nil {
			return err
		}
	}
	if len(toInsert) > 0 {
		if err := ex.quads.AddBatch(ctx, toInsert); err != nil {
			return err
		}
	}
	return nil
}

func resolveTerm(tv ast.TermOrVar, b binding) (term.Term, bool) {
	if tv.IsVariable() {
		t, ok := b[tv.Value]
		return t, ok
	}
	return termOf(tv), true
}

func resolveGraph(ref ast.GraphRef, b binding, def term.Term) term.Term {
	if ref.Default || ref.Name == "" {
		return def
	}
	if ref.IsVar {
		if t, ok := b[ref.Name]; ok {
			return t
		}
		return def
	}
	return term.New(ref.Name, term.TypeGraph, "", nil)
}

func templateVars(templates ...[]ast.QuadTemplate) []string {
	seen := map[string]bool{}
	var out []string
	add := func(tv ast.TermOrVar) {
		if tv.IsVariable() && !seen[tv.Value] {
			seen[tv.Value] = true
			out = append(out, tv.Value)
		}
	}
	for _, tmpl := range templates {
		for _, qt := range tmpl {
			if qt.Graph.IsVar {
				add(ast.TermOrVar{Kind: ast.KindVar, Value: qt.Graph.Name})
			}
			for _, tp := range qt.Triples {
				add(tp.Subject)
				add(tp.Predicate)
				add(tp.Object)
			}
		}
	}
	return out
}

type bindingColumn struct {
	varName string
	hasTerm bool // true if this column's alias is a joined term row (full identity available)
	toTerm  func(any) term.Term
}

// buildBindingQuery projects, for each variable used by a template, a
// self-describing column: when the variable is bound to a joined term row
// it projects term_text/term_type/lang via a small CASE-free concat so a
// single scanned string is rebuilt into a term by decodeTermColumn
// (text, type, lang joined with \x00, matching term.DeriveUUID's own key
// layout); a derived (non-term-row) binding projects its text as a plain
// literal, which is the best this simplified form can do without a term
// alias to join back through.
func buildBindingQuery(comp *translate.SQLComponents, vars []string) (string, []bindingColumn) {
	var cols []string
	var meta []bindingColumn
	for _, v := range vars {
		m, ok := comp.VariableMappings[v]
		if !ok {
			continue
		}
		if m.TermAlias != "" {
			expr := fmt.Sprintf("%s.term_text || chr(0) || %s.term_type || chr(0) || COALESCE(%s.lang, '')", m.TermAlias, m.TermAlias, m.TermAlias)
			cols = append(cols, fmt.Sprintf("%s AS %s", expr, v))
			meta = append(meta, bindingColumn{varName: v, hasTerm: true, toTerm: decodeTermColumn})
		} else {
			cols = append(cols, fmt.Sprintf("%s AS %s", m.SQL, v))
			vv := v
			meta = append(meta, bindingColumn{varName: vv, toTerm: func(raw any) term.Term {
				return term.New(fmt.Sprint(raw), term.TypeLiteral, "", nil)
			}})
		}
	}

	query := renderBindingSelect(cols, comp)
	return query, meta
}

func decodeTermColumn(raw any) term.Term {
	s := fmt.Sprint(raw)
	text, typ, lang := s, "literal", ""
	parts := splitNul(s)
	if len(parts) == 3 {
		text, typ, lang = parts[0], parts[1], parts[2]
	}
	return term.New(text, term.Type(typ), lang, nil)
}

func splitNul(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func renderBindingSelect(cols []string, comp *translate.SQLComponents) string {
	var sql string
	sql = "SELECT "
	if len(cols) == 0 {
		sql += "1"
	} else {
		for i, c := range cols {
			if i > 0 {
				sql += ", "
			}
			sql += c
		}
	}
	sql += fmt.Sprintf(" FROM %s", comp.FromClause)
	for _, j := range comp.Joins {
		switch j.Kind {
		case "CROSS":
			sql += fmt.Sprintf(" CROSS JOIN %s", j.Expr)
		case "LEFT":
			sql += fmt.Sprintf(" LEFT JOIN %s ON %s", j.Expr, j.On)
		case "LEFT_RAW":
			sql += fmt.Sprintf(" %s", j.Expr)
		default:
			sql += fmt.Sprintf(" JOIN %s ON %s", j.Expr, j.On)
		}
	}
	if len(comp.WhereConditions) > 0 {
		sql += " WHERE "
		for i, w := range comp.WhereConditions {
			if i > 0 {
				sql += " AND "
			}
			sql += w
		}
	}
	if comp.NeedsDistinct {
		sql = "SELECT DISTINCT " + sql[len("SELECT "):]
	}
	return sql
}

func (ex *Executor) execLoad(ctx context.Context, op *ast.Load) error {
	body, err := fetchRemote(ctx, op.Source)
	if err != nil {
		return err
	}
	triples, err := parseNTriples(body)
	if err != nil {
		return err
	}
	into := ast.GraphRef{Default: true}
	if op.Into != nil {
		into = ast.GraphRef{Name: *op.Into}
	}
	var inputs []quadstore.InputQuad
	ctxTerm := graphTerm(into)
	for _, tp := range triples {
		inputs = append(inputs, quadstore.InputQuad{Subject: termOf(tp.Subject), Predicate: termOf(tp.Predicate), Object: termOf(tp.Object), Context: ctxTerm})
	}
	if len(inputs) == 0 {
		return nil
	}
	return ex.quads.AddBatch(ctx, inputs)
}

func (ex *Executor) execClear(ctx context.Context, ref ast.GraphRef) error {
	g := graphTerm(ref)
	quadTable := ex.names.Quad
	query := fmt.Sprintf("DELETE FROM %s WHERE context_uuid = $1", quadTable)
	if ref.Named {
		// every graph except the reserved default graph, which graphTerm returns here
		query = fmt.Sprintf("DELETE FROM %s WHERE context_uuid <> $1", quadTable)
	}
	if ref.All {
		query = fmt.Sprintf("DELETE FROM %s", quadTable)
		_, err := ex.db.ExecContext(ctx, query)
		return err
	}
	_, err := ex.db.ExecContext(ctx, query, g.UUID)
	return err
}

func (ex *Executor) execCreate(ctx context.Context, graphURI string) error {
	g := term.New(graphURI, term.TypeGraph, "", nil)
	_, err := ex.terms.AddTerm(ctx, g)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (graph_uuid, graph_uri) VALUES ($1, $2) ON CONFLICT (graph_uuid) DO NOTHING", ex.names.Graph)
	_, err = ex.db.ExecContext(ctx, query, g.UUID, g.Text)
	return err
}

func (ex *Executor) execDrop(ctx context.Context, op *ast.Drop) error {
	if err := ex.execClear(ctx, op.Graph); err != nil {
		return err
	}
	if op.Graph.All || op.Graph.Default || op.Graph.Named {
		return nil
	}
	g := term.New(op.Graph.Name, term.TypeGraph, "", nil)
	query := fmt.Sprintf("DELETE FROM %s WHERE graph_uuid = $1", ex.names.Graph)
	_, err := ex.db.ExecContext(ctx, query, g.UUID)
	return err
}

func (ex *Executor) execCopy(ctx context.Context, src, dst ast.GraphRef) error {
	if graphTerm(src).UUID == graphTerm(dst).UUID {
		return nil
	}
	if err := ex.execClear(ctx, dst); err != nil {
		return err
	}
	return ex.copyQuads(ctx, src, dst)
}

func (ex *Executor) execMove(ctx context.Context, src, dst ast.GraphRef) error {
	if err := ex.execCopy(ctx, src, dst); err != nil {
		return err
	}
	return ex.execClear(ctx, src)
}

func (ex *Executor) execAdd(ctx context.Context, src, dst ast.GraphRef) error {
	return ex.copyQuads(ctx, src, dst)
}

func (ex *Executor) copyQuads(ctx context.Context, src, dst ast.GraphRef) error {
	srcUUID := graphTerm(src).UUID
	dstUUID := graphTerm(dst).UUID
	if srcUUID == dstUUID {
		return nil
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (quad_uuid, subject_uuid, predicate_uuid, object_uuid, context_uuid)
		 SELECT gen_random_uuid(), subject_uuid, predicate_uuid, object_uuid, $2
		 FROM %s WHERE context_uuid = $1
		 ON CONFLICT DO NOTHING`,
		ex.names.Quad, ex.names.Quad,
	)
	_, err := ex.db.ExecContext(ctx, query, srcUUID, dstUUID)
	return err
}
