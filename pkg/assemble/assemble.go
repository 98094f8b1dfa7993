// SPDX-License-Identifier: Apache-2.0

// Package assemble turns translate.SQLComponents plus a query's form and
// solution modifiers into the final SQL text, and carries the
// case-mapping table needed to rewrite result columns back to their
// original SPARQL variable spelling.
package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/sqlexpr"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
	"github.com/vital-ai/vital-graph-sub011/pkg/translate"
)

// CaseMap records, for each emitted (lowercased, possibly suffixed) SQL
// column alias, the original SPARQL variable spelling it stands for.
type CaseMap map[string]string

// Assembled is a fully built query ready for execution.
type Assembled struct {
	SQL      string
	CaseMap  CaseMap
	IsAsk    bool
	Template []ast.TriplePattern // non-nil for CONSTRUCT
}

// constructPaginationBuffer inflates LIMIT for CONSTRUCT queries: the
// number of result rows does not equal the number of output triples, so
// pushing a raw LIMIT into SQL would under-fetch whenever the template
// has more than one triple. 1.5x is a deliberately generous safety
// margin, not a precise estimate.
const constructPaginationBuffer = 1.5

// Assemble builds the final SQL for a parsed SPARQL query.
func Assemble(names storage.Names, q *ast.Query) (*Assembled, error) {
	switch q.Form {
	case ast.FormSelect:
		return assembleSelect(names, q.Select)
	case ast.FormAsk:
		return assembleAsk(names, q.Select)
	case ast.FormConstruct:
		return assembleConstruct(names, q)
	case ast.FormDescribe:
		return assembleDescribe(names, q)
	default:
		return nil, &pgerr.TranslationError{Node: string(q.Form), Reason: "unsupported query form"}
	}
}

// allocateCaseMap assigns lowercase SQL-safe aliases to each SPARQL
// variable, in first-seen order, suffixing _1, _2, ... when two variables
// collide case-insensitively (?x and ?X).
func allocateCaseMap(vars []string) CaseMap {
	cm := CaseMap{}
	used := map[string]bool{}
	for _, v := range vars {
		lower := strings.ToLower(v)
		candidate := lower
		n := 0
		for used[candidate] {
			n++
			candidate = fmt.Sprintf("%s_%d", lower, n)
		}
		used[candidate] = true
		cm[candidate] = v
	}
	return cm
}

// projectExpr returns the SQL to project for a variable mapping. Term-row
// backed mappings project the packed text/type/lang triple so the caller
// can recover the RDF term kind when shaping results; derived mappings
// (BIND expressions, aggregates) have no term row to join against and
// project their raw SQL, which resultshape treats as a plain literal.
func projectExpr(m sqlexpr.VarMapping) string {
	if m.TermAlias != "" {
		return term.EncodedColumnExpr(m.TermAlias)
	}
	return m.SQL
}

func projectionVars(sq *ast.SelectQuery, comp *translate.SQLComponents) []string {
	if sq.Star || (len(sq.Vars) == 0 && len(sq.ProjectExprs) == 0) {
		var vars []string
		for _, v := range comp.VariableOrder {
			if !strings.HasPrefix(v, "__ctx_") {
				vars = append(vars, v)
			}
		}
		return vars
	}
	return sq.ProjectionOrder()
}

func assembleSelect(names storage.Names, sq *ast.SelectQuery) (*Assembled, error) {
	ctx := translate.NewContext(names)
	comp, err := translate.Translate(ctx, sq.Where)
	if err != nil {
		return nil, err
	}

	if err := applyExtraProjections(ctx, names, comp, sq); err != nil {
		return nil, err
	}

	vars := projectionVars(sq, comp)
	caseMap := allocateCaseMap(vars)

	var cols []string
	inverseMap := map[string]string{}
	for alias, orig := range caseMap {
		inverseMap[orig] = alias
	}
	for _, v := range vars {
		m, ok := comp.VariableMappings[v]
		if !ok {
			return nil, &pgerr.TranslationError{Node: "Project", Reason: "projected variable ?" + v + " has no mapping"}
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", projectExpr(m), inverseMap[v]))
	}

	needsDistinct := sq.Distinct || comp.NeedsDistinct

	var having []string
	exprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}}
	for _, h := range sq.Having {
		sql, err := sqlexpr.Compile(exprCtx, h)
		if err != nil {
			return nil, err
		}
		having = append(having, sql)
	}
	comp.Having = append(comp.Having, having...)

	var orderBy []string
	for _, oc := range sq.OrderBy {
		sql, err := sqlexpr.Compile(exprCtx, oc.Expr)
		if err != nil {
			return nil, err
		}
		if oc.Descending {
			sql += " DESC"
		}
		orderBy = append(orderBy, sql)
	}

	sqlText := renderQuery(cols, comp, needsDistinct, orderBy, sq.Limit, sq.Offset)
	return &Assembled{SQL: sqlText, CaseMap: caseMap}, nil
}

// applyExtraProjections compiles any (expr AS ?var) SELECT-list
// projections against the translated mapping, adding each as a new
// variable mapping the same way BIND does.
func applyExtraProjections(ctx *translate.Context, names storage.Names, comp *translate.SQLComponents, sq *ast.SelectQuery) error {
	if len(sq.ProjectExprs) == 0 {
		return nil
	}
	exprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}}
	for _, pe := range sq.ProjectExprs {
		sql, err := sqlexpr.Compile(exprCtx, pe.Expr)
		if err != nil {
			return err
		}
		comp.SetVariable(pe.Var, sqlexpr.VarMapping{SQL: sql})
	}
	return nil
}

func renderQuery(cols []string, comp *translate.SQLComponents, distinct bool, orderBy []string, limit, offset int64) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if distinct {
		b.WriteString("DISTINCT ")
	}
	if len(cols) == 0 {
		b.WriteString("1")
	} else {
		b.WriteString(strings.Join(cols, ", "))
	}
	fmt.Fprintf(&b, " FROM %s", comp.FromClause)
	for _, j := range comp.Joins {
		switch j.Kind {
		case "CROSS":
			fmt.Fprintf(&b, " CROSS JOIN %s", j.Expr)
		case "LEFT":
			fmt.Fprintf(&b, " LEFT JOIN %s ON %s", j.Expr, j.On)
		case "LEFT_RAW":
			fmt.Fprintf(&b, " %s", j.Expr)
		default:
			fmt.Fprintf(&b, " JOIN %s ON %s", j.Expr, j.On)
		}
	}
	if len(comp.WhereConditions) > 0 {
		fmt.Fprintf(&b, " WHERE %s", strings.Join(comp.WhereConditions, " AND "))
	}
	if len(comp.GroupBy) > 0 {
		fmt.Fprintf(&b, " GROUP BY %s", strings.Join(comp.GroupBy, ", "))
	}
	if len(comp.Having) > 0 {
		fmt.Fprintf(&b, " HAVING %s", strings.Join(comp.Having, " AND "))
	}
	if len(orderBy) > 0 {
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(orderBy, ", "))
	}
	if limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func assembleAsk(names storage.Names, sq *ast.SelectQuery) (*Assembled, error) {
	ctx := translate.NewContext(names)
	comp, err := translate.Translate(ctx, sq.Where)
	if err != nil {
		return nil, err
	}
	sqlText := renderQuery([]string{"1"}, comp, false, nil, 1, 0)
	return &Assembled{SQL: sqlText, IsAsk: true}, nil
}

func assembleConstruct(names storage.Names, q *ast.Query) (*Assembled, error) {
	ctx := translate.NewContext(names)
	comp, err := translate.Translate(ctx, q.Select.Where)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var vars []string
	for _, tp := range q.Template {
		for _, pos := range []ast.TermOrVar{tp.Subject, tp.Predicate, tp.Object} {
			if pos.IsVariable() && !seen[pos.Value] {
				seen[pos.Value] = true
				vars = append(vars, pos.Value)
			}
		}
	}
	caseMap := allocateCaseMap(vars)
	inverse := map[string]string{}
	for alias, orig := range caseMap {
		inverse[orig] = alias
	}

	var cols []string
	for _, v := range vars {
		m, ok := comp.VariableMappings[v]
		if !ok {
			return nil, &pgerr.TranslationError{Node: "Construct", Reason: "template variable ?" + v + " is not bound by WHERE"}
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", projectExpr(m), inverse[v]))
	}

	limit := q.Select.Limit
	if limit >= 0 {
		limit = int64(float64(limit) * constructPaginationBuffer)
	}

	sqlText := renderQuery(cols, comp, true, nil, limit, q.Select.Offset)
	return &Assembled{SQL: sqlText, CaseMap: caseMap, Template: q.Template}, nil
}

func assembleDescribe(names storage.Names, q *ast.Query) (*Assembled, error) {
	quadAlias, sAlias, pAlias, oAlias := "q1", "s1", "p1", "o1"

	if q.Select.Where == nil {
		var in []string
		for _, r := range q.Describe {
			in = append(in, fmt.Sprintf("'%s'", strings.ReplaceAll(r.Value, "'", "''")))
		}
		sqlText := fmt.Sprintf(
			`SELECT %s AS subject, %s AS predicate, %s AS object
			 FROM %s %s
			 JOIN %s %s ON %s.subject_uuid = %s.term_uuid
			 JOIN %s %s ON %s.predicate_uuid = %s.term_uuid
			 JOIN %s %s ON %s.object_uuid = %s.term_uuid
			 WHERE %s.term_text IN (%s)
			 ORDER BY 1, 2, 3`,
			term.EncodedColumnExpr(sAlias), term.EncodedColumnExpr(pAlias), term.EncodedColumnExpr(oAlias),
			names.Quad, quadAlias,
			names.Term, sAlias, quadAlias, sAlias,
			names.Term, pAlias, quadAlias, pAlias,
			names.Term, oAlias, quadAlias, oAlias,
			sAlias, strings.Join(in, ", "),
		)
		return &Assembled{SQL: sqlText}, nil
	}

	ctx := translate.NewContext(names)
	comp, err := translate.Translate(ctx, q.Select.Where)
	if err != nil {
		return nil, err
	}
	resourceVars := projectionVars(q.Select, comp)
	if len(resourceVars) == 0 {
		return nil, &pgerr.TranslationError{Node: "Describe", Reason: "no resource variable to describe"}
	}
	resourceVar := resourceVars[0]
	resourceMapping, ok := comp.VariableMappings[resourceVar]
	if !ok {
		return nil, &pgerr.TranslationError{Node: "Describe", Reason: "describe variable is not bound"}
	}

	resourcesSQL := renderQuery([]string{resourceMapping.SQL + " AS resource"}, comp, true, nil, -1, 0)

	sqlText := fmt.Sprintf(
		`SELECT %s AS subject, %s AS predicate, %s AS object
		 FROM (%s) describe_targets
		 JOIN %s %s ON %s.subject_uuid = (SELECT term_uuid FROM %s WHERE term_text = describe_targets.resource LIMIT 1)
		 JOIN %s %s ON %s.subject_uuid = %s.term_uuid
		 JOIN %s %s ON %s.predicate_uuid = %s.term_uuid
		 JOIN %s %s ON %s.object_uuid = %s.term_uuid
		 ORDER BY 1, 2, 3`,
		term.EncodedColumnExpr(sAlias), term.EncodedColumnExpr(pAlias), term.EncodedColumnExpr(oAlias),
		resourcesSQL,
		names.Quad, quadAlias, quadAlias, names.Term,
		names.Term, sAlias, quadAlias, sAlias,
		names.Term, pAlias, quadAlias, pAlias,
		names.Term, oAlias, quadAlias, oAlias,
	)
	return &Assembled{SQL: sqlText}, nil
}

// QuoteLimit renders a non-negative int64 limit for embedding directly in
// generated SQL outside of Assemble. No package in this module calls it.
func QuoteLimit(n int64) string {
	return strconv.FormatInt(n, 10)
}
