// SPDX-License-Identifier: Apache-2.0

// Package translate compiles a SPARQL algebra tree into SQLComponents, the
// intermediate representation pkg/assemble turns into a final query.
// Dispatch is a type switch on the algebra node, the same shape the
// teacher migration tool uses to dispatch on its Operation interface
// (pkg/migrations/execute.go); here it walks ast.Pattern instead of a
// migration's ordered Operation list.
package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/sqlexpr"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

// Join is one join fragment in a SQLComponents' ordered join list.
type Join struct {
	Kind string // "CROSS", "INNER", "LEFT", or "LEFT_RAW" (Expr is a complete join clause)
	Expr string // the joined-to table/subquery expression, e.g. "t q1" or "(SELECT ...) sub1"
	On   string // join condition; empty for CROSS
}

// SQLComponents is the translator's output shape: enough fragments for
// pkg/assemble to build a complete SELECT around, for any query form.
type SQLComponents struct {
	FromClause       string
	Joins            []Join
	WhereConditions  []string
	VariableMappings map[string]sqlexpr.VarMapping
	// VariableOrder records the first-seen order variables were added to
	// VariableMappings, so a SELECT * projection can list them
	// deterministically instead of depending on Go's randomized map
	// iteration order.
	VariableOrder []string
	GroupBy       []string
	Having        []string
	NeedsDistinct bool
}

// SetVariable adds or overwrites a variable mapping, appending name to
// VariableOrder the first time it's seen.
func (c *SQLComponents) SetVariable(name string, m sqlexpr.VarMapping) {
	if _, exists := c.VariableMappings[name]; !exists {
		c.VariableOrder = append(c.VariableOrder, name)
	}
	c.VariableMappings[name] = m
}

// DeleteVariable removes a variable mapping and its order entry.
func (c *SQLComponents) DeleteVariable(name string) {
	delete(c.VariableMappings, name)
	for i, v := range c.VariableOrder {
		if v == name {
			c.VariableOrder = append(c.VariableOrder[:i], c.VariableOrder[i+1:]...)
			break
		}
	}
}

// Context carries per-query translation state: the table names for the
// space being queried, and the alias generator. Union branches and
// Subqueries get their own generator through Fork, since each renders as a
// self-contained SELECT.
type Context struct {
	Names   storage.Names
	aliases map[string]int
}

// NewContext builds a fresh translation context for one query against the
// given space tables.
func NewContext(names storage.Names) *Context {
	return &Context{Names: names, aliases: map[string]int{}}
}

// NewAlias returns the next unused alias with the given prefix, e.g.
// "q1", "q2", "s_1", "s_2".
func (c *Context) NewAlias(prefix string) string {
	c.aliases[prefix]++
	return fmt.Sprintf("%s%d", prefix, c.aliases[prefix])
}

// Fork returns a new Context sharing this one's table names but an
// independent alias generator, used by Union branches and Subqueries so
// no alias leaks across the boundary.
func (c *Context) Fork() *Context {
	return NewContext(c.Names)
}

// Translate compiles an algebra pattern into SQLComponents.
func Translate(ctx *Context, pattern ast.Pattern) (*SQLComponents, error) {
	switch p := pattern.(type) {
	case *ast.BGP:
		return translateBGP(ctx, p)
	case *ast.Join:
		return translateJoin(ctx, p)
	case *ast.LeftJoin:
		return translateLeftJoin(ctx, p)
	case *ast.Union:
		return translateUnion(ctx, p)
	case *ast.Minus:
		return translateMinus(ctx, p)
	case *ast.Filter:
		return translateFilter(ctx, p)
	case *ast.Extend:
		return translateExtend(ctx, p)
	case *ast.Graph:
		return translateGraph(ctx, p)
	case *ast.Group:
		return translateGroup(ctx, p)
	case *ast.ToMultiSet:
		return translateValues(ctx, p)
	case *ast.Subquery:
		return translateSubquery(ctx, p)
	case *ast.Project:
		return Translate(ctx, p.Child)
	case *ast.Distinct:
		comp, err := Translate(ctx, p.Child)
		if err != nil {
			return nil, err
		}
		comp.NeedsDistinct = true
		return comp, nil
	case *ast.OrderBy:
		return Translate(ctx, p.Child)
	case *ast.Slice:
		return Translate(ctx, p.Child)
	default:
		return nil, &pgerr.TranslationError{Node: fmt.Sprintf("%T", pattern), Reason: "unsupported algebra node"}
	}
}

func newComponents() *SQLComponents {
	return &SQLComponents{VariableMappings: map[string]sqlexpr.VarMapping{}}
}

// translateBGP allocates a quad alias and four term aliases per triple,
// cross-joining multiple triples so the planner picks join order freely,
// and joining same-BGP triples that share a variable on the shared term
// UUID column rather than on text.
func translateBGP(ctx *Context, bgp *ast.BGP) (*SQLComponents, error) {
	comp := newComponents()
	if len(bgp.Triples) == 0 {
		comp.FromClause = fmt.Sprintf("(SELECT 1) %s", ctx.NewAlias("empty"))
		return comp, nil
	}

	varUUIDCol := map[string]string{} // variable -> "<alias>.<uuid-col>" of first occurrence

	for i, tp := range bgp.Triples {
		qAlias := ctx.NewAlias("q")
		sAlias := ctx.NewAlias("s_")
		pAlias := ctx.NewAlias("p_")
		oAlias := ctx.NewAlias("o_")
		cAlias := ctx.NewAlias("c_")

		quadExpr := fmt.Sprintf("%s %s", ctx.Names.Quad, qAlias)
		if i == 0 {
			comp.FromClause = quadExpr
		} else {
			comp.Joins = append(comp.Joins, Join{Kind: "CROSS", Expr: quadExpr})
		}

		positions := []struct {
			term    ast.TermOrVar
			uuidCol string
			alias   string
		}{
			{tp.Subject, "subject_uuid", sAlias},
			{tp.Predicate, "predicate_uuid", pAlias},
			{tp.Object, "object_uuid", oAlias},
		}

		for _, pos := range positions {
			fullUUIDCol := fmt.Sprintf("%s.%s", qAlias, pos.uuidCol)
			joinCond := fmt.Sprintf("%s.term_uuid = %s", pos.alias, fullUUIDCol)

			if pos.term.IsVariable() {
				if existing, seen := varUUIDCol[pos.term.Value]; seen {
					comp.WhereConditions = append(comp.WhereConditions, fmt.Sprintf("%s = %s", existing, fullUUIDCol))
				} else {
					varUUIDCol[pos.term.Value] = fullUUIDCol
				}
			}

			comp.Joins = append(comp.Joins, Join{Kind: "INNER", Expr: fmt.Sprintf("%s %s", ctx.Names.Term, pos.alias), On: joinCond})

			if pos.term.IsVariable() {
				if _, already := comp.VariableMappings[pos.term.Value]; !already {
					comp.SetVariable(pos.term.Value, sqlexpr.VarMapping{SQL: pos.alias + ".term_text", TermAlias: pos.alias})
				}
			} else {
				comp.WhereConditions = append(comp.WhereConditions,
					fmt.Sprintf("%s.term_text = '%s' AND %s.term_type = '%s'", pos.alias, escapeLiteral(pos.term.Value), pos.alias, pos.term.Kind))
			}
		}

		// Context position: its term row is always joined but left
		// unconstrained (the default-graph-as-union-over-all-contexts
		// semantics) until a GRAPH wrapper narrows it.
		comp.Joins = append(comp.Joins, Join{Kind: "INNER", Expr: fmt.Sprintf("%s %s", ctx.Names.Term, cAlias), On: fmt.Sprintf("%s.term_uuid = %s.context_uuid", cAlias, qAlias)})
		comp.SetVariable("__ctx_"+qAlias, sqlexpr.VarMapping{SQL: cAlias + ".term_text", TermAlias: cAlias})
	}

	if len(bgp.Triples) >= 2 {
		comp.NeedsDistinct = true
	}
	return comp, nil
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// translateJoin combines two compiled components: the right side is
// always attached as a CROSS JOIN, and overlapping variable bindings get an
// equality condition in WHERE linking the two column expressions.
func translateJoin(ctx *Context, j *ast.Join) (*SQLComponents, error) {
	left, err := Translate(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := Translate(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	return mergeComponents(left, right), nil
}

func mergeComponents(left, right *SQLComponents) *SQLComponents {
	out := newComponents()
	out.FromClause = left.FromClause
	out.Joins = append(out.Joins, left.Joins...)

	rightFromJoin := Join{Kind: "CROSS", Expr: right.FromClause}
	out.Joins = append(out.Joins, rightFromJoin)
	out.Joins = append(out.Joins, right.Joins...)

	out.WhereConditions = append(out.WhereConditions, left.WhereConditions...)
	out.WhereConditions = append(out.WhereConditions, right.WhereConditions...)

	for _, k := range left.VariableOrder {
		out.SetVariable(k, left.VariableMappings[k])
	}
	for _, k := range right.VariableOrder {
		v := right.VariableMappings[k]
		if existing, ok := out.VariableMappings[k]; ok && !strings.HasPrefix(k, "__ctx_") {
			out.WhereConditions = append(out.WhereConditions, fmt.Sprintf("%s = %s", existing.SQL, v.SQL))
		}
		out.SetVariable(k, v)
	}

	out.NeedsDistinct = left.NeedsDistinct || right.NeedsDistinct
	return out
}

// translateLeftJoin compiles the right side as a subquery projecting all
// its variables and attaches it with LEFT JOIN on the shared-variable
// equalities; a FILTER carried by the OPTIONAL is embedded inside that
// subquery's WHERE rather than applied outside, per the documented
// OPTIONAL-with-FILTER semantics.
func translateLeftJoin(ctx *Context, lj *ast.LeftJoin) (*SQLComponents, error) {
	left, err := Translate(ctx, lj.Left)
	if err != nil {
		return nil, err
	}
	right, err := Translate(ctx, lj.Right)
	if err != nil {
		return nil, err
	}

	if lj.Filter != nil {
		exprCtx := &sqlexpr.Context{Vars: right.VariableMappings, TermTable: ctx.Names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}}
		sql, err := sqlexpr.Compile(exprCtx, lj.Filter)
		if err != nil {
			return nil, err
		}
		right.WhereConditions = append(right.WhereConditions, sql)
	}

	subAlias := ctx.NewAlias("opt")
	shared := sharedVars(left, right)

	sql, colForVar := renderSubquery(right, subAlias)

	out := newComponents()
	out.FromClause = left.FromClause
	out.Joins = append(out.Joins, left.Joins...)
	out.WhereConditions = append(out.WhereConditions, left.WhereConditions...)
	for _, k := range left.VariableOrder {
		out.SetVariable(k, left.VariableMappings[k])
	}

	var onConds []string
	for _, v := range shared {
		onConds = append(onConds, fmt.Sprintf("%s = %s", left.VariableMappings[v].SQL, colForVar(v)))
	}
	onExpr := "TRUE"
	if len(onConds) > 0 {
		onExpr = strings.Join(onConds, " AND ")
	}
	out.Joins = append(out.Joins, Join{Kind: "LEFT", Expr: fmt.Sprintf("(%s) %s", sql, subAlias), On: onExpr})

	for _, v := range right.VariableOrder {
		if strings.HasPrefix(v, "__ctx_") {
			continue
		}
		if _, isShared := left.VariableMappings[v]; !isShared {
			out.SetVariable(v, sqlexpr.VarMapping{SQL: colForVar(v)})
		}
	}
	out.NeedsDistinct = left.NeedsDistinct || right.NeedsDistinct
	return out, nil
}

func sharedVars(left, right *SQLComponents) []string {
	var shared []string
	for _, k := range left.VariableOrder {
		if strings.HasPrefix(k, "__ctx_") {
			continue
		}
		if _, ok := right.VariableMappings[k]; ok {
			shared = append(shared, k)
		}
	}
	return shared
}

// renderSubquery renders comp as a self-contained SELECT projecting every
// non-internal variable mapping as a column named after the variable, and
// returns a lookup from variable name to its column expression qualified
// by alias.
func renderSubquery(comp *SQLComponents, alias string) (string, func(string) string) {
	var cols []string
	var names []string
	for _, v := range comp.VariableOrder {
		if strings.HasPrefix(v, "__ctx_") {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", comp.VariableMappings[v].SQL, v))
		names = append(names, v)
	}
	sql := buildSelect(cols, comp)
	return sql, func(v string) string { return fmt.Sprintf("%s.%s", alias, v) }
}

func buildSelect(cols []string, comp *SQLComponents) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if comp.NeedsDistinct {
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
			// Expr is already a complete "LEFT JOIN ... ON ..." fragment,
			// emitted by builtins (DATATYPE) that need to join back into
			// the term table mid-expression.
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
	return b.String()
}

// translateUnion compiles each branch with an independent alias generator
// (via ctx.Fork) to guarantee no collisions, pads missing variables with
// NULL, and exposes the combined pattern as a UNION ALL wrapped as a
// subquery.
func translateUnion(ctx *Context, u *ast.Union) (*SQLComponents, error) {
	leftCtx := ctx.Fork()
	rightCtx := ctx.Fork()

	left, err := Translate(leftCtx, u.Left)
	if err != nil {
		return nil, err
	}
	right, err := Translate(rightCtx, u.Right)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	for _, v := range left.VariableOrder {
		if !strings.HasPrefix(v, "__ctx_") && !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	for _, v := range right.VariableOrder {
		if !strings.HasPrefix(v, "__ctx_") && !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}

	leftSQL := buildSelect(projectOrNull(left.VariableMappings, names), left)
	rightSQL := buildSelect(projectOrNull(right.VariableMappings, names), right)

	subAlias := ctx.NewAlias("u")
	combined := fmt.Sprintf("(%s UNION ALL %s)", leftSQL, rightSQL)

	out := newComponents()
	out.FromClause = fmt.Sprintf("%s %s", combined, subAlias)
	for _, v := range names {
		out.SetVariable(v, sqlexpr.VarMapping{SQL: fmt.Sprintf("%s.%s", subAlias, v)})
	}
	out.NeedsDistinct = left.NeedsDistinct || right.NeedsDistinct
	return out, nil
}

func projectOrNull(vars map[string]sqlexpr.VarMapping, names []string) []string {
	cols := make([]string, len(names))
	for i, n := range names {
		if m, ok := vars[n]; ok {
			cols[i] = fmt.Sprintf("%s AS %s", m.SQL, n)
		} else {
			cols[i] = fmt.Sprintf("NULL AS %s", n)
		}
	}
	return cols
}

// translateMinus compiles to NOT EXISTS correlated on the variables
// shared between left and right. MINUS with no shared variables is a
// documented no-op: the NOT EXISTS subquery would be unconditional, so we
// short-circuit and return left unchanged.
func translateMinus(ctx *Context, m *ast.Minus) (*SQLComponents, error) {
	left, err := Translate(ctx, m.Left)
	if err != nil {
		return nil, err
	}
	// Same alias generator as left, so the correlated subquery's aliases
	// never shadow the outer ones it is compared against.
	right, err := Translate(ctx, m.Right)
	if err != nil {
		return nil, err
	}

	shared := sharedVars(left, right)
	if len(shared) == 0 {
		return left, nil
	}

	var corr []string
	for _, v := range shared {
		corr = append(corr, fmt.Sprintf("%s = %s", left.VariableMappings[v].SQL, right.VariableMappings[v].SQL))
	}
	right.WhereConditions = append(right.WhereConditions, corr...)
	sub := buildSelect([]string{"1"}, right)

	left.WhereConditions = append(left.WhereConditions, fmt.Sprintf("NOT EXISTS (%s)", sub))
	return left, nil
}

func translateFilter(ctx *Context, f *ast.Filter) (*SQLComponents, error) {
	comp, err := Translate(ctx, f.Child)
	if err != nil {
		return nil, err
	}
	exprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: ctx.Names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}}
	sql, err := sqlexpr.Compile(exprCtx, f.Expr)
	if err != nil {
		return nil, err
	}
	for _, j := range *exprCtx.ExtraJoins {
		comp.Joins = append(comp.Joins, Join{Kind: "LEFT_RAW", Expr: j})
	}
	comp.WhereConditions = append(comp.WhereConditions, sql)
	return comp, nil
}

// translateExtend compiles BIND's expression against the current mapping
// and adds the new variable's mapping; no subquery wrap is needed since
// the binding is carried as a SELECT-list expression available to every
// downstream reference within the same scope.
func translateExtend(ctx *Context, e *ast.Extend) (*SQLComponents, error) {
	comp, err := Translate(ctx, e.Child)
	if err != nil {
		return nil, err
	}
	exprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: ctx.Names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}}
	sql, err := sqlexpr.Compile(exprCtx, e.Expr)
	if err != nil {
		return nil, err
	}
	for _, j := range *exprCtx.ExtraJoins {
		comp.Joins = append(comp.Joins, Join{Kind: "LEFT_RAW", Expr: j})
	}
	comp.SetVariable(e.Var, sqlexpr.VarMapping{SQL: sql})
	return comp, nil
}

// translateGraph binds the context position of every enclosed triple to
// Term. A constant graph URI becomes a term_text equality predicate on the
// context term row of every quad alias introduced by Child; a variable
// graph exposes that variable bound to the shared context term_text.
func translateGraph(ctx *Context, g *ast.Graph) (*SQLComponents, error) {
	comp, err := Translate(ctx, g.Child)
	if err != nil {
		return nil, err
	}

	if g.Term.IsVariable() {
		var ctxKeys []string
		for k := range comp.VariableMappings {
			if strings.HasPrefix(k, "__ctx_") {
				ctxKeys = append(ctxKeys, k)
			}
		}
		sort.Strings(ctxKeys)

		if len(ctxKeys) > 0 {
			first := comp.VariableMappings[ctxKeys[0]]
			// Every triple in the graph block must come from the same named
			// graph: tie each additional __ctx_ column to the first before
			// collapsing them all into the single bound variable.
			for _, k := range ctxKeys[1:] {
				comp.WhereConditions = append(comp.WhereConditions, fmt.Sprintf("%s = %s", first.SQL, comp.VariableMappings[k].SQL))
			}
			for _, k := range ctxKeys {
				comp.DeleteVariable(k)
			}
			comp.SetVariable(g.Term.Value, first)
		}
		return comp, nil
	}

	var ctxKeys []string
	for k := range comp.VariableMappings {
		if strings.HasPrefix(k, "__ctx_") {
			ctxKeys = append(ctxKeys, k)
		}
	}
	sort.Strings(ctxKeys)
	for _, k := range ctxKeys {
		comp.WhereConditions = append(comp.WhereConditions, fmt.Sprintf("%s = '%s'", comp.VariableMappings[k].SQL, escapeLiteral(g.Term.Value)))
		comp.DeleteVariable(k)
	}
	return comp, nil
}

// translateGroup compiles Child, then extends its SELECT list with
// grouping keys and aggregate expressions; GROUP BY lists the key
// expressions and HAVING is left for the caller (assembler) to attach
// from any filter referencing an aggregate alias.
func translateGroup(ctx *Context, g *ast.Group) (*SQLComponents, error) {
	comp, err := Translate(ctx, g.Child)
	if err != nil {
		return nil, err
	}

	exprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: ctx.Names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}, InAggregate: false}
	for _, k := range g.Keys {
		sql, err := sqlexpr.Compile(exprCtx, k)
		if err != nil {
			return nil, err
		}
		comp.GroupBy = append(comp.GroupBy, sql)
	}

	aggExprCtx := &sqlexpr.Context{Vars: comp.VariableMappings, TermTable: ctx.Names.Term, NewAlias: ctx.NewAlias, ExtraJoins: &[]string{}, InAggregate: true}
	for _, agg := range g.Aggregates {
		sql, err := sqlexpr.CompileAggregate(aggExprCtx, agg)
		if err != nil {
			return nil, err
		}
		comp.SetVariable(agg.As, sqlexpr.VarMapping{SQL: sql})
	}
	return comp, nil
}

// translateValues compiles VALUES/ToMultiSet to a VALUES(...) table
// constructor aliased as a derived relation with one column per variable.
func translateValues(ctx *Context, v *ast.ToMultiSet) (*SQLComponents, error) {
	alias := ctx.NewAlias("vals")
	var rows []string
	for _, row := range v.Rows {
		var cells []string
		for _, varName := range v.Vars {
			entry := row[varName]
			if entry == nil {
				cells = append(cells, "NULL")
			} else {
				cells = append(cells, fmt.Sprintf("'%s'", escapeLiteral(entry.Value)))
			}
		}
		rows = append(rows, fmt.Sprintf("(%s)", strings.Join(cells, ", ")))
	}

	colList := strings.Join(v.Vars, ", ")
	fromExpr := fmt.Sprintf("(VALUES %s) %s(%s)", strings.Join(rows, ", "), alias, colList)

	comp := newComponents()
	comp.FromClause = fromExpr
	for _, varName := range v.Vars {
		comp.SetVariable(varName, sqlexpr.VarMapping{SQL: fmt.Sprintf("%s.%s", alias, varName)})
	}
	return comp, nil
}

// translateSubquery compiles a nested SELECT with its own alias generator
// so it cannot leak or borrow aliases from the enclosing scope, exposing
// its projected variables as the outer mapping.
func translateSubquery(ctx *Context, s *ast.Subquery) (*SQLComponents, error) {
	subCtx := ctx.Fork()
	comp, err := Translate(subCtx, s.Query.Where)
	if err != nil {
		return nil, err
	}

	projVars := s.Query.ProjectionOrder()
	if s.Query.Star {
		for _, v := range comp.VariableOrder {
			if !strings.HasPrefix(v, "__ctx_") {
				projVars = append(projVars, v)
			}
		}
	}

	alias := ctx.NewAlias("sq")
	var cols []string
	for _, v := range projVars {
		if m, ok := comp.VariableMappings[v]; ok {
			cols = append(cols, fmt.Sprintf("%s AS %s", m.SQL, v))
		}
	}
	sql := buildSelect(cols, comp)

	out := newComponents()
	out.FromClause = fmt.Sprintf("(%s) %s", sql, alias)
	for _, v := range projVars {
		out.SetVariable(v, sqlexpr.VarMapping{SQL: fmt.Sprintf("%s.%s", alias, v)})
	}
	return out, nil
}
