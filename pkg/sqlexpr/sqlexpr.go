// SPDX-License-Identifier: Apache-2.0

// Package sqlexpr compiles a single SPARQL scalar expression into a SQL
// fragment against a set of already-known variable mappings. It has no
// third-party string-building library to reach for in the reference
// corpus -- the teacher builds SQL fragments with plain fmt.Sprintf and
// strings.Builder throughout pkg/migrations (see e.g. op_add_column.go's
// rewriteCheckExpression), so this package follows that idiom directly.
package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

// VarMapping resolves a SPARQL variable to the SQL expression that
// projects its value, plus the term alias backing it (empty if the
// variable is bound by a derived relation rather than a joined term row).
type VarMapping struct {
	SQL        string // e.g. "s_1.term_text"
	TermAlias  string // e.g. "s_1"; "" if not a term-row-backed binding
}

// Context carries everything a single expression compile needs: the
// variable bindings visible at this point in the tree, and a callback for
// allocating fresh aliases when a builtin (DATATYPE) needs to join back
// into the term table.
type Context struct {
	Vars        map[string]VarMapping
	TermTable   string
	NewAlias    func(prefix string) string
	ExtraJoins  *[]string // builtin-induced joins are appended here
	InAggregate bool      // true when compiling inside an AggregateJoin's aggregate expression
}

// Compile translates expr into a SQL boolean/scalar fragment.
func Compile(ctx *Context, expr ast.Expr) (string, error) {
	switch e := expr.(type) {
	case *ast.VarRef:
		m, ok := ctx.Vars[e.Name]
		if !ok {
			// An unbound variable surfaces as SQL NULL, which is SPARQL's
			// own error-as-unbound behavior in filter position.
			return "NULL", nil
		}
		return m.SQL, nil

	case *ast.TermConst:
		return compileTermConst(e.Term), nil

	case *ast.NumberConst:
		return e.Lexical, nil

	case *ast.BoolConst:
		if e.Value {
			return "TRUE", nil
		}
		return "FALSE", nil

	case *ast.BinaryOp:
		return compileBinaryOp(ctx, e)

	case *ast.UnaryOp:
		inner, err := Compile(ctx, e.Expr)
		if err != nil {
			return "", err
		}
		switch e.Op {
		case "-":
			return fmt.Sprintf("(-(%s))", inner), nil
		case "!":
			return fmt.Sprintf("(NOT (%s))", inner), nil
		}
		return "", &pgerr.TranslationError{Node: "UnaryOp", Reason: "unknown operator " + e.Op}

	case *ast.FuncCall:
		return compileFuncCall(ctx, e)

	case *ast.InExpr:
		return compileIn(ctx, e)

	case *ast.AggregateRef:
		return e.Name, nil

	default:
		return "", &pgerr.TranslationError{Node: fmt.Sprintf("%T", expr), Reason: "unsupported expression node"}
	}
}

func compileTermConst(t ast.TermOrVar) string {
	escaped := strings.ReplaceAll(t.Value, "'", "''")
	return fmt.Sprintf("'%s'", escaped)
}

func compileBinaryOp(ctx *Context, e *ast.BinaryOp) (string, error) {
	left, err := Compile(ctx, e.Left)
	if err != nil {
		return "", err
	}
	right, err := Compile(ctx, e.Right)
	if err != nil {
		return "", err
	}

	op := e.Op
	switch op {
	case "&&":
		op = "AND"
	case "||":
		op = "OR"
	case "!=":
		op = "<>"
	}

	if isNumericOp(op) {
		left = numericCast(left)
		right = numericCast(right)
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

func isNumericOp(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "+", "-", "*", "/":
		return true
	}
	return false
}

// numericLiteralPattern matches the lexical form of an xsd numeric value;
// shared with ISNUMERIC below, since both need the same notion of "looks
// like a number".
const numericLiteralPattern = `^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`

// numericCast moves expr into SPARQL's numeric value space before a
// comparison or arithmetic operator touches it: term_text columns are
// TEXT in pkg/storage's DDL, so ">"/"+" and friends would otherwise
// compare/operate on raw lexical strings, or fail outright against
// Postgres's text type. A value that doesn't look numeric evaluates to
// NULL rather than raising, the same way SPARQL treats a type error in a
// numeric operator as producing an unbound result.
func numericCast(expr string) string {
	return fmt.Sprintf("(CASE WHEN (%s)::text ~ '%s' THEN (%s)::numeric ELSE NULL END)", expr, numericLiteralPattern, expr)
}

func compileIn(ctx *Context, e *ast.InExpr) (string, error) {
	left, err := Compile(ctx, e.Expr)
	if err != nil {
		return "", err
	}
	items := make([]string, len(e.List))
	for i, item := range e.List {
		s, err := Compile(ctx, item)
		if err != nil {
			return "", err
		}
		items[i] = s
	}
	op := "IN"
	if e.Negated {
		op = "NOT IN"
	}
	return fmt.Sprintf("(%s %s (%s))", left, op, strings.Join(items, ", ")), nil
}

func compileFuncCall(ctx *Context, e *ast.FuncCall) (string, error) {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		s, err := Compile(ctx, a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}

	switch e.Name {
	case "BOUND":
		return fmt.Sprintf("(%s IS NOT NULL)", args[0]), nil
	case "COALESCE":
		return fmt.Sprintf("COALESCE(%s)", strings.Join(args, ", ")), nil
	case "IF":
		return fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", args[0], args[1], args[2]), nil

	case "STRLEN":
		return fmt.Sprintf("char_length(%s)", args[0]), nil
	case "UCASE":
		return fmt.Sprintf("upper(%s)", args[0]), nil
	case "LCASE":
		return fmt.Sprintf("lower(%s)", args[0]), nil
	case "CONCAT":
		return fmt.Sprintf("concat(%s)", strings.Join(args, ", ")), nil
	case "CONTAINS":
		return fmt.Sprintf("(strpos(%s, %s) > 0)", args[0], args[1]), nil
	case "STRSTARTS":
		return fmt.Sprintf("(%s LIKE %s || '%%')", args[0], args[1]), nil
	case "STRENDS":
		return fmt.Sprintf("(%s LIKE '%%' || %s)", args[0], args[1]), nil
	case "STRBEFORE":
		return fmt.Sprintf("split_part(%s, %s, 1)", args[0], args[1]), nil
	case "STRAFTER":
		return fmt.Sprintf("substring(%s FROM strpos(%s, %s) + char_length(%s))", args[0], args[0], args[1], args[1]), nil
	case "SUBSTR":
		if len(args) == 3 {
			return fmt.Sprintf("substring(%s FROM %s FOR %s)", args[0], args[1], args[2]), nil
		}
		return fmt.Sprintf("substring(%s FROM %s)", args[0], args[1]), nil
	case "REPLACE":
		return fmt.Sprintf("regexp_replace(%s, %s, %s, 'g')", args[0], args[1], args[2]), nil
	case "ENCODE_FOR_URI":
		return fmt.Sprintf("replace(encode(%s::bytea, 'escape'), ' ', '%%20')", args[0]), nil

	case "REGEX":
		op := "~"
		if strings.Contains(e.Flags, "i") {
			op = "~*"
		}
		return fmt.Sprintf("(%s %s %s)", args[0], op, args[1]), nil

	case "ABS":
		return fmt.Sprintf("abs(%s)", args[0]), nil
	case "CEIL":
		return fmt.Sprintf("ceil(%s)", args[0]), nil
	case "FLOOR":
		return fmt.Sprintf("floor(%s)", args[0]), nil
	case "ROUND":
		return fmt.Sprintf("round(%s)", args[0]), nil
	case "RAND":
		return "random()", nil

	case "STR":
		return compileStr(ctx, e.Args[0])
	case "LANG":
		return compileLang(ctx, e.Args[0])
	case "DATATYPE":
		return compileDatatype(ctx, e.Args[0])
	case "LANGMATCHES":
		return fmt.Sprintf("(%s ILIKE %s)", args[0], args[1]), nil
	case "ISURI", "ISIRI":
		return compileTypeCheck(ctx, e.Args[0], "uri")
	case "ISLITERAL":
		return compileTypeCheck(ctx, e.Args[0], "literal")
	case "ISBLANK":
		return compileTypeCheck(ctx, e.Args[0], "bnode")
	case "ISNUMERIC":
		return fmt.Sprintf("((%s)::text ~ '%s')", args[0], numericLiteralPattern), nil
	case "URI", "IRI":
		return args[0], nil
	case "STRLANG":
		return args[0], nil
	case "STRDT":
		return args[0], nil
	case "SAMETERM":
		return fmt.Sprintf("(%s = %s)", args[0], args[1]), nil

	default:
		return "", &pgerr.TranslationError{Node: "FuncCall", Reason: "unsupported builtin " + e.Name}
	}
}

// compileStr resolves STR(?x): if x is bound by a term alias, its lexical
// form is just that alias's term_text column (already the mapping's SQL
// in the common case), so STR is a pass-through over the variable's
// mapping.
func compileStr(ctx *Context, arg ast.Expr) (string, error) {
	return Compile(ctx, arg)
}

// compileLang resolves LANG(?x) by joining to the term alias's lang
// column; falls back to empty string for expression-bound variables that
// have no backing term row.
func compileLang(ctx *Context, arg ast.Expr) (string, error) {
	ref, ok := arg.(*ast.VarRef)
	if !ok {
		return "''", nil
	}
	m, ok := ctx.Vars[ref.Name]
	if !ok || m.TermAlias == "" {
		return "''", nil
	}
	return fmt.Sprintf("COALESCE(%s.lang, '')", m.TermAlias), nil
}

// compileDatatype resolves DATATYPE(?x): joins from the term row's
// datatype_id back into the term table and projects that row's term_text.
func compileDatatype(ctx *Context, arg ast.Expr) (string, error) {
	ref, ok := arg.(*ast.VarRef)
	if !ok {
		return "NULL", nil
	}
	m, ok := ctx.Vars[ref.Name]
	if !ok || m.TermAlias == "" {
		return "NULL", nil
	}
	alias := ctx.NewAlias("dt")
	join := fmt.Sprintf("LEFT JOIN %s %s ON %s.datatype_id = %s.term_uuid", ctx.TermTable, alias, m.TermAlias, alias)
	*ctx.ExtraJoins = append(*ctx.ExtraJoins, join)
	return fmt.Sprintf("%s.term_text", alias), nil
}

func compileTypeCheck(ctx *Context, arg ast.Expr, want string) (string, error) {
	ref, ok := arg.(*ast.VarRef)
	if !ok {
		return "FALSE", nil
	}
	m, ok := ctx.Vars[ref.Name]
	if !ok || m.TermAlias == "" {
		return "FALSE", nil
	}
	return fmt.Sprintf("(%s.term_type = '%s')", m.TermAlias, want), nil
}

// CompileAggregate compiles one ast.Aggregate into its SQL aggregate
// expression, e.g. "count(distinct s_1.term_text)".
func CompileAggregate(ctx *Context, agg ast.Aggregate) (string, error) {
	distinct := ""
	if agg.Distinct {
		distinct = "DISTINCT "
	}

	switch agg.Func {
	case "COUNT":
		if agg.Expr == nil {
			return "count(*)", nil
		}
		inner, err := Compile(ctx, agg.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("count(%s%s)", distinct, inner), nil

	case "SUM", "AVG", "MIN", "MAX":
		inner, err := Compile(ctx, agg.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s%s)", strings.ToLower(agg.Func), distinct, inner), nil

	case "SAMPLE":
		inner, err := Compile(ctx, agg.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("min(%s)", inner), nil

	case "GROUP_CONCAT":
		inner, err := Compile(ctx, agg.Expr)
		if err != nil {
			return "", err
		}
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		return fmt.Sprintf("string_agg(%s%s, '%s')", distinct, inner, strings.ReplaceAll(sep, "'", "''")), nil

	default:
		return "", &pgerr.TranslationError{Node: "Aggregate", Reason: "unsupported aggregate " + agg.Func}
	}
}
