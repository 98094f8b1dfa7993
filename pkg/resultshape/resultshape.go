// SPDX-License-Identifier: Apache-2.0

// Package resultshape executes an assembled SQL query against a server-side
// cursor, memory- and row-bounded, and shapes the rows it collects into the
// SPARQL 1.1 Query Results JSON Format. It is the only package that ever
// opens a pgstore.Cursor: everything upstream (pkg/translate, pkg/assemble)
// only ever produces SQL text, never runs it.
package resultshape

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vital-ai/vital-graph-sub011/pkg/assemble"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
)

// Limits bounds how much of a result set execution will materialize before
// truncating.
type Limits struct {
	MaxRows     int
	MaxMemoryMB int
}

// DefaultLimits matches the defaults a freshly opened space enforces when
// the caller does not override them.
var DefaultLimits = Limits{MaxRows: 100_000, MaxMemoryMB: 500}

func (l Limits) orDefault() Limits {
	if l.MaxRows <= 0 {
		l.MaxRows = DefaultLimits.MaxRows
	}
	if l.MaxMemoryMB <= 0 {
		l.MaxMemoryMB = DefaultLimits.MaxMemoryMB
	}
	return l
}

// Value is one SPARQL JSON result-format term: {"type", "value", ...}.
type Value struct {
	Type     string // "uri", "literal", "bnode"
	Value    string
	Datatype string // only set for a typed literal
	Lang     string // only set for a language-tagged literal
}

func valueFromTerm(text string, typ term.Type, lang string) Value {
	v := Value{Value: text, Lang: lang}
	switch typ {
	case term.TypeURI:
		v.Type = "uri"
	case term.TypeBlankNode:
		v.Type = "bnode"
	default:
		v.Type = "literal"
	}
	return v
}

func valueFromTermOrVar(tv ast.TermOrVar) Value {
	switch tv.Kind {
	case ast.KindURI:
		return Value{Type: "uri", Value: tv.Value}
	case ast.KindBNode:
		return Value{Type: "bnode", Value: tv.Value}
	default:
		return Value{Type: "literal", Value: tv.Value, Lang: tv.Lang, Datatype: tv.Datatype}
	}
}

// Binding is one SELECT result row, keyed by original SPARQL variable name.
type Binding map[string]Value

// SelectResult is the shaped output of a SELECT query.
type SelectResult struct {
	Vars      []string
	Bindings  []Binding
	Truncated bool
}

// Triple is one CONSTRUCT/DESCRIBE output triple.
type Triple struct {
	Subject   Value
	Predicate Value
	Object    Value
}

// ConstructResult is the shaped output of a CONSTRUCT or DESCRIBE query.
type ConstructResult struct {
	Triples   []Triple
	Truncated bool
}

// AskResult is the shaped output of an ASK query.
type AskResult struct {
	Ask bool
}

var cursorSeq atomic.Int64

func nextCursorName() string {
	return fmt.Sprintf("rs_%d", cursorSeq.Add(1))
}

// decodeRow turns one pgx result row into a map keyed by the SQL column
// alias pgx reports, decoding any NUL-packed term column back into its
// text/type/lang parts.
func decodeRow(fields []pgconn.FieldDescription, values []any) map[string]Value {
	row := make(map[string]Value, len(fields))
	for i, f := range fields {
		switch raw := values[i].(type) {
		case nil:
			continue
		case string:
			text, typ, lang := term.DecodeColumn(raw)
			row[f.Name] = valueFromTerm(text, typ, lang)
		default:
			row[f.Name] = Value{Type: "literal", Value: fmt.Sprint(raw)}
		}
	}
	return row
}

// rowByteSize is a rough memory estimate for one decoded row, used to trip
// max_memory_mb without needing an exact accounting of driver-side buffers.
func rowByteSize(row map[string]Value) int {
	n := 0
	for k, v := range row {
		n += len(k) + len(v.Type) + len(v.Value) + len(v.Datatype) + len(v.Lang)
	}
	return n
}

// collectRows runs sql over a cursor, calling onRow for each decoded row
// until the cursor is exhausted or a limit trips. It always returns the
// rows collected before a limit tripped, paired with a *pgerr.ResourceLimitError.
func collectRows(ctx context.Context, pool *pgstore.QueryPool, sql string, limits Limits, onRow func(map[string]Value)) (truncated bool, err error) {
	limits = limits.orDefault()
	cur, err := pool.DeclareCursor(ctx, nextCursorName(), sql, pgstore.DefaultCursorPageSize)
	if err != nil {
		return false, err
	}
	defer cur.Close(ctx)

	rowCount := 0
	byteCount := 0
	maxBytes := limits.MaxMemoryMB * (1 << 20)

	for {
		rows, err := cur.FetchPage(ctx)
		if err != nil {
			return false, fmt.Errorf("fetching result page: %w", err)
		}

		fields := rows.FieldDescriptions()
		pageRows := 0
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				rows.Close()
				return false, fmt.Errorf("reading result row: %w", err)
			}
			row := decodeRow(fields, values)

			if rowCount >= limits.MaxRows {
				rows.Close()
				return true, &pgerr.ResourceLimitError{RowsReturned: rowCount, Limit: "max_rows"}
			}
			byteCount += rowByteSize(row)
			if byteCount > maxBytes {
				rows.Close()
				return true, &pgerr.ResourceLimitError{RowsReturned: rowCount, Limit: "max_memory_mb"}
			}

			onRow(row)
			rowCount++
			pageRows++
		}
		rerr := rows.Err()
		rows.Close()
		if rerr != nil {
			return false, fmt.Errorf("reading result page: %w", rerr)
		}
		if pageRows < pgstore.DefaultCursorPageSize {
			return false, nil
		}
	}
}

// ExecuteSelect runs a.SQL and shapes its rows into SPARQL JSON bindings
// keyed back through a.CaseMap to their original variable spelling.
func ExecuteSelect(ctx context.Context, pool *pgstore.QueryPool, a *assemble.Assembled, limits Limits) (*SelectResult, error) {
	var bindings []Binding
	varSeen := map[string]bool{}
	var vars []string

	truncated, err := collectRows(ctx, pool, a.SQL, limits, func(row map[string]Value) {
		b := Binding{}
		for alias, val := range row {
			name := alias
			if orig, ok := a.CaseMap[alias]; ok {
				name = orig
			}
			b[name] = val
			if !varSeen[name] {
				varSeen[name] = true
				vars = append(vars, name)
			}
		}
		bindings = append(bindings, b)
	})
	var limitErr *pgerr.ResourceLimitError
	if err != nil {
		if !asResourceLimit(err, &limitErr) {
			return nil, err
		}
	}
	return &SelectResult{Vars: vars, Bindings: bindings, Truncated: truncated}, nil
}

// ExecuteConstruct runs a.SQL, instantiates a.Template against each row's
// bindings, and skips any template triple left with an unbound position.
func ExecuteConstruct(ctx context.Context, pool *pgstore.QueryPool, a *assemble.Assembled, limits Limits) (*ConstructResult, error) {
	var triples []Triple

	truncated, err := collectRows(ctx, pool, a.SQL, limits, func(row map[string]Value) {
		binding := map[string]Value{}
		for alias, val := range row {
			name := alias
			if orig, ok := a.CaseMap[alias]; ok {
				name = orig
			}
			binding[name] = val
		}
		for _, tp := range a.Template {
			s, ok1 := resolveTemplatePos(tp.Subject, binding)
			p, ok2 := resolveTemplatePos(tp.Predicate, binding)
			o, ok3 := resolveTemplatePos(tp.Object, binding)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			triples = append(triples, Triple{Subject: s, Predicate: p, Object: o})
		}
	})
	var limitErr *pgerr.ResourceLimitError
	if err != nil {
		if !asResourceLimit(err, &limitErr) {
			return nil, err
		}
	}
	return &ConstructResult{Triples: triples, Truncated: truncated}, nil
}

func resolveTemplatePos(tv ast.TermOrVar, binding map[string]Value) (Value, bool) {
	if tv.IsVariable() {
		v, ok := binding[tv.Value]
		return v, ok
	}
	return valueFromTermOrVar(tv), true
}

// ExecuteAsk runs a.SQL (already wrapped as SELECT 1 ... LIMIT 1 by
// pkg/assemble) and reports whether it returned a row.
func ExecuteAsk(ctx context.Context, pool *pgstore.QueryPool, a *assemble.Assembled) (*AskResult, error) {
	found := false
	_, err := collectRows(ctx, pool, a.SQL, Limits{MaxRows: 1, MaxMemoryMB: DefaultLimits.MaxMemoryMB}, func(map[string]Value) {
		found = true
	})
	var limitErr *pgerr.ResourceLimitError
	if err != nil && !asResourceLimit(err, &limitErr) {
		return nil, err
	}
	return &AskResult{Ask: found}, nil
}

func asResourceLimit(err error, target **pgerr.ResourceLimitError) bool {
	if rl, ok := err.(*pgerr.ResourceLimitError); ok {
		*target = rl
		return true
	}
	return false
}
