// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
)

func TestParseSimpleSelect(t *testing.T) {
	t.Parallel()

	q, err := Parse(`
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		SELECT ?name WHERE { ?person foaf:name ?name }
	`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormSelect, q.Form)
	require.NotNil(t, q.Select)
	assert.Equal(t, []string{"name"}, q.Select.Vars)

	bgp, ok := q.Select.Where.(*ast.BGP)
	require.True(t, ok, "expected a bare BGP, got %T", q.Select.Where)
	require.Len(t, bgp.Triples, 1)
	assert.Equal(t, "person", bgp.Triples[0].Subject.Value)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/name", bgp.Triples[0].Predicate.Value)
	assert.Equal(t, "name", bgp.Triples[0].Object.Value)
}

func TestParseSelectStarDistinctLimitOffset(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT DISTINCT * WHERE { ?s ?p ?o } LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	assert.True(t, q.Select.Distinct)
	assert.True(t, q.Select.Star)
	assert.Equal(t, int64(10), q.Select.Limit)
	assert.Equal(t, int64(5), q.Select.Offset)
}

func TestParseFilterExpression(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?s WHERE { ?s ?p ?o . FILTER(?o > 5) }`)
	require.NoError(t, err)
	f, ok := q.Select.Where.(*ast.Filter)
	require.True(t, ok, "expected Filter at top, got %T", q.Select.Where)
	bin, ok := f.Expr.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ">", bin.Op)
}

func TestParseOptional(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?s ?o WHERE { ?s a ?t . OPTIONAL { ?s ?p ?o } }`)
	require.NoError(t, err)
	lj, ok := q.Select.Where.(*ast.LeftJoin)
	require.True(t, ok, "expected LeftJoin at top, got %T", q.Select.Where)
	assert.NotNil(t, lj.Left)
	assert.NotNil(t, lj.Right)
}

func TestParseUnion(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?s WHERE { { ?s a <http://a/A> } UNION { ?s a <http://a/B> } }`)
	require.NoError(t, err)
	_, ok := q.Select.Where.(*ast.Union)
	assert.True(t, ok, "expected Union at top, got %T", q.Select.Where)
}

func TestParseAsk(t *testing.T) {
	t.Parallel()

	q, err := Parse(`ASK { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormAsk, q.Form)
}

func TestParseConstruct(t *testing.T) {
	t.Parallel()

	q, err := Parse(`CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormConstruct, q.Form)
	require.Len(t, q.Template, 1)
}

func TestParseGroupByAndAggregate(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?g (COUNT(?s) AS ?n) WHERE { GRAPH ?g { ?s ?p ?o } } GROUP BY ?g`)
	require.NoError(t, err)
	require.Len(t, q.Select.GroupBy, 1)
}

func TestParseBind(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?x WHERE { ?s ?p ?o . BIND(?o + 1 AS ?x) }`)
	require.NoError(t, err)
	ext, ok := q.Select.Where.(*ast.Extend)
	require.True(t, ok, "expected Extend at top, got %T", q.Select.Where)
	assert.Equal(t, "x", ext.Var)
}

func TestParseValues(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?x WHERE { VALUES ?x { 1 2 3 } }`)
	require.NoError(t, err)
	vm, ok := q.Select.Where.(*ast.ToMultiSet)
	require.True(t, ok, "expected ToMultiSet at top, got %T", q.Select.Where)
	assert.Len(t, vm.Rows, 3)
}

func TestParseUndeclaredPrefixErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse(`SELECT ?s WHERE { ?s foaf:name ?o }`)
	assert.Error(t, err)
}

func TestParseOrderByDescAndLimit(t *testing.T) {
	t.Parallel()

	q, err := Parse(`SELECT ?s WHERE { ?s ?p ?o } ORDER BY DESC(?o) LIMIT 1`)
	require.NoError(t, err)
	require.Len(t, q.Select.OrderBy, 1)
	assert.True(t, q.Select.OrderBy[0].Descending)
}
