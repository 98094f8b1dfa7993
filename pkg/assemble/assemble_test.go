// SPDX-License-Identifier: Apache-2.0

package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

func testNames(t *testing.T) storage.Names {
	t.Helper()
	names, err := storage.NewNames("vital", "test")
	require.NoError(t, err)
	return names
}

func v(name string) ast.TermOrVar { return ast.TermOrVar{Kind: ast.KindVar, Value: name} }
func u(uri string) ast.TermOrVar  { return ast.TermOrVar{Kind: ast.KindURI, Value: uri} }

func TestAllocateCaseMapDisambiguatesCollisions(t *testing.T) {
	t.Parallel()
	cm := allocateCaseMap([]string{"x", "X", "y"})
	assert.Equal(t, "x", cm["x"])
	assert.Equal(t, "X", cm["x_1"])
	assert.Equal(t, "y", cm["y"])
}

func simpleSelect() *ast.SelectQuery {
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p"), Object: v("o")},
	}}
	return &ast.SelectQuery{Star: true, Where: bgp, Limit: -1}
}

func TestAssembleSelectStarProjectsAllVars(t *testing.T) {
	t.Parallel()
	q := &ast.Query{Form: ast.FormSelect, Select: simpleSelect()}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "SELECT")
	assert.Contains(t, out.SQL, "FROM")
	assert.NotEmpty(t, out.CaseMap)
}

func TestAssembleSelectAppliesLimitOffset(t *testing.T) {
	t.Parallel()
	sq := simpleSelect()
	sq.Limit = 10
	sq.Offset = 5
	q := &ast.Query{Form: ast.FormSelect, Select: sq}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "LIMIT 10")
	assert.Contains(t, out.SQL, "OFFSET 5")
}

func TestAssembleSelectStarCaseMapIsDeterministicAcrossRuns(t *testing.T) {
	t.Parallel()
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("x"), Predicate: u("http://example.org/p1"), Object: v("X")},
		{Subject: v("x"), Predicate: u("http://example.org/p2"), Object: v("y")},
	}}
	sq := &ast.SelectQuery{Star: true, Where: bgp, Limit: -1}
	q := &ast.Query{Form: ast.FormSelect, Select: sq}

	var sqls []string
	for i := 0; i < 10; i++ {
		out, err := Assemble(testNames(t), q)
		require.NoError(t, err)
		sqls = append(sqls, out.SQL)
	}
	for i := 1; i < len(sqls); i++ {
		assert.Equal(t, sqls[0], sqls[i], "SELECT * case-mapping order must not vary run to run")
	}
}

func TestAssembleSelectDistinctForcedByTwoTripleBGP(t *testing.T) {
	t.Parallel()
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p1"), Object: v("o1")},
		{Subject: v("s"), Predicate: u("http://example.org/p2"), Object: v("o2")},
	}}
	sq := &ast.SelectQuery{Star: true, Where: bgp, Limit: -1}
	q := &ast.Query{Form: ast.FormSelect, Select: sq}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "SELECT DISTINCT")
}

func TestAssembleSelectExplicitVarsUseCaseMap(t *testing.T) {
	t.Parallel()
	sq := simpleSelect()
	sq.Star = false
	sq.Vars = []string{"s"}
	q := &ast.Query{Form: ast.FormSelect, Select: sq}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Equal(t, "s", out.CaseMap["s"])
}

func TestAssembleAskWrapsSelectOneLimitOne(t *testing.T) {
	t.Parallel()
	q := &ast.Query{Form: ast.FormAsk, Select: simpleSelect()}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.True(t, out.IsAsk)
	assert.Contains(t, out.SQL, "LIMIT 1")
}

func TestAssembleConstructInflatesLimitByBuffer(t *testing.T) {
	t.Parallel()
	sq := simpleSelect()
	sq.Limit = 10
	q := &ast.Query{
		Form:     ast.FormConstruct,
		Select:   sq,
		Template: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/p"), Object: v("o")}},
	}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "LIMIT 15")
	assert.Len(t, out.Template, 1)
}

func TestAssembleConstructCaseMapIsDeterministicAcrossRuns(t *testing.T) {
	t.Parallel()
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p1"), Object: v("o1")},
		{Subject: v("s"), Predicate: u("http://example.org/p2"), Object: v("o2")},
	}}
	sq := &ast.SelectQuery{Star: true, Where: bgp, Limit: 10}
	q := &ast.Query{
		Form:   ast.FormConstruct,
		Select: sq,
		Template: []ast.TriplePattern{
			{Subject: v("s"), Predicate: u("http://example.org/p1"), Object: v("o1")},
			{Subject: v("s"), Predicate: u("http://example.org/p2"), Object: v("o2")},
		},
	}

	var sqls []string
	for i := 0; i < 10; i++ {
		out, err := Assemble(testNames(t), q)
		require.NoError(t, err)
		sqls = append(sqls, out.SQL)
	}
	for i := 1; i < len(sqls); i++ {
		assert.Equal(t, sqls[0], sqls[i], "CONSTRUCT case-mapping order must not vary run to run")
	}
}

func TestAssembleDescribeConstantResourceSkipsWhere(t *testing.T) {
	t.Parallel()
	q := &ast.Query{
		Form:     ast.FormDescribe,
		Select:   &ast.SelectQuery{Limit: -1},
		Describe: []ast.TermOrVar{u("http://example.org/thing")},
	}
	out, err := Assemble(testNames(t), q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "'http://example.org/thing'")
}
