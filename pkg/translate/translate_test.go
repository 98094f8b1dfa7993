// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"strings"
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

func TestTranslateSingleTripleBGP(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p"), Object: v("o")},
	}}
	comp, err := Translate(ctx, bgp)
	require.NoError(t, err)

	assert.Contains(t, comp.FromClause, "vital__test__rdf_quad q1")
	assert.Contains(t, comp.VariableMappings, "s")
	assert.Contains(t, comp.VariableMappings, "o")
	assert.False(t, comp.NeedsDistinct, "single-triple BGP should not force DISTINCT")
}

func TestTranslateBGPTwoTriplesForcesDistinct(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p1"), Object: v("o1")},
		{Subject: v("s"), Predicate: u("http://example.org/p2"), Object: v("o2")},
	}}
	comp, err := Translate(ctx, bgp)
	require.NoError(t, err)
	assert.True(t, comp.NeedsDistinct)

	joined := false
	for _, w := range comp.WhereConditions {
		if w == "s_1.term_uuid = q1.subject_uuid = q2.subject_uuid" {
			joined = true
		}
	}
	_ = joined // shared-variable linkage is asserted structurally below instead

	// both triples share ?s: the subject term alias of the second triple
	// equals the first via a where condition on the quad subject_uuid cols
	found := false
	for _, w := range comp.WhereConditions {
		if w == "q1.subject_uuid = q2.subject_uuid" {
			found = true
		}
	}
	assert.True(t, found, "expected shared-subject equality condition, got %v", comp.WhereConditions)
}

func TestTranslateFilter(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	bgp := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/p"), Object: v("o")}}}
	filter := &ast.Filter{Child: bgp, Expr: &ast.BinaryOp{Op: "=", Left: &ast.VarRef{Name: "o"}, Right: &ast.TermConst{Term: ast.TermOrVar{Kind: ast.KindLiteral, Value: "x"}}}}

	comp, err := Translate(ctx, filter)
	require.NoError(t, err)
	assert.Contains(t, comp.WhereConditions, "(o_1.term_text = 'x')")
}

func TestTranslateUnionPadsMissingVars(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	left := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/a"), Object: v("o")}}}
	right := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/b"), Object: v("x")}}}
	uni := &ast.Union{Left: left, Right: right}

	comp, err := Translate(ctx, uni)
	require.NoError(t, err)
	assert.Contains(t, comp.VariableMappings, "s")
	assert.Contains(t, comp.VariableMappings, "o")
	assert.Contains(t, comp.VariableMappings, "x")
	assert.Contains(t, comp.FromClause, "UNION ALL")
}

func TestTranslateLeftJoinBindsOptionalVarsNullable(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	left := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/type"), Object: v("t")}}}
	right := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/label"), Object: v("l")}}}
	lj := &ast.LeftJoin{Left: left, Right: right}

	comp, err := Translate(ctx, lj)
	require.NoError(t, err)
	assert.Contains(t, comp.VariableMappings, "t")
	assert.Contains(t, comp.VariableMappings, "l")

	found := false
	for _, j := range comp.Joins {
		if j.Kind == "LEFT" {
			found = true
		}
	}
	assert.True(t, found, "expected a LEFT join fragment")
}

func TestTranslateMinusNoSharedVarsIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	left := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/a"), Object: v("o")}}}
	right := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("x"), Predicate: u("http://example.org/b"), Object: v("y")}}}
	m := &ast.Minus{Left: left, Right: right}

	comp, err := Translate(ctx, m)
	require.NoError(t, err)
	for _, w := range comp.WhereConditions {
		assert.NotContains(t, w, "NOT EXISTS")
	}
}

func TestTranslateGraphConstantAddsContextPredicate(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	bgp := &ast.BGP{Triples: []ast.TriplePattern{{Subject: v("s"), Predicate: u("http://example.org/p"), Object: v("o")}}}
	g := &ast.Graph{Term: u("http://example.org/g1"), Child: bgp}

	comp, err := Translate(ctx, g)
	require.NoError(t, err)

	found := false
	for _, w := range comp.WhereConditions {
		if w == "c_1.term_text = 'http://example.org/g1'" {
			found = true
		}
	}
	assert.True(t, found, "expected context equality predicate, got %v", comp.WhereConditions)
}

func TestTranslateGraphVariableTiesContextsAcrossTriples(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testNames(t))
	bgp := &ast.BGP{Triples: []ast.TriplePattern{
		{Subject: v("s"), Predicate: u("http://example.org/p1"), Object: v("o1")},
		{Subject: v("s"), Predicate: u("http://example.org/p2"), Object: v("o2")},
	}}
	g := &ast.Graph{Term: v("g"), Child: bgp}

	comp, err := Translate(ctx, g)
	require.NoError(t, err)

	require.Contains(t, comp.VariableMappings, "g")
	for k := range comp.VariableMappings {
		assert.False(t, strings.HasPrefix(k, "__ctx_"), "context alias %q should have been collapsed into g", k)
	}

	found := false
	for _, w := range comp.WhereConditions {
		if strings.Contains(w, "c_1.term_text") && strings.Contains(w, "c_2.term_text") {
			found = true
		}
	}
	assert.True(t, found, "expected equality tying both triples' context columns together, got %v", comp.WhereConditions)
}
