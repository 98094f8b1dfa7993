// SPDX-License-Identifier: Apache-2.0

package sparqlupdate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
)

func TestTermOfBuildsURITerm(t *testing.T) {
	t.Parallel()
	tv := ast.TermOrVar{Kind: ast.KindURI, Value: "http://example.org/s"}
	got := termOf(tv)
	assert.Equal(t, term.TypeURI, got.Type)
	assert.Equal(t, "http://example.org/s", got.Text)
}

func TestTermOfBuildsLangLiteral(t *testing.T) {
	t.Parallel()
	tv := ast.TermOrVar{Kind: ast.KindLiteral, Value: "hello", Lang: "en"}
	got := termOf(tv)
	assert.Equal(t, term.TypeLiteral, got.Type)
	assert.Equal(t, "en", got.Lang)
}

func TestGraphTermDefaultsToReservedGraph(t *testing.T) {
	t.Parallel()
	got := graphTerm(ast.GraphRef{Default: true})
	assert.Equal(t, storage.ReservedDefaultGraph, got.Text)
	assert.Equal(t, term.TypeGraph, got.Type)
}

func TestTemplateVarsCollectsDistinctVariablesIncludingGraph(t *testing.T) {
	t.Parallel()
	tmpl := []ast.QuadTemplate{
		{
			Graph: ast.GraphRef{Name: "g", IsVar: true},
			Triples: []ast.TriplePattern{
				{Subject: ast.TermOrVar{Kind: ast.KindVar, Value: "s"}, Predicate: ast.TermOrVar{Kind: ast.KindURI, Value: "http://p"}, Object: ast.TermOrVar{Kind: ast.KindVar, Value: "o"}},
				{Subject: ast.TermOrVar{Kind: ast.KindVar, Value: "s"}, Predicate: ast.TermOrVar{Kind: ast.KindURI, Value: "http://p2"}, Object: ast.TermOrVar{Kind: ast.KindVar, Value: "o2"}},
			},
		},
	}
	vars := templateVars(tmpl)
	assert.ElementsMatch(t, []string{"g", "s", "o", "o2"}, vars)
}

func TestResolveTermPrefersBindingForVariables(t *testing.T) {
	t.Parallel()
	b := binding{"s": term.New("http://example.org/bound", term.TypeURI, "", nil)}
	got, ok := resolveTerm(ast.TermOrVar{Kind: ast.KindVar, Value: "s"}, b)
	require.True(t, ok)
	assert.Equal(t, "http://example.org/bound", got.Text)

	_, ok = resolveTerm(ast.TermOrVar{Kind: ast.KindVar, Value: "missing"}, b)
	assert.False(t, ok)

	constTerm, ok := resolveTerm(ast.TermOrVar{Kind: ast.KindURI, Value: "http://example.org/const"}, b)
	require.True(t, ok)
	assert.Equal(t, "http://example.org/const", constTerm.Text)
}

func TestResolveGraphFallsBackToDefault(t *testing.T) {
	t.Parallel()
	def := term.New(storage.ReservedDefaultGraph, term.TypeGraph, "", nil)
	got := resolveGraph(ast.GraphRef{Default: true}, binding{}, def)
	assert.Equal(t, def.UUID, got.UUID)
}

func TestResolveGraphUsesBoundVariable(t *testing.T) {
	t.Parallel()
	def := term.New(storage.ReservedDefaultGraph, term.TypeGraph, "", nil)
	bound := term.New("http://example.org/g1", term.TypeGraph, "", nil)
	b := binding{"g": bound}
	got := resolveGraph(ast.GraphRef{Name: "g", IsVar: true}, b, def)
	assert.Equal(t, bound.UUID, got.UUID)
}

func TestSplitNulRoundTrips(t *testing.T) {
	t.Parallel()
	parts := splitNul("a\x00b\x00c")
	assert.Equal(t, []string{"a", "b", "c"}, parts)
}

func TestDecodeTermColumnParsesEncodedTriple(t *testing.T) {
	t.Parallel()
	got := decodeTermColumn("hello\x00literal\x00en")
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, term.TypeLiteral, got.Type)
	assert.Equal(t, "en", got.Lang)
}

func TestParseNTriplesParsesSimpleStatement(t *testing.T) {
	t.Parallel()
	body := `<http://example.org/s> <http://example.org/p> "hello"@en .
# a comment
<http://example.org/s> <http://example.org/p2> <http://example.org/o> .
`
	triples, err := parseNTriples(body)
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, "hello", triples[0].Object.Value)
	assert.Equal(t, "en", triples[0].Object.Lang)
	assert.Equal(t, ast.KindURI, triples[1].Object.Kind)
}

func TestMustTermOrVarParsesDatatypeLiteral(t *testing.T) {
	t.Parallel()
	tv := mustTermOrVar(`"42"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.Equal(t, "42", tv.Value)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#integer", tv.Datatype)
}
