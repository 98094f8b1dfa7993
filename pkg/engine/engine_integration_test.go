// SPDX-License-Identifier: Apache-2.0

package engine_test

import (
	"context"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/internal/testutils"
	"github.com/vital-ai/vital-graph-sub011/pkg/engine"
	"github.com/vital-ai/vital-graph-sub011/pkg/resultshape"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestInsertDataThenSelectRoundTrips(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA {
				<http://example.org/wine1> <http://example.org/hasColor> "red" .
				<http://example.org/wine1> <http://example.org/hasVintage> "2015" .
			}
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			SELECT ?color WHERE {
				<http://example.org/wine1> <http://example.org/hasColor> ?color .
			}
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.NotNil(t, result.Select)
		require.Len(t, result.Select.Bindings, 1)
		assert.Equal(t, "red", result.Select.Bindings[0]["color"].Value)
	})
}

func TestAskReflectsWhetherPatternMatches(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine2> <http://example.org/hasColor> "white" . }
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			ASK { <http://example.org/wine2> <http://example.org/hasColor> "white" . }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.NotNil(t, result.Ask)
		assert.True(t, result.Ask.Ask)

		result, err = e.ExecuteSPARQLQuery(ctx, `
			ASK { <http://example.org/wine2> <http://example.org/hasColor> "rose" . }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		assert.False(t, result.Ask.Ask)
	})
}

func TestConstructInstantiatesTemplate(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine3> <http://example.org/hasColor> "rose" . }
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			CONSTRUCT { ?s <http://example.org/hasColor> ?o }
			WHERE { ?s <http://example.org/hasColor> ?o }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.NotNil(t, result.Construct)
		require.Len(t, result.Construct.Triples, 1)
		assert.Equal(t, "http://example.org/wine3", result.Construct.Triples[0].Subject.Value)
	})
}

func TestDeleteDataRemovesTheQuad(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine4> <http://example.org/hasColor> "red" . }
		`))
		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			DELETE DATA { <http://example.org/wine4> <http://example.org/hasColor> "red" . }
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			ASK { <http://example.org/wine4> <http://example.org/hasColor> "red" . }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		assert.False(t, result.Ask.Ask)
	})
}

func TestExecuteSQLQueryBypassesCompiler(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine5> <http://example.org/hasColor> "red" . }
		`))

		result, err := e.ExecuteSQLQuery(ctx, "SELECT count(*) AS n FROM "+e.Names().Quad, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.Len(t, result.Bindings, 1)
	})
}

func TestLoadPrefixFileRegistersNamespaces(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.LoadPrefixFile(ctx, []byte("foaf: http://xmlns.com/foaf/0.1/\n")))

		uri, ok, err := e.Namespaces().Lookup(ctx, "foaf")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "http://xmlns.com/foaf/0.1/", uri)
	})
}

func TestClearAndCopyGraphs(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA {
				GRAPH <http://example.org/g1> {
					<http://example.org/wine7> <http://example.org/hasColor> "red" .
				}
			}
		`))

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			COPY <http://example.org/g1> TO <http://example.org/g2>
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			ASK { GRAPH <http://example.org/g2> { <http://example.org/wine7> <http://example.org/hasColor> "red" . } }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		assert.True(t, result.Ask.Ask)

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `CLEAR GRAPH <http://example.org/g1>`))

		result, err = e.ExecuteSPARQLQuery(ctx, `
			ASK { GRAPH <http://example.org/g1> { <http://example.org/wine7> <http://example.org/hasColor> "red" . } }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		assert.False(t, result.Ask.Ask)
	})
}

func TestDeleteInsertWhereRewritesMatchingBindings(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine8> <http://example.org/hasColor> "red" . }
		`))

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			DELETE { ?s <http://example.org/hasColor> "red" }
			INSERT { ?s <http://example.org/hasColor> "burgundy" }
			WHERE { ?s <http://example.org/hasColor> "red" }
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			SELECT ?color WHERE { <http://example.org/wine8> <http://example.org/hasColor> ?color }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.Len(t, result.Select.Bindings, 1)
		assert.Equal(t, "burgundy", result.Select.Bindings[0]["color"].Value)
	})
}

func TestSelectTruncatesAtMaxRowsWithoutErroring(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA {
				<http://example.org/w1> <http://example.org/hasColor> "red" .
				<http://example.org/w2> <http://example.org/hasColor> "white" .
				<http://example.org/w3> <http://example.org/hasColor> "rose" .
			}
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			SELECT ?s ?color WHERE { ?s <http://example.org/hasColor> ?color }
		`, resultshape.Limits{MaxRows: 1, MaxMemoryMB: 500})
		require.NoError(t, err)
		require.NotNil(t, result.Select)
		assert.True(t, result.Select.Truncated)
		assert.Len(t, result.Select.Bindings, 1)
	})
}

func TestFilterOnOptionalNumericComparisonLeavesVariableUnbound(t *testing.T) {
	testutils.WithEngine(t, "wine", nil, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA {
				GRAPH <urn:___GLOBAL> {
					<http://example.org/alice> <http://example.org/name> "Alice" .
					<http://example.org/alice> <http://example.org/age> 30 .
				}
			}
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			SELECT ?n ?a WHERE {
				?s <http://example.org/name> ?n .
				OPTIONAL { ?s <http://example.org/age> ?a . FILTER(?a > 50) }
			}
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		require.NotNil(t, result.Select)
		require.Len(t, result.Select.Bindings, 1)

		row := result.Select.Bindings[0]
		assert.Equal(t, "Alice", row["n"].Value)
		_, bound := row["a"]
		assert.False(t, bound, "?a should be unbound: 30 is not > 50, so the FILTER failed the OPTIONAL group")
	})
}

func TestWithTermCacheCapacityDisabledStillWorks(t *testing.T) {
	testutils.WithEngine(t, "wine", []engine.Option{engine.WithTermCacheCapacity(-1)}, func(e *engine.Engine) {
		ctx := context.Background()

		require.NoError(t, e.ExecuteSPARQLUpdate(ctx, `
			INSERT DATA { <http://example.org/wine6> <http://example.org/hasColor> "red" . }
		`))

		result, err := e.ExecuteSPARQLQuery(ctx, `
			ASK { <http://example.org/wine6> <http://example.org/hasColor> "red" . }
		`, resultshape.DefaultLimits)
		require.NoError(t, err)
		assert.True(t, result.Ask.Ask)
	})
}
