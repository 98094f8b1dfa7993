// SPDX-License-Identifier: Apache-2.0

package namespace_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/internal/testutils"
	"github.com/vital-ai/vital-graph-sub011/pkg/namespace"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestSetLookupRemoveRoundTrip(t *testing.T) {
	testutils.WithConnection(t, "wine", func(connStr string, names storage.Names) {
		ctx := context.Background()
		conn, err := sql.Open("postgres", connStr)
		require.NoError(t, err)
		defer conn.Close()
		db := &pgstore.RDB{DB: conn}
		require.NoError(t, storage.Create(ctx, db, names, storage.CreateOptions{}))

		store := namespace.New(db, names)

		_, ok, err := store.Lookup(ctx, "foaf")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, "foaf", "http://xmlns.com/foaf/0.1/"))
		uri, ok, err := store.Lookup(ctx, "foaf")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "http://xmlns.com/foaf/0.1/", uri)

		require.NoError(t, store.Set(ctx, "foaf", "http://xmlns.com/foaf/0.1/new"))
		uri, ok, err = store.Lookup(ctx, "foaf")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "http://xmlns.com/foaf/0.1/new", uri)

		require.NoError(t, store.Remove(ctx, "foaf"))
		_, ok, err = store.Lookup(ctx, "foaf")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLoadAllThenAllReturnsEverything(t *testing.T) {
	testutils.WithConnection(t, "wine", func(connStr string, names storage.Names) {
		ctx := context.Background()
		conn, err := sql.Open("postgres", connStr)
		require.NoError(t, err)
		defer conn.Close()
		db := &pgstore.RDB{DB: conn}
		require.NoError(t, storage.Create(ctx, db, names, storage.CreateOptions{}))

		store := namespace.New(db, names)
		require.NoError(t, store.LoadAll(ctx, map[string]string{
			"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		}))

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		}, all)
	})
}
