// SPDX-License-Identifier: Apache-2.0

package termstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
	"github.com/vital-ai/vital-graph-sub011/pkg/termcache"
)

func TestGetTermUUIDBatchUsesCacheThenDerivation(t *testing.T) {
	t.Parallel()

	cache, err := termcache.New(10)
	require.NoError(t, err)

	names, err := storage.NewNames("vital", "test")
	require.NoError(t, err)

	s := New(&pgstore.FakeDB{}, names, cache)

	cached := term.New("http://example.org/cached", term.TypeURI, "", nil)
	cache.Put(cached.KeyOf(), cached.UUID)

	uncached := term.New("http://example.org/fresh", term.TypeURI, "", nil)

	ids := s.GetTermUUIDBatch([]term.Term{cached, uncached})
	require.Len(t, ids, 2)
	assert.Equal(t, cached.UUID, ids[0])
	assert.Equal(t, uncached.UUID, ids[1])
}

func TestGetTermUUIDIsPureDerivation(t *testing.T) {
	t.Parallel()

	names, err := storage.NewNames("vital", "test")
	require.NoError(t, err)
	s := New(&pgstore.FakeDB{}, names, nil)

	got := s.GetTermUUID("http://example.org/a", term.TypeURI, "", nil)
	want := term.DeriveUUID("http://example.org/a", term.TypeURI, "", nil)
	assert.Equal(t, want, got)
}
