// SPDX-License-Identifier: Apache-2.0

package termcache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vital-ai/vital-graph-sub011/pkg/term"
)

func TestGetMissFallsBackCleanly(t *testing.T) {
	t.Parallel()

	c, err := New(10)
	require.NoError(t, err)

	_, ok := c.Get(term.Key{Text: "x", Type: term.TypeURI})
	assert.False(t, ok)
}

func TestPutThenGetHits(t *testing.T) {
	t.Parallel()

	c, err := New(10)
	require.NoError(t, err)

	key := term.Key{Text: "http://example.org/a", Type: term.TypeURI}
	id := uuid.New()
	c.Put(key, id)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestEvictionAtCapacity(t *testing.T) {
	t.Parallel()

	c, err := New(2)
	require.NoError(t, err)

	k1 := term.Key{Text: "a", Type: term.TypeURI}
	k2 := term.Key{Text: "b", Type: term.TypeURI}
	k3 := term.Key{Text: "c", Type: term.TypeURI}

	c.Put(k1, uuid.New())
	c.Put(k2, uuid.New())
	c.Put(k3, uuid.New())

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(k1)
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestPurge(t *testing.T) {
	t.Parallel()

	c, err := New(10)
	require.NoError(t, err)

	c.Put(term.Key{Text: "a", Type: term.TypeURI}, uuid.New())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestDefaultCapacityUsedWhenNonPositive(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
