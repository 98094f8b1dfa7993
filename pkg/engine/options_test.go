// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsApplyIndependently(t *testing.T) {
	t.Parallel()
	o := &options{}
	WithTermCacheCapacity(42)(o)
	WithUnloggedTables()(o)
	WithDiagnostic()(o)

	assert.Equal(t, 42, o.termCacheCapacity)
	assert.True(t, o.unlogged)
	assert.True(t, o.diagnostic)
}

func TestWithTermCacheCapacityAcceptsNegativeToDisable(t *testing.T) {
	t.Parallel()
	o := &options{}
	WithTermCacheCapacity(-1)(o)
	assert.Equal(t, -1, o.termCacheCapacity)
}
