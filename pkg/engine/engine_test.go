// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/xlog"
)

func testEngine(t *testing.T, diagnostic bool) *Engine {
	t.Helper()
	names, err := storage.NewNames("vital", "test")
	assert.NoError(t, err)
	return &Engine{names: names, spaceID: "test", diagnostic: diagnostic, log: xlog.NewNoop()}
}

func TestClassifyNoopsWhenDiagnosticDisabled(t *testing.T) {
	t.Parallel()
	e := testEngine(t, false)
	assert.NotPanics(t, func() { e.classify("SELECT 1") })
}

func TestClassifyDoesNotPanicOnValidSQLWhenDiagnosticEnabled(t *testing.T) {
	t.Parallel()
	e := testEngine(t, true)
	assert.NotPanics(t, func() { e.classify("SELECT 1 FROM vital__test__rdf_quad") })
}

func TestClassifyDoesNotPanicOnInvalidSQL(t *testing.T) {
	t.Parallel()
	e := testEngine(t, true)
	assert.NotPanics(t, func() { e.classify("NOT VALID SQL AT ALL") })
}

func TestNamesReturnsConfiguredNames(t *testing.T) {
	t.Parallel()
	e := testEngine(t, false)
	assert.Equal(t, "vital__test__rdf_quad", e.Names().Quad)
}
