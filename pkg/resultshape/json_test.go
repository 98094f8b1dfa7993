// SPDX-License-Identifier: Apache-2.0

package resultshape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMarshalJSONOmitsEmptyFields(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Value{Type: "uri", Value: "http://example.org/s"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"uri","value":"http://example.org/s"}`, string(b))
}

func TestValueMarshalJSONIncludesLangAndDatatype(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Value{Type: "literal", Value: "hello", Lang: "en"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"literal","value":"hello","xml:lang":"en"}`, string(b))

	b, err = json.Marshal(Value{Type: "literal", Value: "42", Datatype: "http://www.w3.org/2001/XMLSchema#integer"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"literal","value":"42","datatype":"http://www.w3.org/2001/XMLSchema#integer"}`, string(b))
}

func TestSelectResultMarshalJSONShape(t *testing.T) {
	t.Parallel()
	r := SelectResult{
		Vars:     []string{"s"},
		Bindings: []Binding{{"s": {Type: "uri", Value: "http://example.org/s"}}},
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri","value":"http://example.org/s"}}]}}`, string(b))
}

func TestSelectResultMarshalJSONEmptyBindings(t *testing.T) {
	t.Parallel()
	r := SelectResult{Vars: []string{"s"}}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"head":{"vars":["s"]},"results":{"bindings":[]}}`, string(b))
}

func TestConstructResultMarshalJSONShape(t *testing.T) {
	t.Parallel()
	r := ConstructResult{Triples: []Triple{{
		Subject:   Value{Type: "uri", Value: "http://example.org/s"},
		Predicate: Value{Type: "uri", Value: "http://example.org/p"},
		Object:    Value{Type: "literal", Value: "v"},
	}}}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"subject":{"type":"uri","value":"http://example.org/s"},"predicate":{"type":"uri","value":"http://example.org/p"},"object":{"type":"literal","value":"v"}}]`, string(b))
}

func TestAskResultMarshalJSON(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(AskResult{Ask: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ask":true}`, string(b))
}

func TestSelectResultJSONValidatesAgainstSchema(t *testing.T) {
	t.Parallel()
	r := SelectResult{
		Vars:     []string{"s", "o"},
		Bindings: []Binding{{"s": {Type: "uri", Value: "http://example.org/s"}}},
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NoError(t, ValidateSelectJSON(b))
}

func TestSelectResultJSONRejectsMissingBindingValue(t *testing.T) {
	t.Parallel()
	err := ValidateSelectJSON([]byte(`{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri"}}]}}`))
	assert.Error(t, err)
}

func TestConstructResultJSONValidatesAgainstSchema(t *testing.T) {
	t.Parallel()
	r := ConstructResult{Triples: []Triple{{
		Subject:   Value{Type: "uri", Value: "http://example.org/s"},
		Predicate: Value{Type: "uri", Value: "http://example.org/p"},
		Object:    Value{Type: "literal", Value: "v"},
	}}}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NoError(t, ValidateConstructJSON(b))
}

func TestAskResultJSONValidatesAgainstSchema(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(AskResult{Ask: false})
	require.NoError(t, err)
	assert.NoError(t, ValidateAskJSON(b))
}
