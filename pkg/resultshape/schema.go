// SPDX-License-Identifier: Apache-2.0

package resultshape

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/select.schema.json
var selectSchemaDoc []byte

//go:embed schema/ask.schema.json
var askSchemaDoc []byte

//go:embed schema/construct.schema.json
var constructSchemaDoc []byte

var (
	selectSchema    = mustCompileSchema("select.schema.json", selectSchemaDoc)
	askSchema       = mustCompileSchema("ask.schema.json", askSchemaDoc)
	constructSchema = mustCompileSchema("construct.schema.json", constructSchemaDoc)
)

func mustCompileSchema(name string, doc []byte) *jsonschema.Schema {
	res, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		panic(fmt.Sprintf("resultshape: decoding embedded schema %s: %v", name, err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, res); err != nil {
		panic(fmt.Sprintf("resultshape: adding embedded schema %s: %v", name, err))
	}

	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("resultshape: compiling embedded schema %s: %v", name, err))
	}
	return sch
}

// ValidateSelectJSON checks data against the SELECT wire shape. Called on
// the query command's JSON output and on the SELECT result fixtures
// exercised in tests, so a shape regression fails loudly instead of
// shipping malformed bindings to a client.
func ValidateSelectJSON(data []byte) error {
	return validateAgainst(selectSchema, data)
}

// ValidateAskJSON checks data against the {"ask": bool} wire shape.
func ValidateAskJSON(data []byte) error {
	return validateAgainst(askSchema, data)
}

// ValidateConstructJSON checks data against the CONSTRUCT/DESCRIBE triple-list wire shape.
func ValidateConstructJSON(data []byte) error {
	return validateAgainst(constructSchema, data)
}

func validateAgainst(sch *jsonschema.Schema, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("resultshape: decoding instance for schema validation: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("resultshape: wire format violates schema: %w", err)
	}
	return nil
}
