// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transfer

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated document schema.
const SchemaID = "https://warpbook.dev/schemas/warps.schema.json"

// GenerateSchema returns the JSON Schema for Document.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Document{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Warp Book Transfer Document"
	schema.Description = "Warps exported from or imported into a Warp Book store"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("TRANSFER_SCHEMA_FAILED").Wrapf(err, "marshal schema")
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, oops.Code("TRANSFER_SCHEMA_FAILED").Wrapf(err, "parse schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("warps.schema.json", doc); err != nil {
		return nil, oops.Code("TRANSFER_SCHEMA_FAILED").Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile("warps.schema.json")
	if err != nil {
		return nil, oops.Code("TRANSFER_SCHEMA_FAILED").Wrapf(err, "compile schema")
	}
	return sch, nil
})

// ValidateSchema checks YAML data against the document schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code("TRANSFER_INVALID").Errorf("document is empty")
	}

	var parsed any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return oops.Code("TRANSFER_INVALID").Wrapf(err, "invalid YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(jsonTypes(parsed)); err != nil {
		return oops.Code("TRANSFER_INVALID").Wrapf(err, "schema validation failed")
	}
	return nil
}

// jsonTypes rewrites YAML-decoded values into the types the validator
// understands. yaml.v3 decodes mappings with non-string keys into
// map[any]any, which JSON has no equivalent for.
func jsonTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonTypes(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if s, ok := k.(string); ok {
				out[s] = jsonTypes(item)
			} else {
				// Non-string keys never match a property; keep them visible
				// to additionalProperties.
				b, _ := json.Marshal(k)
				out[string(b)] = jsonTypes(item)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonTypes(item)
		}
		return out
	default:
		return val
	}
}
