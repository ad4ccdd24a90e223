package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "schema://sheet.json"

// documentSchema accepts either a bare events list or a document wrapping
// one. Unknown properties are allowed: the editor writes many fields this
// module does not interpret.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "instruction": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {
          "type": "object",
          "required": ["value"],
          "properties": {
            "value": {"type": "string"},
            "inverted": {"type": "boolean"}
          }
        },
        "parameters": {"type": "array", "items": {"type": "string"}},
        "subInstructions": {"$ref": "#/$defs/instructions"}
      }
    },
    "instructions": {"type": "array", "items": {"$ref": "#/$defs/instruction"}},
    "variable": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "type": {"enum": ["number", "string", "boolean", "structure", "array"]},
        "value": {"type": ["string", "number", "boolean"]},
        "children": {"$ref": "#/$defs/variables"}
      }
    },
    "variables": {"type": "array", "items": {"$ref": "#/$defs/variable"}},
    "event": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "disabled": {"type": "boolean"},
        "folded": {"type": "boolean"},
        "conditions": {"$ref": "#/$defs/instructions"},
        "actions": {"$ref": "#/$defs/instructions"},
        "whileConditions": {"$ref": "#/$defs/instructions"},
        "variables": {"$ref": "#/$defs/variables"},
        "events": {"$ref": "#/$defs/events"},
        "repeatExpression": {"type": "string"},
        "infiniteLoopWarning": {"type": "boolean"},
        "object": {"type": "string"},
        "loopIndexVariable": {"type": "string"},
        "iterableVariableName": {"type": "string"},
        "valueIteratorVariableName": {"type": "string"},
        "keyIteratorVariableName": {"type": "string"},
        "name": {"type": "string"},
        "target": {"type": "string"},
        "include": {
          "type": "object",
          "properties": {
            "includeConfig": {"enum": [0, 1, 2]},
            "eventsGroupName": {"type": "string"},
            "start": {"type": "integer", "minimum": 0},
            "end": {"type": "integer", "minimum": 0}
          }
        }
      }
    },
    "events": {"type": "array", "items": {"$ref": "#/$defs/event"}},
    "object": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "variables": {"$ref": "#/$defs/variables"},
        "instances": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "variables": {"$ref": "#/$defs/variables"},
              "hidden": {"type": "boolean"},
              "animation": {"type": "number"}
            }
          }
        }
      }
    },
    "externalEvents": {
      "type": "object",
      "required": ["name", "events"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "events": {"$ref": "#/$defs/events"}
      }
    },
    "document": {
      "type": "object",
      "required": ["events"],
      "properties": {
        "formatVersion": {"type": "string"},
        "name": {"type": "string"},
        "events": {"$ref": "#/$defs/events"},
        "sceneVariables": {"$ref": "#/$defs/variables"},
        "projectVariables": {"$ref": "#/$defs/variables"},
        "objects": {"type": "array", "items": {"$ref": "#/$defs/object"}},
        "externalEvents": {"type": "array", "items": {"$ref": "#/$defs/externalEvents"}}
      }
    }
  },
  "oneOf": [
    {"$ref": "#/$defs/events"},
    {"$ref": "#/$defs/document"}
  ]
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(documentSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// SchemaError lists the schema violations of a payload.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "invalid events document: " + strings.Join(e.Violations, "; ")
}

// Validate checks raw JSON against the events document schema.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile events schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &DecodeError{Message: err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &SchemaError{Violations: flattenViolations(ve)}
		}
		return err
	}
	return nil
}

func flattenViolations(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, flattenViolations(c)...)
	}
	return out
}
