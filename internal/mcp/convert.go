// Package mcp exposes moods, feeds and the detection history as MCP tools.
package mcp

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ParamSpec describes one tool argument.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
}

// ToolSpec describes a tool and its arguments.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
}

// Schema returns the JSON Schema of the tool arguments. Required names are
// sorted.
func (s *ToolSpec) Schema() (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s.Parameters)),
	}
	for _, name := range slices.Sorted(maps.Keys(s.Parameters)) {
		p := s.Parameters[name]
		prop := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		for _, e := range p.Enum {
			prop.Enum = append(prop.Enum, e)
		}
		if p.Default != nil {
			raw, err := json.Marshal(p.Default)
			if err != nil {
				return nil, fmt.Errorf("%s.%s default: %w", s.Name, name, err)
			}
			prop.Default = raw
		}
		schema.Properties[name] = prop
		if p.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema, nil
}

// toolSpecToMCPTool converts a ToolSpec to an mcp.Tool and the resolved
// schema used to validate call arguments.
func toolSpecToMCPTool(spec *ToolSpec) (*mcpsdk.Tool, *jsonschema.Resolved, error) {
	schema, err := spec.Schema()
	if err != nil {
		return nil, nil, err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s schema: %w", spec.Name, err)
	}
	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: schema,
	}, resolved, nil
}

// validateArgs checks raw call arguments against the tool schema. Missing
// arguments count as an empty object.
func validateArgs(schema *jsonschema.Resolved, args json.RawMessage) error {
	if schema == nil {
		return nil
	}
	instance := map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &instance); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
