// Package mapping renders destination payloads from declarative schema trees:
// JSON trees for REST destinations, typed parameter lists for stored
// procedure destinations, and identifier lookups over rendered or returned
// documents.
//
// Every operation is a pure function of its inputs. Schema trees and
// resources are never mutated, so any number of renders may run
// concurrently over the same configuration.
package mapping

import (
	"github.com/authzed/connector-scim/pkg/coerce"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

// resolution is the outcome of steps 1-4 of rendering a node: obtaining its
// raw value and applying required/default rules.
type resolution struct {
	raw  any
	skip bool
}

// resolveNode obtains the raw value for n from scope. field is the full
// destination path used in error messages.
func resolveNode(n *config.SchemaNode, scope any, field string) (resolution, error) {
	var raw any
	switch n.MappingType {
	case config.MappingConstant:
		raw = n.SourceValue
	case config.MappingConditional:
		ok, err := evaluate(n.MappingCondition, scope, field)
		if err != nil {
			return resolution{}, err
		}
		if !ok {
			return resolution{skip: true}, nil
		}
		raw = sourceValue(n, scope)
	default:
		raw = sourceValue(n, scope)
	}

	if !resolve.IsEmpty(raw) {
		return resolution{raw: raw}, nil
	}
	if !n.IsRequired {
		return resolution{raw: nil}, nil
	}
	// Defaults stand in for required values only; an optional empty
	// field renders as null.
	if n.DefaultValue != "" && !n.DestinationType.Nested() {
		return resolution{raw: n.DefaultValue}, nil
	}
	return resolution{}, &MissingRequiredFieldError{Field: field, SourcePath: n.SourceValue}
}

// sourceValue resolves a Direct or Conditional node's source path. An Object
// node without a source path scopes its children to the current scope.
func sourceValue(n *config.SchemaNode, scope any) any {
	if n.SourceValue == "" {
		if n.DestinationType == config.TypeObject && n.HasChildren() {
			return scope
		}
		return nil
	}
	v, ok := resolve.Path(scope, n.SourceValue, resolve.CaseSensitive)
	if !ok {
		return nil
	}
	return v
}

// coerceLeaf converts a leaf node's raw value into its native value.
func coerceLeaf(n *config.SchemaNode, raw any, field string) (any, error) {
	v, err := coerce.Coerce(raw, n.DestinationType, coerce.Options{
		ArrayElementType: n.DestinationArrayElementType,
		Length:           n.Length(),
	})
	if err != nil {
		source := n.SourceValue
		if n.MappingType == config.MappingConstant {
			source = ""
		}
		return nil, &CoercionError{Field: field, SourcePath: source, Type: string(n.DestinationType), Err: err}
	}
	return v, nil
}

func joinField(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + ":" + field
}
