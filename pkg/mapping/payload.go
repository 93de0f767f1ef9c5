package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/authzed/connector-scim/pkg/coerce"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

// BuildPayload renders the JSON tree for a REST destination from nodes and a
// canonical resource. Nodes render depth-first in declaration order. Any
// error aborts the whole build; no partial payload is returned. A payload
// with no populated fields is a PayloadBuildError.
func BuildPayload(nodes []config.SchemaNode, resource any) (map[string]any, error) {
	if len(nodes) == 0 {
		return nil, &PayloadBuildError{Reason: "schema has no nodes"}
	}
	b := payloadBuilder{}
	out, err := b.object(nodes, resource, "")
	if err != nil {
		return nil, err
	}
	if b.populated == 0 {
		return nil, &PayloadBuildError{Reason: "schema resolved no values from the resource"}
	}
	return out, nil
}

type payloadBuilder struct {
	populated int
}

func (b *payloadBuilder) object(nodes []config.SchemaNode, scope any, parent string) (map[string]any, error) {
	out := make(map[string]any, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		field := joinField(parent, n.DestinationField)
		res, err := resolveNode(n, scope, field)
		if err != nil {
			return nil, err
		}
		if res.skip {
			continue
		}

		var value any
		switch {
		case n.DestinationType == config.TypeObject && n.HasChildren():
			value, err = b.nested(n, res.raw, field)
		case n.DestinationType == config.TypeArray && n.HasChildren():
			value, err = b.array(n, res.raw, field)
		default:
			value, err = coerceLeaf(n, res.raw, field)
			if err == nil && value != nil {
				b.populated++
			}
			value = coerce.JSON(value)
		}
		if err != nil {
			return nil, err
		}
		if err := setField(out, n.DestinationField, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *payloadBuilder) nested(n *config.SchemaNode, raw any, field string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return b.object(n.ChildSchemas, raw, field)
}

// array renders one element per source array item, each item scoping the
// node's children. A scalar source renders a single element.
func (b *payloadBuilder) array(n *config.SchemaNode, raw any, field string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := resolve.Elements(raw)
	if !ok {
		items = []any{raw}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		elem, err := b.object(n.ChildSchemas, item, field+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

// setField writes value at a destination field, creating intermediate
// objects for ":"-separated fields. A field that would cross a value written
// by an earlier node, or overwrite an object built by one, is a
// PayloadBuildError. Null values never clash.
func setField(out map[string]any, field string, value any) error {
	parts := strings.Split(field, ":")
	cur := out
	for i, p := range parts[:len(parts)-1] {
		existing, present := cur[p]
		if !present || existing == nil {
			next := map[string]any{}
			cur[p] = next
			cur = next
			continue
		}
		next, ok := existing.(map[string]any)
		if !ok {
			return &PayloadBuildError{Reason: fmt.Sprintf(
				"destination field %q crosses the value already set at %q",
				field, strings.Join(parts[:i+1], ":"))}
		}
		cur = next
	}

	last := parts[len(parts)-1]
	if _, ok := cur[last].(map[string]any); ok {
		if value == nil {
			return nil
		}
		return &PayloadBuildError{Reason: fmt.Sprintf(
			"destination field %q would overwrite the object already set there", field)}
	}
	cur[last] = value
	return nil
}
