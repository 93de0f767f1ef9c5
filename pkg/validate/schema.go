package validate

import (
	"fmt"
	"strings"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

// Schema validates an outbound schema tree for a destination kind. SQL
// destinations take flat parameter lists, so nested types are rejected there.
func Schema(nodes []config.SchemaNode, kind config.DestinationKind) Result {
	var c collector
	if len(nodes) == 0 {
		c.addf("schema has no nodes")
		return c.result()
	}
	schemaLevel(&c, nodes, kind, "")
	return c.result()
}

// Config validates every endpoint schema and the inbound mappings of a tenant
// config.
func Config(cfg *config.Config) Result {
	var c collector
	switch cfg.Destination.Kind {
	case config.DestinationREST:
		if cfg.Destination.BaseURL == "" {
			c.addf("rest destination has no base url")
		}
	case config.DestinationSQL:
		if cfg.Destination.DSN == "" {
			c.addf("sql destination has no dsn")
		}
		if cfg.Destination.Driver == "" {
			c.addf("sql destination has no driver")
		}
	default:
		c.addf("unsupported destination kind %q", cfg.Destination.Kind)
	}

	for _, e := range cfg.Endpoints {
		prefix := string(e.RequestKind)
		if e.ResourceType != "" {
			prefix += " " + e.ResourceType
		}
		if cfg.Destination.Kind == config.DestinationSQL && e.Routine == "" {
			c.addf("%s: no routine configured", prefix)
		}
		for _, msg := range Schema(e.Schema, cfg.Destination.Kind).Errors {
			c.addf("%s: %s", prefix, msg)
		}
	}
	if cfg.Inbound != nil {
		for _, msg := range InboundConfig(cfg.Inbound).Errors {
			c.addf("inbound: %s", msg)
		}
	}
	return c.result()
}

func schemaLevel(c *collector, nodes []config.SchemaNode, kind config.DestinationKind, parent string) {
	seen := make(map[string]bool, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		field := n.DestinationField
		if field == "" {
			field = fmt.Sprintf("#%d", i)
			c.addf("node %s has no destination field", joinField(parent, field))
		}
		field = joinField(parent, field)
		if seen[n.DestinationField+"|"+string(n.RequestKind)] && n.MappingType != config.MappingConditional {
			c.addf("node %s is declared more than once", field)
		}
		seen[n.DestinationField+"|"+string(n.RequestKind)] = true

		if !n.DestinationType.Valid() {
			c.addf("node %s has unsupported destination type %q", field, n.DestinationType)
		}
		if kind == config.DestinationSQL && n.DestinationType.Nested() {
			c.addf("node %s has destination type %s, which cannot be bound as a stored procedure parameter", field, n.DestinationType)
		}
		if n.HasChildren() && !n.DestinationType.Nested() {
			c.addf("node %s has child schemas but destination type %s", field, n.DestinationType)
		}
		if n.DestinationArrayElementType != "" {
			if n.DestinationType != config.TypeArray {
				c.addf("node %s has an array element type but is not an array", field)
			} else if !n.DestinationArrayElementType.Valid() || n.DestinationArrayElementType == config.TypeArray {
				c.addf("node %s has unsupported array element type %q", field, n.DestinationArrayElementType)
			}
		}

		if n.DestinationTypeLength != nil && n.DestinationType.Valid() && !n.DestinationType.FixedWidth() {
			c.addf("node %s has a length but destination type %s is not fixed-width", field, n.DestinationType)
		}

		switch n.MappingType {
		case config.MappingDirect, "":
			if n.SourceValue == "" && !(n.DestinationType == config.TypeObject && n.HasChildren()) {
				c.addf("node %s has no source value", field)
			}
		case config.MappingConstant:
			if n.SourceValue == "" {
				c.addf("node %s is constant but has no value", field)
			}
		case config.MappingConditional:
			condition(c, n.MappingCondition, field)
		default:
			c.addf("node %s has unsupported mapping type %q", field, n.MappingType)
		}
		if n.MappingType != config.MappingConstant && n.SourceValue != "" {
			if _, err := resolve.Parse(n.SourceValue); err != nil {
				c.addf("node %s source value: %v", field, err)
			}
		}

		if n.HasChildren() {
			childParent := field
			if n.DestinationType == config.TypeArray {
				childParent += "[]"
			}
			schemaLevel(c, n.ChildSchemas, kind, childParent)
		}
	}
	overlaps(c, nodes, parent)
}

// overlaps reports sibling fields where one names an object path through the
// other, such as Name and Name:Given, since both cannot be rendered.
func overlaps(c *collector, nodes []config.SchemaNode, parent string) {
	for i := range nodes {
		for j := range nodes {
			a, b := &nodes[i], &nodes[j]
			if i == j || a.DestinationField == "" || a.RequestKind != b.RequestKind {
				continue
			}
			if strings.HasPrefix(b.DestinationField, a.DestinationField+":") {
				c.addf("node %s overlaps sibling %s",
					joinField(parent, b.DestinationField), joinField(parent, a.DestinationField))
			}
		}
	}
}

func condition(c *collector, cond *config.MappingCondition, field string) {
	if cond == nil {
		c.addf("node %s is conditional but has no condition", field)
		return
	}
	if !cond.Kind.Valid() {
		c.addf("node %s has unsupported condition kind %q", field, cond.Kind)
	}
	if cond.SourceFieldName == "" {
		c.addf("node %s condition has no source field", field)
	} else if _, err := resolve.Parse(cond.SourceFieldName); err != nil {
		c.addf("node %s condition source field: %v", field, err)
	}
	if cond.SourceDataType != "" && !cond.SourceDataType.Valid() {
		c.addf("node %s condition has unsupported data type %q", field, cond.SourceDataType)
	}
}

func joinField(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + ":" + field
}
