package config

// SchemaNode is one declarative field-mapping rule. Nodes with an Object or
// Array destination type may carry ordered child schemas; a node with no
// children is a leaf.
type SchemaNode struct {
	ID       int    `json:"id,omitempty"`
	AppID    string `json:"app_id,omitempty"`
	ParentID int    `json:"parent_id,omitempty"`

	DestinationField            string          `json:"destination_field"`
	DestinationType             DestinationType `json:"destination_type"`
	DestinationArrayElementType DestinationType `json:"destination_array_element_type,omitempty"`
	DestinationTypeLength       *int            `json:"destination_type_length,omitempty"`

	IsRequired   bool   `json:"is_required,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`

	MappingType      MappingType       `json:"mapping_type"`
	SourceValue      string            `json:"source_value"`
	MappingCondition *MappingCondition `json:"mapping_condition,omitempty"`

	// RequestKind limits the node to one provisioning operation; empty
	// applies to all of them.
	RequestKind RequestKind `json:"request_kind,omitempty"`

	ChildSchemas []SchemaNode `json:"child_schemas,omitempty"`
}

// MappingCondition gates a Conditional node on a field of the source document.
type MappingCondition struct {
	Kind            ConditionKind `json:"kind"`
	SourceFieldName string        `json:"source_field_name"`
	SourceDataType  DataType      `json:"source_data_type,omitempty"`
	// Value is the expected value for Equals and NotEquals.
	Value string `json:"value,omitempty"`
}

// HasChildren reports whether the node renders through its child schemas.
func (n *SchemaNode) HasChildren() bool {
	return len(n.ChildSchemas) > 0
}

// Length returns the declared destination length, or 0 when none is set.
func (n *SchemaNode) Length() int {
	if n.DestinationTypeLength == nil {
		return 0
	}
	return *n.DestinationTypeLength
}

// Schema is an ordered list of top-level schema nodes.
type Schema []SchemaNode

// Index assigns depth-first ids to every node that has none and records each
// child's parent id. It returns the number of nodes in the tree.
func (s Schema) Index() int {
	maxID := 0
	count := 0
	var scan func(nodes []SchemaNode)
	scan = func(nodes []SchemaNode) {
		for i := range nodes {
			count++
			if nodes[i].ID > maxID {
				maxID = nodes[i].ID
			}
			scan(nodes[i].ChildSchemas)
		}
	}
	scan(s)

	next := maxID + 1
	var walk func(nodes []SchemaNode, parent int)
	walk = func(nodes []SchemaNode, parent int) {
		for i := range nodes {
			if nodes[i].ID == 0 {
				nodes[i].ID = next
				next++
			}
			nodes[i].ParentID = parent
			walk(nodes[i].ChildSchemas, nodes[i].ID)
		}
	}
	walk(s, 0)
	return count
}

// Find returns the node with the given id, if any.
func (s Schema) Find(id int) (*SchemaNode, bool) {
	for i := range s {
		if s[i].ID == id {
			return &s[i], true
		}
		if n, ok := Schema(s[i].ChildSchemas).Find(id); ok {
			return n, true
		}
	}
	return nil, false
}

// ForRequest returns the top-level nodes that apply to kind.
func (s Schema) ForRequest(kind RequestKind) Schema {
	filtered := make(Schema, 0, len(s))
	for _, n := range s {
		if n.RequestKind.Matches(kind) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}
