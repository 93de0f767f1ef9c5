package scim

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResource decodes a canonical resource document. resourceType selects
// the resource when set; otherwise the document's schemas and
// meta.resourceType decide, and a document that names neither is a User.
func ParseResource(data []byte, resourceType string) (Resource, error) {
	if resourceType == "" {
		var probe Core
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("parsing resource: %w", err)
		}
		resourceType = detectType(probe)
	}

	var r Resource
	switch strings.ToLower(resourceType) {
	case "user":
		r = &User{}
	case "group":
		r = &Group{}
	default:
		return nil, fmt.Errorf("unsupported resource type %q", resourceType)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.ResourceType(), err)
	}
	return r, nil
}

func detectType(c Core) string {
	for _, s := range c.Schemas {
		switch s {
		case SchemaGroup:
			return "Group"
		case SchemaUser:
			return "User"
		}
	}
	if c.Metadata != nil && c.Metadata.ResourceType != "" {
		return c.Metadata.ResourceType
	}
	return "User"
}
