package mapping

import (
	"sort"
	"strings"

	"github.com/authzed/connector-scim/pkg/coerce"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

// IdentifierSource is the canonical attribute naming a resource's identifier.
const IdentifierSource = "Identifier"

// FallbackIdentifierKeys are the conventional destination key names searched,
// in order, when no schema node maps the identifier.
var FallbackIdentifierKeys = []string{"id", "identifier", "key"}

// ResolveID extracts the destination-side identifier from document. It
// first looks for a schema node mapping the canonical identifier for kind
// and resolves that node's destination path in document. Failing that it
// searches the document's top-level keys, then the keys of its nested
// objects (in sorted key order), case-insensitively, for each fallback key
// in order. A document that is a list is searched through its first
// element.
func ResolveID(document any, schema []config.SchemaNode, kind config.RequestKind) (string, error) {
	doc, err := coerce.Tree(document)
	if err != nil {
		return "", err
	}
	if list, ok := doc.([]any); ok && len(list) > 0 {
		doc = list[0]
	}

	schemaPath, _ := identifierPath(schema, kind, "")
	if schemaPath != "" {
		if v, ok := resolve.Path(doc, schemaPath, resolve.CaseInsensitive); ok {
			if id, ok := identifierText(v); ok {
				return id, nil
			}
		}
	}

	if id, ok := fallbackID(doc); ok {
		return id, nil
	}
	return "", &IdentifierNotFoundError{SchemaPath: schemaPath, FallbackKeys: FallbackIdentifierKeys}
}

// identifierPath finds the destination path of the first node, depth-first,
// whose source maps the canonical identifier and that applies to kind.
func identifierPath(nodes []config.SchemaNode, kind config.RequestKind, prefix string) (string, bool) {
	for i := range nodes {
		n := &nodes[i]
		if !n.RequestKind.Matches(kind) || n.MappingType == config.MappingConstant {
			continue
		}
		path := joinField(prefix, n.DestinationField)
		if n.HasChildren() {
			childPrefix := path
			if n.DestinationType == config.TypeArray {
				childPrefix += "[0]"
			}
			if p, ok := identifierPath(n.ChildSchemas, kind, childPrefix); ok {
				return p, true
			}
			continue
		}
		if isIdentifierSource(n.SourceValue) {
			return path, true
		}
	}
	return "", false
}

func isIdentifierSource(source string) bool {
	return strings.EqualFold(strings.TrimSpace(source), IdentifierSource)
}

func fallbackID(doc any) (string, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return "", false
	}
	if id, ok := fallbackKey(obj); ok {
		return id, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nested, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		if id, ok := fallbackKey(nested); ok {
			return id, true
		}
	}
	return "", false
}

func fallbackKey(obj map[string]any) (string, bool) {
	for _, candidate := range FallbackIdentifierKeys {
		key, ok := resolve.FoldKey(obj, candidate)
		if !ok {
			continue
		}
		if id, ok := identifierText(obj[key]); ok {
			return id, true
		}
	}
	return "", false
}

func identifierText(v any) (string, bool) {
	if resolve.IsEmpty(v) {
		return "", false
	}
	s, ok := coerce.Text(v)
	if !ok {
		return "", false
	}
	return s, true
}
