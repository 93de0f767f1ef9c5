// Package inbound converts documents pulled from a destination system into
// canonical bulk requests for upstream ingestion.
package inbound

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/authzed/connector-scim/pkg/coerce"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/resolve"
	"github.com/authzed/connector-scim/pkg/scim"
)

// Decode parses a raw JSON document, keeping numbers exact.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding source document: %w", err)
	}
	return doc, nil
}

// Map builds one bulk operation per source record found in document. Every
// operation carries correlationID as its bulk id. Any mapping failure aborts
// the whole request.
func Map(cfg *config.Inbound, document any, correlationID string) (*scim.BulkRequest, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no inbound mapping configured")
	}
	records, err := Records(cfg.SourceRecordsPath, document)
	if err != nil {
		return nil, err
	}

	req := scim.NewBulkRequest()
	for i, record := range records {
		op, err := mapRecord(cfg, record, correlationID)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		req.Operations = append(req.Operations, op)
	}
	return req, nil
}

// Records locates the source records at path, matching member names
// case-insensitively. An empty path addresses the document root. A single
// object is one record; an absent or empty collection is a
// SourceDataMissingError.
func Records(path string, document any) ([]any, error) {
	doc := document
	if raw, ok := document.([]byte); ok {
		decoded, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		doc = decoded
	}
	doc, err := coerce.Tree(doc)
	if err != nil {
		return nil, fmt.Errorf("reading source document: %w", err)
	}

	found := doc
	if path != "" {
		var ok bool
		if found, ok = resolve.Path(doc, path, resolve.CaseInsensitive); !ok {
			return nil, &mapping.SourceDataMissingError{Path: path}
		}
	}
	if resolve.IsEmpty(found) {
		return nil, &mapping.SourceDataMissingError{Path: path}
	}
	records, ok := resolve.Elements(found)
	if !ok {
		if _, isObject := found.(map[string]any); !isObject {
			return nil, &mapping.SourceDataMissingError{Path: path}
		}
		records = []any{found}
	}
	return records, nil
}

func mapRecord(cfg *config.Inbound, record any, correlationID string) (scim.BulkOperation, error) {
	op := scim.NewBulkOperation(correlationID, cfg.ResourcePath)
	for _, m := range cfg.Mappings {
		if !m.DataType.Valid() {
			return op, &mapping.UnsupportedDataTypeError{Field: m.CanonicalAttribute, DataType: string(m.DataType)}
		}

		raw, source, err := attributeValue(m, record)
		if err != nil {
			return op, err
		}
		if raw == nil {
			continue
		}

		value, err := coerce.Data(raw, m.DataType)
		if err != nil {
			return op, &mapping.CoercionError{Field: m.CanonicalAttribute, SourcePath: source, Type: string(m.DataType), Err: err}
		}
		if scim.TopLevelAttribute(m.CanonicalAttribute) {
			setAttribute(op.Data, m.CanonicalAttribute, value)
		} else {
			setAttribute(op.Extension(), m.CanonicalAttribute, value)
		}
	}
	return op, nil
}

// attributeValue returns the raw value of one mapping and the source path it
// came from. A nil value with no error means the attribute is omitted.
func attributeValue(m config.InboundAttributeMapping, record any) (any, string, error) {
	if m.MappingType == config.MappingConstant {
		if m.DefaultValue == "" {
			if m.IsRequired {
				return nil, "", &mapping.MissingRequiredFieldError{Field: m.CanonicalAttribute}
			}
			return nil, "", nil
		}
		return m.DefaultValue, "", nil
	}

	var raw any
	if m.ValuePath != "" {
		raw, _ = resolve.Path(record, m.ValuePath, resolve.CaseSensitive)
	}
	if !resolve.IsEmpty(raw) {
		return raw, m.ValuePath, nil
	}
	if m.DefaultValue != "" {
		return m.DefaultValue, m.ValuePath, nil
	}
	if m.IsRequired {
		return nil, m.ValuePath, &mapping.MissingRequiredFieldError{Field: m.CanonicalAttribute, SourcePath: m.ValuePath}
	}
	return nil, m.ValuePath, nil
}

// setAttribute writes value at attr, creating intermediate objects for
// ":"-separated attributes such as "name:givenName".
func setAttribute(out map[string]any, attr string, value any) {
	parts := strings.Split(attr, ":")
	cur := out
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
