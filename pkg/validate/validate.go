// Package validate checks tenant mapping configuration and generated bulk
// payloads. Every check accumulates all violations instead of stopping at the
// first one.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
	"github.com/authzed/connector-scim/pkg/scim"
)

// Result is the outcome of a validation pass.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type collector struct {
	errs []string
}

func (c *collector) addf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errs) == 0, Errors: c.errs}
}

// InboundConfig validates an inbound mapping list.
func InboundConfig(cfg *config.Inbound) Result {
	var c collector
	if cfg == nil || len(cfg.Mappings) == 0 {
		c.addf("mapping list is empty")
		for _, attr := range scim.MandatoryAttributes {
			c.addf("mandatory attribute %s is missing", attr)
		}
		return c.result()
	}
	if cfg.SourceRecordsPath != "" {
		if _, err := resolve.Parse(cfg.SourceRecordsPath); err != nil {
			c.addf("source records path: %v", err)
		}
	}

	seen := make(map[string]bool, len(cfg.Mappings))
	for i, m := range cfg.Mappings {
		name := m.CanonicalAttribute
		if name == "" {
			name = fmt.Sprintf("#%d", i)
			c.addf("mapping %s has no canonical attribute", name)
		} else if seen[name] {
			c.addf("mapping %s is declared more than once", name)
		}
		seen[name] = true

		switch m.MappingType {
		case config.MappingDirect, config.MappingConstant:
		default:
			c.addf("mapping %s has unsupported mapping type %q", name, m.MappingType)
		}
		if !m.DataType.Valid() {
			c.addf("mapping %s has unsupported data type %q", name, m.DataType)
		}

		switch {
		case m.MappingType == config.MappingDirect && m.ValuePath == "":
			c.addf("mapping %s has no value path", name)
		case m.MappingType == config.MappingDirect:
			if _, err := resolve.Parse(m.ValuePath); err != nil {
				c.addf("mapping %s value path: %v", name, err)
			}
		case m.MappingType == config.MappingConstant && m.DefaultValue == "":
			c.addf("mapping %s is constant but has no default value", name)
		}
	}

	for _, attr := range scim.MandatoryAttributes {
		if !seen[attr] {
			c.addf("mandatory attribute %s is missing", attr)
		}
	}
	return c.result()
}

// BulkPayload validates a serialized bulk request.
func BulkPayload(data []byte) Result {
	var c collector
	if len(bytes.TrimSpace(data)) == 0 {
		c.addf("bulk payload is empty")
		return c.result()
	}
	var req scim.BulkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.addf("bulk payload is not a valid bulk request: %v", err)
		return c.result()
	}
	bulk(&c, &req)
	return c.result()
}

// Bulk validates a bulk request built in memory.
func Bulk(req *scim.BulkRequest) Result {
	var c collector
	if req == nil {
		c.addf("bulk payload is empty")
		return c.result()
	}
	bulk(&c, req)
	return c.result()
}

func bulk(c *collector, req *scim.BulkRequest) {
	if !contains(req.Schemas, scim.SchemaBulkRequest) {
		c.addf("bulk payload schema %q does not match %s", strings.Join(req.Schemas, ","), scim.SchemaBulkRequest)
	}
	if len(req.Operations) == 0 {
		c.addf("bulk payload has no operations")
	}
	for i, op := range req.Operations {
		if strings.TrimSpace(op.BulkID) == "" {
			c.addf("operation %d has no bulk id", i)
		}
		for _, attr := range scim.MandatoryAttributes {
			if resolve.IsEmpty(op.Data[attr]) {
				c.addf("operation %d: mandatory attribute %s is missing", i, attr)
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
