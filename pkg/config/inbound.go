package config

// Inbound configures conversion of documents pulled from the destination into
// canonical bulk operations.
type Inbound struct {
	// SourceRecordsPath locates the collection of source records in the
	// fetched document.
	SourceRecordsPath string `json:"source_records_path"`
	// ResourcePath is the bulk operation path, "/Users" when empty.
	ResourcePath string                    `json:"resource_path,omitempty"`
	Mappings     []InboundAttributeMapping `json:"mappings"`

	// Source describes where records are pulled from.
	Source InboundSource `json:"source,omitempty"`
}

// InboundSource is either a REST path under the destination base URL or a
// postgres query.
type InboundSource struct {
	Path  string `json:"path,omitempty"`
	Query string `json:"query,omitempty"`
}

// InboundAttributeMapping maps one canonical attribute from a source record.
type InboundAttributeMapping struct {
	ID                 string      `json:"id,omitempty"`
	MappingType        MappingType `json:"mapping_type"`
	DataType           DataType    `json:"data_type"`
	ValuePath          string      `json:"value_path,omitempty"`
	CanonicalAttribute string      `json:"canonical_attribute"`
	IsRequired         bool        `json:"is_required,omitempty"`
	DefaultValue       string      `json:"default_value,omitempty"`
}
