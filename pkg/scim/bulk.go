package scim

// SchemaInboundExtension namespaces every inbound attribute that is not a
// top-level canonical attribute.
const SchemaInboundExtension = "urn:ietf:params:scim:schemas:extension:connector:1.0:User"

// Canonical attributes written at the top level of a bulk operation's data.
// Both are mandatory for inbound ingestion.
const (
	AttributeUserName   = "userName"
	AttributeExternalID = "externalId"
)

// MandatoryAttributes is the closed list of canonical attributes every inbound
// mapping config and every generated bulk operation must carry.
var MandatoryAttributes = []string{AttributeExternalID, AttributeUserName}

// TopLevelAttribute reports whether attr is written at the top level of a
// bulk operation's data rather than under the extension namespace.
func TopLevelAttribute(attr string) bool {
	for _, a := range MandatoryAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// BulkRequest is the canonical batched-create document.
type BulkRequest struct {
	Schemas      []string        `json:"schemas"`
	FailOnErrors *int            `json:"failOnErrors,omitempty"`
	Operations   []BulkOperation `json:"Operations"`
}

// BulkOperation is a single create within a BulkRequest.
type BulkOperation struct {
	Method string         `json:"method"`
	BulkID string         `json:"bulkId"`
	Path   string         `json:"path"`
	Data   map[string]any `json:"data"`
}

// NewBulkRequest returns an empty bulk request carrying the bulk schema.
func NewBulkRequest() *BulkRequest {
	return &BulkRequest{
		Schemas:    []string{SchemaBulkRequest},
		Operations: make([]BulkOperation, 0),
	}
}

// NewBulkOperation returns the template every inbound record is mapped into:
// a POST to path whose data declares the core user schema and the inbound
// extension with an empty extension object.
func NewBulkOperation(bulkID, path string) BulkOperation {
	if path == "" {
		path = "/Users"
	}
	return BulkOperation{
		Method: "POST",
		BulkID: bulkID,
		Path:   path,
		Data: map[string]any{
			"schemas":              []any{SchemaUser, SchemaInboundExtension},
			SchemaInboundExtension: map[string]any{},
		},
	}
}

// Extension returns the extension sub-object of a bulk operation's data.
func (o *BulkOperation) Extension() map[string]any {
	ext, ok := o.Data[SchemaInboundExtension].(map[string]any)
	if !ok {
		ext = map[string]any{}
		o.Data[SchemaInboundExtension] = ext
	}
	return ext
}
