package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/inbound"
	"github.com/authzed/connector-scim/pkg/scim"
)

func validInbound() *config.Inbound {
	return &config.Inbound{
		SourceRecordsPath: "data:users",
		Mappings: []config.InboundAttributeMapping{
			{MappingType: config.MappingDirect, DataType: config.DataString, ValuePath: "login", CanonicalAttribute: scim.AttributeUserName},
			{MappingType: config.MappingDirect, DataType: config.DataString, ValuePath: "id", CanonicalAttribute: scim.AttributeExternalID},
			{MappingType: config.MappingConstant, DataType: config.DataBoolean, DefaultValue: "true", CanonicalAttribute: "active"},
		},
	}
}

func TestInboundConfigValid(t *testing.T) {
	require := require.New(t)
	res := InboundConfig(validInbound())
	require.True(res.Valid)
	require.Empty(res.Errors)
}

func TestInboundConfigMissingMandatory(t *testing.T) {
	require := require.New(t)
	cfg := validInbound()
	cfg.Mappings = cfg.Mappings[1:]

	res := InboundConfig(cfg)
	require.False(res.Valid)
	require.Len(res.Errors, 1)
	require.Contains(res.Errors[0], "userName is missing")
}

func TestInboundConfigAccumulates(t *testing.T) {
	require := require.New(t)
	res := InboundConfig(&config.Inbound{
		SourceRecordsPath: "data:[x]",
		Mappings: []config.InboundAttributeMapping{
			{MappingType: "Lookup", DataType: config.DataString, ValuePath: "login", CanonicalAttribute: scim.AttributeUserName},
			{MappingType: config.MappingDirect, DataType: "Currency", CanonicalAttribute: "salary"},
			{MappingType: config.MappingConstant, DataType: config.DataString, CanonicalAttribute: "source"},
			{MappingType: config.MappingDirect, DataType: config.DataString, ValuePath: "nick", CanonicalAttribute: "source"},
			{MappingType: config.MappingDirect, DataType: config.DataString, ValuePath: "x"},
		},
	})
	require.False(res.Valid)
	require.ElementsMatch([]string{
		`source records path: path "data:[x]": invalid index "x"`,
		`mapping userName has unsupported mapping type "Lookup"`,
		`mapping salary has unsupported data type "Currency"`,
		`mapping salary has no value path`,
		`mapping source is constant but has no default value`,
		`mapping source is declared more than once`,
		`mapping #4 has no canonical attribute`,
		`mandatory attribute externalId is missing`,
	}, res.Errors)
}

func TestInboundConfigEmpty(t *testing.T) {
	require := require.New(t)
	for _, cfg := range []*config.Inbound{nil, {}} {
		res := InboundConfig(cfg)
		require.False(res.Valid)
		require.Contains(res.Errors, "mapping list is empty")
		require.Contains(res.Errors, "mandatory attribute externalId is missing")
		require.Contains(res.Errors, "mandatory attribute userName is missing")
	}
}

func TestBulkPayloadFromMapper(t *testing.T) {
	require := require.New(t)
	req, err := inbound.Map(validInbound(), []byte(`{"data": {"users": [{"login": "ada", "id": 1}]}}`), "corr-1")
	require.NoError(err)

	require.True(Bulk(req).Valid)

	data, err := json.Marshal(req)
	require.NoError(err)
	res := BulkPayload(data)
	require.True(res.Valid, "%v", res.Errors)
}

func TestBulkPayloadInvalid(t *testing.T) {
	table := []struct {
		name    string
		payload string
		errors  []string
	}{
		{
			name:    "empty",
			payload: "  ",
			errors:  []string{"bulk payload is empty"},
		},
		{
			name:    "not json",
			payload: "<xml/>",
		},
		{
			name:    "wrong schema and no operations",
			payload: `{"schemas": ["urn:example"], "Operations": []}`,
			errors: []string{
				`bulk payload schema "urn:example" does not match urn:ietf:params:scim:api:messages:2.0:BulkRequest`,
				"bulk payload has no operations",
			},
		},
		{
			name: "operation gaps",
			payload: `{
				"schemas": ["urn:ietf:params:scim:api:messages:2.0:BulkRequest"],
				"Operations": [
					{"method": "POST", "bulkId": "", "path": "/Users", "data": {"userName": "ada"}},
					{"method": "POST", "bulkId": "b", "path": "/Users", "data": {"userName": " ", "externalId": "2"}}
				]
			}`,
			errors: []string{
				"operation 0 has no bulk id",
				"operation 0: mandatory attribute externalId is missing",
				"operation 1: mandatory attribute userName is missing",
			},
		},
	}

	for _, tt := range table {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			res := BulkPayload([]byte(tt.payload))
			require.False(res.Valid)
			if tt.errors != nil {
				require.Equal(tt.errors, res.Errors)
			} else {
				require.Len(res.Errors, 1)
			}
		})
	}

	require.False(t, Bulk(nil).Valid)
}
