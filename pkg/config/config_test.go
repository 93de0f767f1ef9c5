package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const exampleYAML = `
app_id: acme
destination:
  kind: sql
  driver: postgres
  dsn: postgres://localhost/acme
endpoints:
- request_kind: post
  routine: create_user
  schema:
  - destination_field: Email
    destination_type: nvarchar
    destination_type_length: 50
    mapping_type: direct
    source_value: UserName
    is_required: true
  - destination_field: Manager
    destination_type: Object
    mapping_type: Direct
    source_value: Manager
    child_schemas:
    - destination_field: Id
      destination_type: Int
      mapping_type: Direct
      source_value: Manager:Value
inbound:
  source_records_path: users
  mappings:
  - mapping_type: direct
    data_type: string
    value_path: login
    canonical_attribute: userName
`

func TestParseYAML(t *testing.T) {
	require := require.New(t)
	c, err := ParseYAML([]byte(exampleYAML))
	require.NoError(err)

	require.Equal("acme", c.AppID)
	require.Equal(DestinationSQL, c.Destination.Kind)

	e, ok := c.Endpoint(RequestPost, "User")
	require.True(ok)
	require.Equal("create_user", e.Routine)
	require.Len(e.Schema, 2)

	email := e.Schema[0]
	require.Equal(TypeNVarChar, email.DestinationType)
	require.Equal(MappingDirect, email.MappingType)
	require.Equal(50, email.Length())
	require.Equal("acme", email.AppID)

	manager := e.Schema[1]
	require.True(manager.HasChildren())
	require.Equal(manager.ID, manager.ChildSchemas[0].ParentID)

	require.Equal(DataString, c.Inbound.Mappings[0].DataType)
	require.Equal(MappingDirect, c.Inbound.Mappings[0].MappingType)

	_, ok = c.Endpoint(RequestDelete, "User")
	require.False(ok)
}

func TestParseJSONC(t *testing.T) {
	require := require.New(t)
	c, err := ParseJSONC([]byte(`{
		// destination for the acme tenant
		"app_id": "acme",
		"destination": {"kind": "rest", "base_url": "https://example.test"},
		"endpoints": [
			{"request_kind": "GET", "path": "/users/{id}", "schema": [],},
		],
	}`))
	require.NoError(err)
	require.Equal(DestinationREST, c.Destination.Kind)
	require.Equal(RequestGet, c.Endpoints[0].RequestKind)
}

func TestParseRejectsUnknownDestinationType(t *testing.T) {
	_, err := ParseYAML([]byte(`
endpoints:
- request_kind: POST
  schema:
  - destination_field: x
    destination_type: hyperlink
    mapping_type: Direct
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `unsupported destination type "hyperlink"`)
}

func TestParseKeepsUnknownInboundTypes(t *testing.T) {
	c, err := ParseYAML([]byte(`
inbound:
  mappings:
  - mapping_type: Lookup
    data_type: Blob
`))
	require.NoError(t, err)
	require.False(t, c.Inbound.Mappings[0].MappingType.Valid())
	require.False(t, c.Inbound.Mappings[0].DataType.Valid())
}

func TestSchemaIndex(t *testing.T) {
	require := require.New(t)
	s := Schema{
		{DestinationField: "a", ID: 7},
		{DestinationField: "b", ChildSchemas: []SchemaNode{
			{DestinationField: "c"},
			{DestinationField: "d", ChildSchemas: []SchemaNode{{DestinationField: "e"}}},
		}},
	}
	require.Equal(5, s.Index())

	ids := map[int]bool{}
	var collect func(nodes []SchemaNode)
	collect = func(nodes []SchemaNode) {
		for _, n := range nodes {
			require.False(ids[n.ID], "duplicate id %d", n.ID)
			ids[n.ID] = true
			collect(n.ChildSchemas)
		}
	}
	collect(s)
	require.Equal(7, s[0].ID)

	d := s[1].ChildSchemas[1]
	parent, ok := s.Find(d.ChildSchemas[0].ParentID)
	require.True(ok)
	require.Equal("d", parent.DestinationField)
}

func TestDestinationTypeFamilies(t *testing.T) {
	tests := []struct {
		t          DestinationType
		family     Family
		fixedWidth bool
	}{
		{TypeNVarChar, FamilyString, true},
		{TypeText, FamilyString, false},
		{TypeBit, FamilyBoolean, false},
		{TypeTinyInt, FamilyInteger, false},
		{TypeMoney, FamilyDecimal, false},
		{TypeReal, FamilyFloat, false},
		{TypeDateTimeOffset, FamilyTemporal, false},
		{TypeVarBinary, FamilyBinary, true},
		{TypeUniqueIdentifier, FamilyGuid, false},
		{TypeArray, FamilyArray, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			require.Equal(t, tt.family, tt.t.Family())
			require.Equal(t, tt.fixedWidth, tt.t.FixedWidth())
		})
	}
	require.GreaterOrEqual(t, len(DestinationTypes()), 30)
}

func TestRequestKindMatches(t *testing.T) {
	require.True(t, RequestKind("").Matches(RequestGet))
	require.True(t, RequestGet.Matches(RequestGet))
	require.False(t, RequestGet.Matches(RequestPost))
}
