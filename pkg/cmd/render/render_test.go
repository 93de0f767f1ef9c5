package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/streams"
)

const restTenant = `
app_id: acme
destination:
  kind: rest
  base_url: https://hr.example.com/api
endpoints:
  - request_kind: PUT
    resource_type: User
    path: /users/{id}
    schema:
      - destination_field: id
        destination_type: String
        mapping_type: Direct
        source_value: ExternalIdentifier
        is_required: true
      - destination_field: login
        destination_type: String
        mapping_type: Direct
        source_value: UserName
  - request_kind: POST
    resource_type: Group
    path: /groups
    schema:
      - destination_field: name
        destination_type: String
        mapping_type: Direct
        source_value: DisplayName
`

const user = `{
	"schemas": ["` + scim.SchemaUser + `"],
	"userName": "ada",
	"externalId": "1815"
}`

func TestRender(t *testing.T) {
	table := []struct {
		name     string
		kind     string
		resource string
		expected string
		wantErr  string
	}{
		{
			name:     "put user",
			kind:     "put",
			resource: user,
			expected: `{"request_kind": "PUT", "resource_type": "User", "path": "/users/{id}", "id": "1815", "payload": {"id": "1815", "login": "ada"}}`,
		},
		{
			name:     "post group",
			kind:     "POST",
			resource: `{"schemas": ["` + scim.SchemaGroup + `"], "displayName": "eng"}`,
			expected: `{"request_kind": "POST", "resource_type": "Group", "path": "/groups", "payload": {"name": "eng"}}`,
		},
		{
			name:     "no endpoint",
			kind:     "DELETE",
			resource: user,
			wantErr:  "no DELETE endpoint configured for User resources",
		},
		{
			name:     "bad kind",
			kind:     "UPSERT",
			resource: user,
			wantErr:  "unsupported request kind",
		},
	}

	for _, tt := range table {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			dir := t.TempDir()
			testIO, in, out, _ := streams.NewTestIO()
			in.WriteString(tt.resource)

			o := NewOptions(testIO)
			o.ConfigFile = filepath.Join(dir, "tenant.yaml")
			require.NoError(os.WriteFile(o.ConfigFile, []byte(restTenant), 0o600))
			o.RequestKindName = tt.kind

			err := o.Complete(context.Background(), []string{streams.StdinPath})
			if err == nil {
				err = o.Run(context.Background())
			}
			if tt.wantErr != "" {
				require.ErrorContains(err, tt.wantErr)
				return
			}
			require.NoError(err)
			require.JSONEq(tt.expected, out.String())
		})
	}
}

func TestPrintJSON(t *testing.T) {
	_, _, out, _ := streams.NewTestIO()
	require.NoError(t, PrintJSON(out, map[string]int{"status": 200}))
	require.Equal(t, "{\n  \"status\": 200\n}\n", out.String())

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
}
