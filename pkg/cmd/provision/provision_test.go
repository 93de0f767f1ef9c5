package provision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/streams"
	"github.com/authzed/connector-scim/pkg/write"
)

const tenant = `{
	// provisioning into the HR system's stored procedures
	"app_id": "acme",
	"destination": {"kind": "sql", "driver": "SqlClient", "dsn": "sqlserver://sa:secret@db:1433?database=hr"},
	"endpoints": [
		{
			"request_kind": "POST",
			"resource_type": "User",
			"routine": "dbo.CreateUser",
			"schema": [
				{"destination_field": "Login", "destination_type": "NVarChar", "destination_type_length": 64, "mapping_type": "Direct", "source_value": "UserName", "is_required": true},
				{"destination_field": "Enabled", "destination_type": "Bit", "mapping_type": "Direct", "source_value": "Active"},
			],
		},
	],
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProvisionDryRun(t *testing.T) {
	require := require.New(t)
	testIO, _, out, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.ConfigFile = writeFile(t, "tenant.jsonc", tenant)
	o.DryRun = true

	require.NoError(o.Complete(context.Background(), []string{writeFile(t, "user.json", `{"userName": "ada", "active": true}`)}))
	require.NoError(o.Run(context.Background()))

	var res map[string]any
	require.NoError(json.Unmarshal(out.Bytes(), &res))
	require.Equal("POST", res["request_kind"])
	require.Equal(float64(http.StatusOK), res["status"])
}

func TestProvisionMappingFailure(t *testing.T) {
	require := require.New(t)
	testIO, _, out, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.ConfigFile = writeFile(t, "tenant.jsonc", tenant)
	o.DryRun = true

	require.NoError(o.Complete(context.Background(), []string{writeFile(t, "user.json", `{"active": true}`)}))
	err := o.Run(context.Background())
	require.ErrorIs(err, mapping.ErrMissingRequiredField)
	require.Equal(http.StatusBadRequest, Status(err))
	require.Empty(out.String())
}

func TestStatus(t *testing.T) {
	require.Equal(t, http.StatusConflict, Status(&write.DestinationError{Status: http.StatusConflict}))
	require.Equal(t, http.StatusNotFound, Status(&mapping.IdentifierNotFoundError{}))
	require.Equal(t, http.StatusInternalServerError, Status(errors.New("connection refused")))
}
