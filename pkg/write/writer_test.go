package write

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/config"
)

func TestNewWriter(t *testing.T) {
	table := []struct {
		name        string
		dest        config.Destination
		dryRun      bool
		expectedErr bool
	}{
		{"rest", config.Destination{Kind: config.DestinationREST, BaseURL: "http://localhost"}, false, false},
		{"sql", config.Destination{Kind: config.DestinationSQL, Driver: "mssql"}, false, false},
		{"sql with unknown driver", config.Destination{Kind: config.DestinationSQL, Driver: "oracle"}, false, true},
		{"unknown kind", config.Destination{Kind: "ftp"}, false, true},
		{"dry run ignores destination", config.Destination{Kind: "ftp"}, true, false},
	}
	for _, tt := range table {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(tt.dest, nil, tt.dryRun)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, w)
		})
	}
}

func TestDryRunWriter(t *testing.T) {
	require := require.New(t)
	resp, err := NewDryRunWriter().Write(context.Background(), &Request{
		Kind:         config.RequestPost,
		ResourceType: "User",
		Path:         "/users",
		Payload:      map[string]any{"Email": "a@b.com"},
	})
	require.NoError(err)
	require.Equal(http.StatusOK, resp.Status)
}

func TestDestinationErrorMessage(t *testing.T) {
	require.Equal(t, "destination rejected request (400, 23505): duplicate key",
		(&DestinationError{Status: 400, Code: "23505", Message: "duplicate key"}).Error())
	require.Equal(t, "destination rejected request (409): taken",
		(&DestinationError{Status: 409, Message: "taken"}).Error())
}
