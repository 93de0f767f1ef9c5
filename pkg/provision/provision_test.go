package provision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/write"
)

func node(field string, t config.DestinationType, source string) config.SchemaNode {
	return config.SchemaNode{DestinationField: field, DestinationType: t, MappingType: config.MappingDirect, SourceValue: source}
}

func restConfig(baseURL string) *config.Config {
	userSchema := config.Schema{
		node("Id", config.TypeString, "Identifier"),
		node("Email", config.TypeString, "UserName"),
		node("Enabled", config.TypeBoolean, "Active"),
	}
	c := &config.Config{
		AppID:       "acme",
		Destination: config.Destination{Kind: config.DestinationREST, BaseURL: baseURL},
		Endpoints: []config.Endpoint{
			{RequestKind: config.RequestPost, ResourceType: "User", Path: "/users", Schema: userSchema},
			{RequestKind: config.RequestPut, ResourceType: "User", Path: "/users/{id}", Schema: userSchema},
			{RequestKind: config.RequestGet, ResourceType: "User", Path: "/users/{id}", Schema: userSchema},
		},
	}
	c.Index()
	return c
}

func ada() *scim.User {
	return &scim.User{
		Core:     scim.Core{Identifier: "42"},
		UserName: "ada@example.com",
		Active:   true,
	}
}

func TestRenderREST(t *testing.T) {
	require := require.New(t)
	p := NewProvisioner(restConfig("http://localhost"), write.DiscardingWriter{})

	rendered, err := p.Render(config.RequestPut, ada())
	require.NoError(err)
	require.Equal("/users/{id}", rendered.Request.Path)
	require.Equal("42", rendered.Request.ID)
	require.Equal(map[string]any{"Id": "42", "Email": "ada@example.com", "Enabled": true}, rendered.Request.Payload)
	require.Empty(rendered.Command)
}

func TestRenderNoEndpoint(t *testing.T) {
	p := NewProvisioner(restConfig("http://localhost"), write.DiscardingWriter{})
	_, err := p.Render(config.RequestDelete, ada())
	require.ErrorContains(t, err, "no DELETE endpoint configured for User resources")

	_, err = p.Render(config.RequestPost, &scim.Group{DisplayName: "eng"})
	require.ErrorContains(t, err, "no POST endpoint configured for Group resources")
}

func TestRenderPropagatesMappingErrors(t *testing.T) {
	c := restConfig("http://localhost")
	c.Endpoints[0].Schema[1].IsRequired = true
	p := NewProvisioner(c, write.DiscardingWriter{})

	_, err := p.Render(config.RequestPost, &scim.User{Core: scim.Core{Identifier: "1"}})
	require.ErrorIs(t, err, mapping.ErrMissingRequiredField)
	require.Equal(t, http.StatusBadRequest, mapping.StatusFor(err))
}

func TestProvisionREST(t *testing.T) {
	require := require.New(t)
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result": {"key": "u-981"}}`))
	}))
	defer srv.Close()

	c := restConfig(srv.URL)
	c.Endpoints[0].Schema = c.Endpoints[0].Schema[1:]
	p := NewProvisioner(c, write.NewRESTWriter(c.Destination, nil, srv.Client()))

	res, err := p.Provision(context.Background(), config.RequestPost, ada())
	require.NoError(err)
	require.Equal("/users", gotPath)
	require.Equal(map[string]any{"Email": "ada@example.com", "Enabled": true}, gotBody)
	require.Equal(http.StatusCreated, res.Status)
	require.Equal("u-981", res.ID)
}

func TestProvisionRESTLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such user", http.StatusNotFound)
	}))
	defer srv.Close()

	c := restConfig(srv.URL)
	p := NewProvisioner(c, write.NewRESTWriter(c.Destination, nil, srv.Client()))
	_, err := p.Provision(context.Background(), config.RequestGet, ada())

	var derr *write.DestinationError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, http.StatusNotFound, derr.Status)
}

func sqlConfig() *config.Config {
	c := &config.Config{
		AppID:       "acme",
		Destination: config.Destination{Kind: config.DestinationSQL, Driver: "postgres", DSN: "mock"},
		Endpoints: []config.Endpoint{
			{RequestKind: config.RequestPost, ResourceType: "User", Routine: "scim.create_user", Schema: config.Schema{
				node("user_name", config.TypeText, "UserName"),
				node("active", config.TypeBoolean, "Active"),
			}},
			{RequestKind: config.RequestGet, ResourceType: "User", Routine: "scim.get_user", Schema: config.Schema{
				node("user_name", config.TypeText, "UserName"),
			}},
		},
	}
	c.Index()
	return c
}

func TestRenderSQL(t *testing.T) {
	require := require.New(t)
	p := NewProvisioner(sqlConfig(), write.DiscardingWriter{})

	rendered, err := p.Render(config.RequestPost, ada())
	require.NoError(err)
	require.Equal(`CALL "scim"."create_user"("user_name" => $1::text, "active" => $2::boolean)`, rendered.Command)
	require.Equal("scim.create_user", rendered.Request.Routine)
	require.Len(rendered.Request.Params, 2)
	require.Nil(rendered.Request.Payload)
}

func TestProvisionSQLLookup(t *testing.T) {
	require := require.New(t)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(err)

	c := sqlConfig()
	w, err := write.NewSQLWriterWithOpener(c.Destination, func(string, string) (*sql.DB, error) { return db, nil })
	require.NoError(err)

	mock.ExpectQuery(`SELECT * FROM "scim"."get_user"("user_name" => $1::text)`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name"}).AddRow(int64(7), "ada@example.com"))
	mock.ExpectClose()

	res, err := NewProvisioner(c, w).Provision(context.Background(), config.RequestGet, ada())
	require.NoError(err)
	require.Equal(http.StatusOK, res.Status)
	require.Equal("7", res.ID)
	require.NoError(mock.ExpectationsWereMet())
}

func TestProvisionDryRun(t *testing.T) {
	require := require.New(t)
	res, err := NewProvisioner(sqlConfig(), write.NewDryRunWriter()).Provision(context.Background(), config.RequestPost, ada())
	require.NoError(err)
	require.Equal(http.StatusOK, res.Status)
	require.Empty(res.ID)
}
