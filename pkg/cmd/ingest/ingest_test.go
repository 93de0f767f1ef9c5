package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/connector-scim/pkg/correlate"
	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/streams"
)

const tenantYAML = `
app_id: acme
destination:
  kind: rest
  base_url: https://hr.example.com/api
inbound:
  source_records_path: "data:users"
  mappings:
    - mapping_type: Direct
      data_type: String
      value_path: login
      canonical_attribute: userName
      is_required: true
    - mapping_type: Direct
      data_type: String
      value_path: "employee:number"
      canonical_attribute: externalId
      is_required: true
    - mapping_type: Constant
      data_type: String
      default_value: hr-system
      canonical_attribute: source
`

const document = `{"data": {"users": [
	{"login": "ada", "employee": {"number": 1815}},
	{"login": "grace", "employee": {"number": 1906}},
	{"login": "edsger", "employee": {"number": 1930}}
]}}`

func newOptions(t *testing.T) (*Options, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tenant.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(tenantYAML), 0o600))

	testIO, in, out, _ := streams.NewTestIO()
	in.WriteString(document)
	o := NewOptions(testIO)
	o.ConfigFile = cfg
	return o, out
}

func TestIngestPrintsBulkRequest(t *testing.T) {
	require := require.New(t)
	o, out := newOptions(t)

	require.NoError(o.Complete(context.Background(), []string{streams.StdinPath}))
	require.NoError(o.Run(context.Background()))

	var req scim.BulkRequest
	require.NoError(json.Unmarshal(out.Bytes(), &req))
	require.Equal([]string{scim.SchemaBulkRequest}, req.Schemas)
	require.Len(req.Operations, 3)
	require.Equal("ada", req.Operations[0].Data["userName"])
	require.Equal("1815", req.Operations[0].Data["externalId"])
	require.Equal(req.Operations[0].BulkID, req.Operations[2].BulkID)
}

func TestIngestPublishesBatches(t *testing.T) {
	require := require.New(t)

	type received struct {
		correlationID string
		auth          string
		operations    int
	}
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scim.BulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got = append(got, received{
			correlationID: r.Header.Get(correlate.HeaderCorrelationID),
			auth:          r.Header.Get("Authorization"),
			operations:    len(req.Operations),
		})
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	o, out := newOptions(t)
	o.PublishURL = srv.URL
	o.PublishToken = "publish-secret"
	o.BatchSize = 2

	require.NoError(o.Complete(context.Background(), []string{streams.StdinPath}))
	require.NoError(o.Run(context.Background()))
	require.Empty(out.String())

	require.Len(got, 2)
	require.Equal(2, got[0].operations)
	require.Equal(1, got[1].operations)
	require.Equal("Bearer publish-secret", got[0].auth)
	require.NotEmpty(got[0].correlationID)
	require.Equal(got[0].correlationID, got[1].correlationID)
}

func TestIngestAwaitsAcknowledgement(t *testing.T) {
	table := []struct {
		name    string
		ack     string
		wantErr string
	}{
		{"accepted", `{"status": 200}`, ""},
		{"rejected", `{"status": 409, "detail": "duplicate externalId"}`, "duplicate externalId"},
	}

	for _, tt := range table {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			o, _ := newOptions(t)
			o.ReplyAddr = "127.0.0.1:0"
			o.AwaitReply = true

			// replyURL is known only once Complete starts listening
			replyURL := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				id := r.Header.Get(correlate.HeaderCorrelationID)
				w.WriteHeader(http.StatusAccepted)
				target := <-replyURL
				go func() {
					req, _ := http.NewRequest(http.MethodPost, target, bytes.NewBufferString(tt.ack))
					req.Header.Set(correlate.HeaderCorrelationID, id)
					if resp, err := http.DefaultClient.Do(req); err == nil {
						resp.Body.Close()
					}
				}()
			}))
			defer srv.Close()
			o.PublishURL = srv.URL

			require.NoError(o.Complete(context.Background(), []string{streams.StdinPath}))
			require.NotNil(o.ReplyAddress())
			replyURL <- "http://" + o.ReplyAddress().String()

			err := o.Run(context.Background())
			if tt.wantErr == "" {
				require.NoError(err)
				return
			}
			require.ErrorContains(err, tt.wantErr)
		})
	}
}

func TestIngestOptionErrors(t *testing.T) {
	table := []struct {
		name    string
		modify  func(*Options)
		args    []string
		wantErr string
	}{
		{"await without publish", func(o *Options) { o.AwaitReply = true }, []string{streams.StdinPath}, "requires --publish-url"},
		{"negative batch", func(o *Options) { o.BatchSize = -1 }, []string{streams.StdinPath}, "must not be negative"},
		{"no source", func(o *Options) {}, nil, "neither a path nor a query"},
		{"no config", func(o *Options) { o.ConfigFile = "" }, nil, "must provide a tenant config file"},
	}

	for _, tt := range table {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newOptions(t)
			tt.modify(o)
			require.ErrorContains(t, o.Complete(context.Background(), tt.args), tt.wantErr)
		})
	}
}

func TestDefaultPostgres(t *testing.T) {
	require := require.New(t)
	o, _ := newOptions(t)
	require.NoError(o.Complete(context.Background(), []string{streams.StdinPath}))

	dest := o.Config.Destination
	require.ErrorContains(o.defaultPostgres(dest), "needs --postgres")

	dest.Kind = "sql"
	dest.Driver = "SqlClient"
	require.ErrorContains(o.defaultPostgres(dest), "run against postgres")

	dest.Driver = "Npgsql"
	dest.DSN = "postgres://scim@db/acme"
	require.NoError(o.defaultPostgres(dest))
	require.Equal("postgres://scim@db/acme", o.PostgresURI)
}
