package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/inbound"
	"github.com/authzed/connector-scim/pkg/util"
)

const maxSourceBytes = 64 << 20

// Source fetches the document inbound records are read from.
type Source interface {
	Fetch(ctx context.Context) (any, error)
}

// NewSource picks the source configured for an inbound pull: a postgres query
// when one is set, otherwise a GET against the destination's REST API.
func NewSource(dest config.Destination, src config.InboundSource, tokens auth.TokenSource, querier Querier) (Source, error) {
	switch {
	case src.Query != "":
		if querier == nil {
			return nil, fmt.Errorf("inbound query configured but no postgres connection available")
		}
		return NewPostgresSource(querier, src.Query), nil
	case src.Path != "":
		if dest.Kind != config.DestinationREST {
			return nil, fmt.Errorf("inbound path requires a rest destination, got %q", dest.Kind)
		}
		return NewRESTSource(dest, src.Path, tokens, nil), nil
	}
	return nil, fmt.Errorf("inbound source has neither a path nor a query")
}

// RESTSource GETs the document from a path under the destination base url.
type RESTSource struct {
	dest   config.Destination
	path   string
	tokens auth.TokenSource
	client *http.Client
}

var _ Source = &RESTSource{}

// NewRESTSource returns a source for path. http.DefaultClient is used when
// client is nil.
func NewRESTSource(dest config.Destination, path string, tokens auth.TokenSource, client *http.Client) *RESTSource {
	if client == nil {
		client = http.DefaultClient
	}
	if tokens == nil {
		tokens = auth.ConfigTokenSource{}
	}
	return &RESTSource{dest: dest, path: path, tokens: tokens, client: client}
}

func (s *RESTSource) Fetch(ctx context.Context) (any, error) {
	target := strings.TrimRight(s.dest.BaseURL, "/") + "/" + strings.TrimLeft(s.path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token, err := s.tokens.GetToken(ctx, s.dest.Auth, auth.Inbound)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Info().EmbedObject(util.LoggedDestination{Destination: s.dest}).Str("path", s.path).Msg("fetching source document")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to GET %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected %d response from GET %s: %s", resp.StatusCode, target, strings.TrimSpace(string(body)))
	}
	return inbound.Decode(body)
}

// Querier is the subset of a pgx connection or pool used by PostgresSource.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresSource runs a query and aggregates its rows into a JSON array, one
// object per row keyed by column name.
type PostgresSource struct {
	conn  Querier
	query string
}

var _ Source = &PostgresSource{}

// NewPostgresSource returns a source that reads the rows of query.
func NewPostgresSource(conn Querier, query string) *PostgresSource {
	return &PostgresSource{conn: conn, query: query}
}

func (s *PostgresSource) Fetch(ctx context.Context) (any, error) {
	var doc string
	log.Debug().Str("query", s.query).Msg("fetching source rows")
	if err := s.conn.QueryRow(ctx, aggregateQuery(s.query)).Scan(&doc); err != nil {
		return nil, fmt.Errorf("querying source rows: %w", err)
	}
	return inbound.Decode([]byte(doc))
}

func aggregateQuery(query string) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	return fmt.Sprintf("SELECT coalesce(json_agg(row_to_json(q)), '[]'::json)::text FROM (%s) AS q", query)
}

// ReaderSource reads an already-fetched document, e.g. a file or stdin.
type ReaderSource struct {
	R io.Reader
}

var _ Source = ReaderSource{}

func (s ReaderSource) Fetch(context.Context) (any, error) {
	data, err := io.ReadAll(io.LimitReader(s.R, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("reading source document: %w", err)
	}
	return inbound.Decode(data)
}
