package options

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/util"
)

// PostgresOptions holds options related to postgres
type PostgresOptions struct {
	PostgresURI string

	PoolConfig *pgxpool.Config
}

// Complete configures postgres options from a URI if needed
// Set either URI or the config object, but not both.
func (o *PostgresOptions) Complete() error {
	if o.PoolConfig != nil {
		log.Debug().Msg("postgres config already set, skipping postgres option validation")
		return nil
	}
	if o.PostgresURI == "" {
		return fmt.Errorf("must provide postgres uri or dsn")
	}
	cfg, err := pgxpool.ParseConfig(o.PostgresURI)
	if err != nil {
		return err
	}
	o.PoolConfig = cfg
	return nil
}

// Configured reports whether a postgres connection has been requested.
func (o *PostgresOptions) Configured() bool {
	return o.PoolConfig != nil || o.PostgresURI != ""
}

// Connect opens a pool for the completed options.
func (o *PostgresOptions) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	if err := o.Complete(); err != nil {
		return nil, err
	}
	log.Info().EmbedObject(util.LoggedConnConfig{ConnConfig: o.PoolConfig.ConnConfig}).Msg("connecting to postgres")
	return pgxpool.ConnectConfig(ctx, o.PoolConfig)
}
