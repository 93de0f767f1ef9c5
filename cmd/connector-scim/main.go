package main

import (
	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/cmd/config"
	"github.com/authzed/connector-scim/pkg/cmd/ingest"
	"github.com/authzed/connector-scim/pkg/cmd/provision"
	"github.com/authzed/connector-scim/pkg/cmd/render"
	"github.com/authzed/connector-scim/pkg/cmd/validate"
	"github.com/authzed/connector-scim/pkg/signals"
	"github.com/authzed/connector-scim/pkg/streams"
)

func main() {
	s := streams.NewStdIO()
	ctx := signals.Context()
	rootCmd := &cobra.Command{
		Use:               "connector-scim",
		Short:             "Map canonical identities onto tenant systems and back",
		SilenceUsage:      true,
		PersistentPreRunE: cobrautil.SyncViperPreRunE("connector-scim"),
	}

	rootCmd.AddCommand(render.NewRenderCmd(ctx, s))
	rootCmd.AddCommand(provision.NewProvisionCmd(ctx, s))
	rootCmd.AddCommand(ingest.NewIngestCmd(ctx, s))
	rootCmd.AddCommand(validate.NewValidateCmd(ctx, s))
	rootCmd.AddCommand(config.NewConfigCmd(ctx, s))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Send()
	}
}
