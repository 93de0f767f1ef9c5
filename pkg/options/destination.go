package options

import (
	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/util"
	"github.com/authzed/connector-scim/pkg/write"
)

// DestinationOptions holds options for reaching a tenant's destination
type DestinationOptions struct {
	DryRun bool
	// Token overrides the token configured for the destination.
	Token string

	Writer write.Writer
}

// Complete builds the writer for dest unless one is already set.
func (o *DestinationOptions) Complete(dest config.Destination) (err error) {
	if o.Writer != nil {
		log.Debug().Msg("destination writer already configured, skipping destination option validation")
		return nil
	}
	var tokens auth.TokenSource = auth.ConfigTokenSource{}
	if o.Token != "" {
		tokens = auth.Static(o.Token)
	}
	log.Info().EmbedObject(util.LoggedDestination{Destination: dest}).Bool("dry-run", o.DryRun).Msg("configuring destination")
	o.Writer, err = write.NewWriter(dest, tokens, o.DryRun)
	return
}
